package symtab

import (
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/grafana/retrace/pkg/iter"
	"github.com/grafana/retrace/pkg/mapping"
)

// Builder accumulates mapping records into a Table. It owns all mutable
// state until Table is called; the Builder must not be used afterwards.
type Builder struct {
	t *Table
}

func NewBuilder() *Builder {
	return &Builder{t: &Table{
		classes: make(map[string]string),
		methods: make(map[string]map[string][]MethodCandidate),
	}}
}

func (b *Builder) Add(r mapping.Record) {
	switch r.Kind {
	case mapping.KindClass:
		b.t.classes[r.Class.Obfuscated] = r.Class.Original
	case mapping.KindMethod:
		b.addMethod(r.Member)
	case mapping.KindField:
		b.t.stats.FieldsSkipped++
	}
}

func (b *Builder) addMethod(m mapping.MemberMapping) {
	byName, ok := b.t.methods[m.Class]
	if !ok {
		byName = make(map[string][]MethodCandidate)
		b.t.methods[m.Class] = byName
	}
	byName[m.Obfuscated] = append(byName[m.Obfuscated], MethodCandidate{
		FirstLine:    m.FirstLine,
		LastLine:     m.LastLine,
		OriginalName: m.Original,
	})
	b.t.stats.Methods++
}

// Table publishes the built table.
func (b *Builder) Table() *Table {
	t := b.t
	b.t = nil
	t.stats.Classes = len(t.classes)
	return t
}

// Build drains records into a new Table.
func Build(records iter.Iterator[mapping.Record]) (*Table, error) {
	b := NewBuilder()
	if err := iter.ForEach(records, func(r mapping.Record) error {
		b.Add(r)
		return nil
	}); err != nil {
		return nil, err
	}
	return b.Table(), nil
}

// BuildFromReader parses a mapping table from r and builds a Table from it.
func BuildFromReader(r io.Reader) (*Table, error) {
	cr := &checksumReader{r: r, digest: xxhash.New()}
	t, err := Build(mapping.NewReader(cr))
	if err != nil {
		return nil, err
	}
	t.stats.SourceBytes = cr.n
	t.stats.Checksum = cr.digest.Sum64()
	return t, nil
}

type checksumReader struct {
	r      io.Reader
	digest *xxhash.Digest
	n      int64
}

func (c *checksumReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		_, _ = c.digest.Write(p[:n])
		c.n += int64(n)
	}
	return n, err
}
