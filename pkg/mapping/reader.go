package mapping

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grafana/retrace/pkg/iter"
)

// MaxLineSize is the longest line a mapping table may contain.
const MaxLineSize = 1 << 20

const (
	arrow   = "->"
	utf8BOM = "\ufeff"
)

var _ iter.Iterator[Record] = (*Reader)(nil)

// Reader is a pull-based parser of mapping tables. Records are produced
// lazily in table order; the stream is finite and cannot be restarted.
//
// Top-level lines must be class headers, anything else fails the parse.
// Indented lines that are neither methods nor fields, or that appear
// before the first class header, are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	class   string
	cur     Record
	err     error
}

// NewReader returns a Reader consuming r. The Reader does not close r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64<<10), MaxLineSize)
	return &Reader{scanner: s}
}

func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if r.line == 1 {
			text = strings.TrimPrefix(text, utf8BOM)
		}
		rec, ok, err := r.parseLine(text)
		if err != nil {
			r.err = err
			r.cur = Record{}
			return false
		}
		if ok {
			r.cur = rec
			return true
		}
	}
	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			r.err = &SyntaxError{Line: r.line + 1, Msg: fmt.Sprintf("line exceeds %d bytes", MaxLineSize)}
		} else {
			r.err = fmt.Errorf("read mapping: %w", err)
		}
	}
	r.cur = Record{}
	return false
}

func (r *Reader) At() Record { return r.cur }

func (r *Reader) Err() error { return r.err }

func (r *Reader) Close() error { return nil }

func (r *Reader) parseLine(text string) (Record, bool, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Record{}, false, nil
	}
	if !isIndented(text) {
		cm, err := parseClassHeader(trimmed)
		if err != nil {
			return Record{}, false, &SyntaxError{Line: r.line, Text: text, Msg: err.Error()}
		}
		r.class = cm.Original
		return Record{Kind: KindClass, Line: r.line, Class: cm}, true, nil
	}
	if r.class == "" {
		return Record{}, false, nil
	}
	kind, mm, err := parseMember(trimmed)
	if err != nil {
		return Record{}, false, &SyntaxError{Line: r.line, Text: text, Msg: err.Error()}
	}
	if kind == 0 {
		return Record{}, false, nil
	}
	mm.Class = r.class
	return Record{Kind: kind, Line: r.line, Member: mm}, true, nil
}

func isIndented(s string) bool {
	return len(s) > 0 && (s[0] == ' ' || s[0] == '\t')
}

// parseClassHeader parses "<original> -> <obfuscated>:".
func parseClassHeader(s string) (ClassMapping, error) {
	if !strings.HasSuffix(s, ":") {
		return ClassMapping{}, errors.New("expected class header")
	}
	i := strings.Index(s, arrow)
	if i < 0 {
		return ClassMapping{}, errors.New("expected class header")
	}
	cm := ClassMapping{
		Original:   strings.TrimSpace(s[:i]),
		Obfuscated: strings.TrimSpace(s[i+len(arrow) : len(s)-1]),
	}
	if cm.Original == "" || cm.Obfuscated == "" {
		return ClassMapping{}, errors.New("empty class name")
	}
	return cm, nil
}

// parseMember parses a method or field line. A zero Kind with a nil error
// means the line has no recognised shape, including line ranges of an
// unknown arity. Non-numeric line numbers are errors.
func parseMember(s string) (Kind, MemberMapping, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return parseField(s)
	}
	closing := strings.IndexByte(s[open:], ')')
	if closing < 0 {
		return 0, MemberMapping{}, nil
	}
	closing += open
	a := strings.Index(s[closing:], arrow)
	if a < 0 {
		return 0, MemberMapping{}, nil
	}
	a += closing

	var (
		mm  MemberMapping
		err error
	)
	mm.Obfuscated = strings.TrimSpace(s[a+len(arrow):])
	mm.Arguments = strings.TrimSpace(s[open+1 : closing])

	head := s[:open]
	var prefixFirst, prefixLast int
	hasPrefix := strings.IndexByte(head, ':') >= 0
	if hasPrefix {
		parts := strings.SplitN(head, ":", 3)
		if len(parts) != 3 {
			return 0, MemberMapping{}, nil
		}
		if prefixFirst, prefixLast, err = parseRange(parts[0], parts[1]); err != nil {
			return 0, MemberMapping{}, err
		}
		head = parts[2]
	}

	head = strings.TrimSpace(head)
	sp := strings.LastIndexAny(head, " \t")
	if sp < 0 {
		return 0, MemberMapping{}, nil
	}
	mm.Type = strings.TrimSpace(head[:sp])
	mm.Original = head[sp+1:]
	if mm.Type == "" || mm.Original == "" || mm.Obfuscated == "" {
		return 0, MemberMapping{}, nil
	}

	// R8 appends the original line range after the argument list.
	var suffixFirst, suffixLast int
	if tail := strings.TrimSpace(s[closing+1 : a]); tail != "" {
		if tail[0] != ':' {
			return 0, MemberMapping{}, nil
		}
		parts := strings.Split(tail[1:], ":")
		switch len(parts) {
		case 1:
			suffixFirst, suffixLast, err = parseRange(parts[0], parts[0])
		case 2:
			suffixFirst, suffixLast, err = parseRange(parts[0], parts[1])
		default:
			return 0, MemberMapping{}, nil
		}
		if err != nil {
			return 0, MemberMapping{}, err
		}
	}

	if hasPrefix {
		mm.FirstLine, mm.LastLine = prefixFirst, prefixLast
	} else {
		mm.FirstLine, mm.LastLine = suffixFirst, suffixLast
	}
	return KindMethod, mm, nil
}

func parseField(s string) (Kind, MemberMapping, error) {
	a := strings.Index(s, arrow)
	if a < 0 {
		return 0, MemberMapping{}, nil
	}
	head := strings.TrimSpace(s[:a])
	sp := strings.LastIndexAny(head, " \t")
	if sp < 0 {
		return 0, MemberMapping{}, nil
	}
	mm := MemberMapping{
		Type:       strings.TrimSpace(head[:sp]),
		Original:   head[sp+1:],
		Obfuscated: strings.TrimSpace(s[a+len(arrow):]),
	}
	if mm.Type == "" || mm.Obfuscated == "" {
		return 0, MemberMapping{}, nil
	}
	return KindField, mm, nil
}

func parseRange(first, last string) (int, int, error) {
	f, err := parseLineNumber(first)
	if err != nil {
		return 0, 0, err
	}
	l, err := parseLineNumber(last)
	if err != nil {
		return 0, 0, err
	}
	return f, l, nil
}

func parseLineNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid line number %q", s)
	}
	return n, nil
}
