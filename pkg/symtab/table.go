package symtab

// NoLine is the line number of a query that carries no line information.
// It only matches candidates without a line range.
const NoLine = -1

// MethodCandidate is one original method an obfuscated method name may
// stand for. LastLine == 0 means the entry has no line information and
// matches any line.
type MethodCandidate struct {
	FirstLine    int
	LastLine     int
	OriginalName string
}

func (c MethodCandidate) Matches(line int) bool {
	return (c.FirstLine <= line && line <= c.LastLine) || c.LastLine == 0
}

// Result is the outcome of a resolution. MethodNames is empty when no
// method was queried.
type Result struct {
	ClassName   string
	MethodNames []string
}

// Stats describes the mapping table a Table was built from.
type Stats struct {
	Classes       int
	Methods       int
	FieldsSkipped int
	SourceBytes   int64
	Checksum      uint64
}

// Table maps obfuscated names back to the original ones. A Table never
// changes after it has been built, so it is safe for concurrent use
// without synchronization.
type Table struct {
	// obfuscated class name -> original class name.
	classes map[string]string
	// original class name -> obfuscated method name -> candidates in table order.
	methods map[string]map[string][]MethodCandidate
	stats   Stats
}

// Resolve maps an obfuscated class name, and optionally a method name and
// line number, back to the original names. An empty method means no
// method was given; use NoLine when the line is unknown.
//
// Names missing from the table are returned unchanged.
func (t *Table) Resolve(class, method string, line int) Result {
	res := Result{ClassName: t.OriginalClassName(class)}
	if method == "" {
		return res
	}
	res.MethodNames = t.originalMethodNames(res.ClassName, method, line)
	return res
}

// OriginalClassName returns the original name of an obfuscated class, or
// the name itself if the table does not know it.
func (t *Table) OriginalClassName(obfuscated string) string {
	if original, ok := t.classes[obfuscated]; ok {
		return original
	}
	return obfuscated
}

func (t *Table) originalMethodNames(class, method string, line int) []string {
	var names []string
	for _, c := range t.methods[class][method] {
		if c.Matches(line) {
			names = append(names, c.OriginalName)
		}
	}
	if len(names) == 0 {
		return []string{method}
	}
	return names
}

// Candidates returns a copy of the candidates recorded for an obfuscated
// method of an original class.
func (t *Table) Candidates(class, method string) []MethodCandidate {
	cs := t.methods[class][method]
	if len(cs) == 0 {
		return nil
	}
	return append([]MethodCandidate(nil), cs...)
}

func (t *Table) Stats() Stats { return t.stats }
