// Package mapping reads ProGuard/R8 mapping tables.
//
// A mapping table lists every renamed class followed by its renamed members:
//
//	com.example.Foo -> a.b:
//	    int count -> a
//	    void run():10:20 -> b
//	    21:25:void stop() -> c
//
// The Reader turns such text into a stream of Records.
package mapping

import "fmt"

type Kind uint8

const (
	KindClass Kind = iota + 1
	KindMethod
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindField:
		return "field"
	default:
		return "unknown"
	}
}

// ClassMapping is a class header: Original -> Obfuscated.
type ClassMapping struct {
	Original   string
	Obfuscated string
}

// MemberMapping is a method or field entry of the enclosing class.
// FirstLine and LastLine are zero when the entry carries no line range;
// Arguments is empty for fields.
type MemberMapping struct {
	Class      string
	Type       string
	Original   string
	Arguments  string
	Obfuscated string
	FirstLine  int
	LastLine   int
}

// Record is one entry of a mapping table. Class is set for KindClass
// records, Member for KindMethod and KindField records.
type Record struct {
	Kind   Kind
	Line   int
	Class  ClassMapping
	Member MemberMapping
}

// SyntaxError reports a line of a mapping table that cannot be parsed.
type SyntaxError struct {
	Line int
	Text string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("mapping line %d: %s: %q", e.Line, e.Msg, truncate(e.Text, 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
