package server

import (
	"strconv"
	"strings"

	"github.com/grafana/retrace/pkg/retrace"
	"github.com/grafana/retrace/pkg/symtab"
)

const (
	okPrefix    = "OK: "
	errorPrefix = "ERROR: "
)

const errLineTooLong = "request line too long"

// ParseRequest parses a request line of the form
//
//	<version> <class> [<method> [<line>]]
//
// Tokens are separated by whitespace; tokens past the fourth are ignored.
// Any integer is a valid line; negative lines only match candidates
// without line information, like an omitted line.
func ParseRequest(line string) (retrace.Query, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return retrace.Query{}, retrace.Malformed("expected <version> <class> [<method> [<line>]], got %d tokens", len(fields))
	}
	q := retrace.Query{
		Version: fields[0],
		Class:   fields[1],
		Line:    symtab.NoLine,
	}
	if len(fields) > 2 {
		q.Method = fields[2]
	}
	if len(fields) > 3 {
		n, err := strconv.Atoi(fields[3])
		if err != nil {
			return retrace.Query{}, retrace.Malformed("invalid line number %q", fields[3])
		}
		q.Line = n
	}
	return q, nil
}

// FormatRequest is the inverse of ParseRequest.
func FormatRequest(q retrace.Query) string {
	var sb strings.Builder
	sb.WriteString(q.Version)
	sb.WriteByte(' ')
	sb.WriteString(q.Class)
	if q.Method != "" {
		sb.WriteByte(' ')
		sb.WriteString(q.Method)
		if q.Line != symtab.NoLine {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Itoa(q.Line))
		}
	}
	return sb.String()
}

// FormatResult renders a successful resolution. The separator after the
// class name is written even when there are no method names.
func FormatResult(res symtab.Result) string {
	return okPrefix + res.ClassName + " " + strings.Join(res.MethodNames, ",")
}

func FormatError(err error) string {
	return errorPrefix + strings.ReplaceAll(err.Error(), "\n", " ")
}
