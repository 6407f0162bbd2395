package host

import (
	"strings"
	"unicode"
)

// readPrefixes are the leading keywords of statements whose rows are
// materialized inside a transaction.
var readPrefixes = []string{"SELECT", "WITH", "VALUES", "EXPLAIN"}

// IsReadStatement reports whether sql looks like a statement that returns
// rows. It is a lexical check on the first keyword after leading whitespace
// and comments, not a parse: a CTE that ends in INSERT is misclassified.
func IsReadStatement(sql string) bool {
	s := skipLeadingComments(sql)
	for _, p := range readPrefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return true
		}
	}
	return false
}

// skipLeadingComments drops whitespace, "--" line comments and "/* */" block
// comments from the start of sql. An unterminated block comment consumes the
// rest of the input, as it does in SQLite.
func skipLeadingComments(sql string) string {
	s := sql
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return ""
			}
			s = s[i+4:]
		default:
			return s
		}
	}
}
