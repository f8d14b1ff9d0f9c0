package schema

import (
	"strings"
	"unicode"
)

// TableEnvVar is the environment variable a deployed function reads the
// physical name of a table from: main -> DDB_TABLE_MAIN, userEvents ->
// DDB_TABLE_USER_EVENTS.
func TableEnvVar(table string) string {
	var b strings.Builder
	b.WriteString("DDB_TABLE_")
	prev := '_'
	for _, r := range table {
		switch {
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			b.WriteRune('_')
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			r = '_'
		}
		b.WriteRune(unicode.ToUpper(r))
		prev = r
	}
	return b.String()
}
