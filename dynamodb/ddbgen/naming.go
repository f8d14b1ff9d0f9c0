package ddbgen

import (
	"go/token"
	"strings"
	"unicode"
)

var initialisms = map[string]bool{
	"api": true, "arn": true, "http": true, "id": true, "ip": true,
	"json": true, "sql": true, "ttl": true, "uri": true, "url": true, "uuid": true,
}

// exportedName turns an SDL field or type name into an exported Go
// identifier, upper casing common initialisms: externalId -> ExternalID.
func exportedName(name string) string {
	var b strings.Builder
	for _, w := range words(name) {
		if initialisms[strings.ToLower(w)] {
			b.WriteString(strings.ToUpper(w))
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// unexportedName lower cases the first word: Account -> account,
// ID -> id. Go keywords get a trailing underscore.
func unexportedName(name string) string {
	ws := words(name)
	if len(ws) == 0 {
		return ""
	}
	out := strings.ToLower(ws[0]) + exportedName(strings.Join(ws[1:], "_"))
	if token.IsKeyword(out) {
		out += "_"
	}
	return out
}

// words splits camelCase, PascalCase and snake_case names.
func words(name string) []string {
	var out []string
	var cur []rune
	runes := []rune(name)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = nil
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prevLower := unicode.IsLower(cur[len(cur)-1]) || unicode.IsDigit(cur[len(cur)-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

// snake names generated files: UserSession -> user_session.
func snake(name string) string {
	ws := words(name)
	for i, w := range ws {
		ws[i] = strings.ToLower(w)
	}
	return strings.Join(ws, "_")
}
