package aggregate

import "strings"

// missingField is how an absent stratification value renders inside a category key.
const missingField = "nan"

// categoryKey renders a composite key as a quoted tuple literal,
// e.g. ('Alabama', 'Age (years)', '18 - 24').
func categoryKey(parts ...*string) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range parts {
		if i > 0 {
			b.WriteString(", ")
		}
		if p == nil {
			b.WriteString(missingField)
			continue
		}
		b.WriteString(quote(*p))
	}
	if len(parts) == 1 {
		b.WriteByte(',')
	}
	b.WriteByte(')')
	return b.String()
}

// quote wraps s in single quotes, switching to double quotes when s contains
// a single quote but no double quote.
func quote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(q):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}
