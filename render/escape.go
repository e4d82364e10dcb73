package render

import "strings"

// EscapeHTML escapes text for interpolation into markup. An ampersand that
// already starts an entity such as &amp; or &nbsp; is left alone.
func EscapeHTML(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if startsEntity(s[i+1:]) {
				b.WriteByte('&')
			} else {
				b.WriteString("&amp;")
			}
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// startsEntity reports whether s begins with one or more word characters
// followed by a semicolon.
func startsEntity(s string) bool {
	n := 0
	for n < len(s) && isWordChar(s[n]) {
		n++
	}
	return n > 0 && n < len(s) && s[n] == ';'
}

func isWordChar(c byte) bool {
	return c == '_' ||
		('0' <= c && c <= '9') ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z')
}
