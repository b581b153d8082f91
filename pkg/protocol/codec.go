// Package protocol implements the wire envelope for the unified-shell MCP
// server: a deliberately minimal JSON codec (field extraction only, no
// nested object/array parsing), the request/response envelope shapes, and
// the tool descriptor types the catalog loader produces.
//
// The codec is intentionally non-general. It mirrors the C original's
// substring scanner: find "field", skip to the first ':', then read either
// a quoted string (unescaping \n \t \r \\ \") or a bare scalar up to the
// next , } ] or newline. A field that cannot be found is reported as
// absent, never as a partial or corrupt read.
package protocol

import "strings"

// ExtractField finds the value of the first occurrence of "field" in a
// raw JSON object, at whatever nesting depth it appears (the key is found
// by substring search, not by walking the top level). ok is false if the
// field name does not appear, or the value after it is malformed.
func ExtractField(doc []byte, field string) (value string, ok bool) {
	idx := findKey(doc, field)
	if idx < 0 {
		return "", false
	}
	rest := doc[idx:]
	colon := indexByte(rest, ':')
	if colon < 0 {
		return "", false
	}
	rest = rest[colon+1:]
	rest = skipSpace(rest)
	if len(rest) == 0 {
		return "", false
	}
	if rest[0] == '"' {
		return extractQuotedString(rest)
	}
	return extractBareScalar(rest), true
}

// ExtractObject finds the first occurrence of field (by the same substring
// search as ExtractField) and returns the raw
// bytes of its value, whatever shape it has (object, array, scalar). It
// does not validate nesting beyond brace/bracket counting — used to carve
// out "params" so downstream handlers can re-probe it for their own fields.
func ExtractObject(doc []byte, field string) (raw []byte, ok bool) {
	idx := findKey(doc, field)
	if idx < 0 {
		return nil, false
	}
	rest := doc[idx:]
	colon := indexByte(rest, ':')
	if colon < 0 {
		return nil, false
	}
	rest = rest[colon+1:]
	rest = skipSpace(rest)
	if len(rest) == 0 {
		return nil, false
	}
	switch rest[0] {
	case '{':
		end := matchBrace(rest, '{', '}')
		if end < 0 {
			return nil, false
		}
		return rest[:end+1], true
	case '[':
		end := matchBrace(rest, '[', ']')
		if end < 0 {
			return nil, false
		}
		return rest[:end+1], true
	case '"':
		s, ok := extractQuotedString(rest)
		if !ok {
			return nil, false
		}
		return []byte(s), true
	default:
		return []byte(extractBareScalar(rest)), true
	}
}

// findKey returns the index in doc right after the closing quote of
// "field", or -1 if not found. It scans for the literal `"field"` rather
// than tokenizing, matching the source's substring-search behavior.
func findKey(doc []byte, field string) int {
	needle := []byte(`"` + field + `"`)
	i := indexBytes(doc, needle)
	if i < 0 {
		return -1
	}
	return i + len(needle)
}

func skipSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}

func extractQuotedString(b []byte) (string, bool) {
	if len(b) == 0 || b[0] != '"' {
		return "", false
	}
	var out strings.Builder
	i := 1
	for i < len(b) {
		c := b[i]
		if c == '"' {
			return out.String(), true
		}
		if c == '\\' && i+1 < len(b) {
			switch b[i+1] {
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			case 'r':
				out.WriteByte('\r')
			case '\\':
				out.WriteByte('\\')
			case '"':
				out.WriteByte('"')
			default:
				out.WriteByte(b[i+1])
			}
			i += 2
			continue
		}
		out.WriteByte(c)
		i++
	}
	// unterminated string
	return "", false
}

// extractBareScalar reads up to the next `,`, `}`, `]`, or newline,
// trimming surrounding whitespace. Used for bare numbers/booleans/null.
func extractBareScalar(b []byte) string {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ',', '}', ']', '\n':
			return strings.TrimSpace(string(b[:i]))
		}
		i++
	}
	return strings.TrimSpace(string(b))
}

// matchBrace returns the index of the matching closing brace/bracket for
// the opener at b[0], honoring quoted strings so braces inside string
// values don't confuse the count. Returns -1 if unmatched.
func matchBrace(b []byte, open, close byte) int {
	depth := 0
	inString := false
	for i := 0; i < len(b); i++ {
		c := b[i]
		if inString {
			if c == '\\' {
				i++
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func indexBytes(haystack, needle []byte) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

// EscapeString escapes a string for embedding in a JSON string literal,
// covering the characters the spec calls out (" \ \n \r \t \b \f) and
// dropping other non-printable ASCII control bytes.
func EscapeString(s string) string {
	var out strings.Builder
	out.Grow(len(s) + 8)
	for _, r := range s {
		switch r {
		case '"':
			out.WriteString(`\"`)
		case '\\':
			out.WriteString(`\\`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		case '\b':
			out.WriteString(`\b`)
		case '\f':
			out.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				continue // drop non-printable control bytes
			}
			out.WriteRune(r)
		}
	}
	return out.String()
}
