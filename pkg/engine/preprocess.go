package engine

import "strings"

// preprocessSource rewrites scene script source before handing it to zygomys:
//
//   - :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols that could clash with user variables.
//   - kebab-case identifiers become snake_case (mesh-ref -> mesh_ref);
//     zygomys reads a hyphen as subtraction.
//   - ; and ;; line comments become //, which is what zygomys reads.
//
// String literals and comment text are copied untouched, and := is kept.
func preprocessSource(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)

	n := len(source)
	for i := 0; i < n; {
		c := source[i]
		switch {
		case c == '"' || c == '`':
			j := skipString(source, i)
			out.WriteString(source[i:j])
			i = j

		case c == ';':
			j := i
			for j < n && source[j] == ';' {
				j++
			}
			end := strings.IndexByte(source[j:], '\n')
			if end < 0 {
				end = n - j
			}
			out.WriteString("//")
			out.WriteString(source[j : j+end])
			i = j + end

		case c == ':' && i+1 < n && isLetter(source[i+1]):
			j := i + 1
			for j < n && isKWChar(source[j]) {
				j++
			}
			out.WriteString(`"` + kwPrefix + source[i+1:j] + `"`)
			i = j

		case c == '-' && i > 0 && i+1 < n && isIdentChar(source[i-1]) && isLetter(source[i+1]):
			// A hyphen inside an identifier; a minus operator has space around it.
			out.WriteByte('_')
			i++

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// skipString returns the index just past the string literal opening at i.
// Double-quoted strings honor backslash escapes; backtick strings do not.
// An unterminated literal runs to the end of the source.
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if quote == '"' {
				j++
			}
		case quote:
			return j + 1
		}
	}
	return len(s)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isKWChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}
