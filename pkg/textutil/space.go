// Package textutil holds the text rules shared by chunking, embedding and
// answer validation. Whitespace follows the ECMAScript definition so stored
// chunks and vectors match those produced by the Node.js service.
package textutil

import (
	"regexp"
	"strings"
)

// spaceClass is ECMAScript's \s: WhiteSpace plus LineTerminator.
const spaceClass = `[\t\n\v\f\r \x{a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}]`

var spaceRun = regexp.MustCompile(spaceClass + `+`)

// IsSpace reports whether r is whitespace under the ECMAScript rules.
// Unlike unicode.IsSpace it includes U+FEFF and excludes U+0085.
func IsSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		0x00a0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}

// SplitWhitespace splits s around runs of whitespace. Leading or trailing
// whitespace yields an empty first or last element, and "" yields [""].
func SplitWhitespace(s string) []string {
	return spaceRun.Split(s, -1)
}

// TrimSpace removes leading and trailing whitespace.
func TrimSpace(s string) string {
	return strings.TrimFunc(s, IsSpace)
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
