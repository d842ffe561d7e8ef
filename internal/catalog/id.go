package catalog

import (
	"strconv"
	"strings"
)

// ParseID reads an episode id from a URL segment the way the site always has:
// leading whitespace and a sign are allowed, a 0x prefix switches to hex, and
// the longest run of digits that follows is the id. Trailing text is ignored,
// so "12abc" is 12 while "abc" is not an id.
func ParseID(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	base := 10
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
		isDigit = func(c byte) bool {
			return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
		}
	}

	end := 0
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == 0 {
		return 0, false
	}

	n, err := strconv.ParseInt(s[:end], base, strconv.IntSize)
	if err != nil {
		return 0, false
	}
	if negative {
		n = -n
	}
	return int(n), true
}
