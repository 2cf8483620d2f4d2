package utils

import (
	"strconv"
	"unicode/utf8"
)

// ParseID parses a positive decimal resource id. Anything else is rejected
// so malformed path parameters behave like unknown ids.
func ParseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 || n > uint64(^uint(0)) {
		return 0, false
	}
	return uint(n), true
}

// CharCount counts Unicode code points, which is how length limits are enforced.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
