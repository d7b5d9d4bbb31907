// Package utils holds small helpers shared by the HTTP and service layers.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int, returning def when s is blank or
// not a number. Surrounding whitespace is ignored.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// ClampPage normalizes an offset-paginated window. A non-positive limit
// becomes def, a limit above max becomes max and a negative offset becomes 0.
func ClampPage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
