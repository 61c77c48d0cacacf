// Package utils provides shared utilities for text handling and logging.
package utils

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

// CountTokens returns the number of whitespace separated tokens in s.
func CountTokens(s string) int {
	return len(strings.Fields(s))
}

// Percent formats a ratio as a percentage with two decimals, e.g. 0.5 -> "50.00%".
func Percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}
