// Package utils provides shared utilities for text, math, and logging.
package utils

// Truncate returns s cut to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// TruncateLeft keeps the last maxLen runes of s, prefixed with "..." if truncated.
// Used for file paths, where the tail is the informative part.
func TruncateLeft(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return "..." + string(r[len(r)-maxLen:])
}
