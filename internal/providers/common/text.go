package common

import "strings"

// CollapseWhitespace joins all whitespace runs into single spaces and trims.
func CollapseWhitespace(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// CompactSnippet shortens raw for log output.
func CompactSnippet(raw string, maxLen int) string {
	value := CollapseWhitespace(raw)
	if value == "" {
		return "empty"
	}
	if len(value) <= maxLen {
		return value
	}
	if maxLen < 4 {
		return value[:maxLen]
	}
	return value[:maxLen-3] + "..."
}
