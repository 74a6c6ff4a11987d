// Package utils contains general helper functions shared by the gitdigest packages.
package utils

import (
	"strings"
)

// GitDirectoryName is the name of the Git repository metadata directory.
const GitDirectoryName = ".git"

// NormalizePattern converts a glob pattern to forward-slash, root-relative
// form: backslashes become slashes and leading "./" or "/" prefixes are dropped.
func NormalizePattern(pattern string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(pattern), "\\", "/")
	normalized = strings.TrimPrefix(normalized, "./")
	normalized = strings.TrimPrefix(normalized, "/")
	return normalized
}

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// SplitPatternList splits a comma-separated pattern list, trimming whitespace
// and dropping empty items.
func SplitPatternList(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var patterns []string
	for _, item := range strings.Split(list, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}
