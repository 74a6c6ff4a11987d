// Package pattern compiles include and exclude glob sets into a single
// inclusion decision over root-relative paths.
//
// Patterns use Unix shell-style globbing: "*", "?" and "[...]" apply within a
// path segment, "**" matches any number of segments. A pattern containing no
// slash is matched against the final path segment at any depth, so "*.py"
// excludes Python files everywhere in the tree. Exclusion always wins over
// inclusion, and a path whose ancestor directory is excluded is excluded too.
package pattern

import (
	"fmt"
	"path"
	"strings"

	"github.com/temirov/gitdigest/internal/utils"
)

const recursiveSegment = "**"

// compiledPattern is one parsed glob, split into segments once at compile time.
type compiledPattern struct {
	raw      string
	segments []string
	anchored bool
}

// Matcher decides whether root-relative paths belong in a digest. A Matcher
// is immutable and safe for concurrent use.
type Matcher struct {
	includes []compiledPattern
	excludes []compiledPattern
	matchAll bool
}

// Compile parses the include and exclude pattern sets. Malformed globs fail
// here so that no traversal work happens for an invalid query. An empty
// include set means every non-excluded path is included.
func Compile(includePatterns, excludePatterns []string) (*Matcher, error) {
	includes, includeError := compilePatternSet(includePatterns)
	if includeError != nil {
		return nil, includeError
	}
	excludes, excludeError := compilePatternSet(excludePatterns)
	if excludeError != nil {
		return nil, excludeError
	}
	return &Matcher{
		includes: includes,
		excludes: excludes,
		matchAll: len(includes) == 0,
	}, nil
}

func compilePatternSet(patterns []string) ([]compiledPattern, error) {
	deduplicated := utils.DeduplicatePatterns(patterns)
	compiled := make([]compiledPattern, 0, len(deduplicated))
	for _, rawPattern := range deduplicated {
		normalized := utils.NormalizePattern(rawPattern)
		normalized = strings.TrimSuffix(normalized, "/")
		if normalized == "" {
			continue
		}
		segments := strings.Split(normalized, "/")
		for _, segment := range segments {
			if segment == recursiveSegment {
				continue
			}
			if _, matchError := path.Match(segment, "probe"); matchError != nil {
				return nil, fmt.Errorf("malformed pattern %q: %w", rawPattern, matchError)
			}
		}
		compiled = append(compiled, compiledPattern{
			raw:      normalized,
			segments: segments,
			anchored: strings.Contains(normalized, "/"),
		})
	}
	return compiled, nil
}

// Included reports whether the file or directory at relativePath belongs in
// the digest. For directories the decision only reflects exclusion; inclusion
// of their files is decided per file.
func (matcher *Matcher) Included(relativePath string, isDir bool) bool {
	if matcher.Excluded(relativePath) {
		return false
	}
	if isDir {
		return true
	}
	if matcher.matchAll {
		return true
	}
	return matchesAny(matcher.includes, relativePath)
}

// Excluded reports whether relativePath, or any of its ancestor directories,
// matches an exclude pattern. Exclusion of a directory covers everything
// beneath it regardless of include patterns.
func (matcher *Matcher) Excluded(relativePath string) bool {
	normalized := strings.Trim(path.Clean(strings.ReplaceAll(relativePath, "\\", "/")), "/")
	if normalized == "." || normalized == "" {
		return false
	}
	segments := strings.Split(normalized, "/")
	for prefixLength := 1; prefixLength <= len(segments); prefixLength++ {
		candidate := strings.Join(segments[:prefixLength], "/")
		if matchesAny(matcher.excludes, candidate) {
			return true
		}
	}
	return false
}

func matchesAny(patterns []compiledPattern, relativePath string) bool {
	if len(patterns) == 0 {
		return false
	}
	pathSegments := strings.Split(relativePath, "/")
	baseName := pathSegments[len(pathSegments)-1]
	for _, candidate := range patterns {
		if candidate.anchored {
			if matchSegments(candidate.segments, pathSegments) {
				return true
			}
			continue
		}
		if matched, _ := path.Match(candidate.raw, baseName); matched {
			return true
		}
	}
	return false
}

// matchSegments aligns pattern segments against path segments, letting "**"
// absorb any number of them.
func matchSegments(patternSegments, pathSegments []string) bool {
	if len(patternSegments) == 0 {
		return len(pathSegments) == 0
	}
	if patternSegments[0] == recursiveSegment {
		for skipped := 0; skipped <= len(pathSegments); skipped++ {
			if matchSegments(patternSegments[1:], pathSegments[skipped:]) {
				return true
			}
		}
		return false
	}
	if len(pathSegments) == 0 {
		return false
	}
	matched, matchError := path.Match(patternSegments[0], pathSegments[0])
	if matchError != nil || !matched {
		return false
	}
	return matchSegments(patternSegments[1:], pathSegments[1:])
}
