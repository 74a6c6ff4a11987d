// Package summary renders the human-readable summary block of a digest.
package summary

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/gitdigest/internal/types"
)

// Field labels are a loose parsing contract for downstream consumers; the
// line order never changes.
const (
	repositoryLineFormat = "Repository: %s"
	filesLineFormat      = "Files analyzed: %d"
	tokensLineFormat     = "Estimated tokens: %s"
	branchLineFormat     = "Branch: %s"
	subpathLineFormat    = "Subpath: %s"
)

// Input carries everything the summary line set needs. Branch is only set
// when the caller requested a specific branch, so default-branch digests stay
// free of a branch line.
type Input struct {
	Repository string
	Branch     string
	Subpath    string
	FileCount  int
	TokenCount int
}

// Render produces the fixed-format summary: repository identity, analyzed
// file count, estimated token count, then branch and subpath lines when they
// differ from their defaults.
func Render(input Input) string {
	var summaryBuilder strings.Builder
	summaryBuilder.WriteString(fmt.Sprintf(repositoryLineFormat, input.Repository))
	summaryBuilder.WriteString("\n")
	summaryBuilder.WriteString(fmt.Sprintf(filesLineFormat, input.FileCount))
	summaryBuilder.WriteString("\n")
	summaryBuilder.WriteString(fmt.Sprintf(tokensLineFormat, FormatTokenCount(input.TokenCount)))
	if input.Branch != "" {
		summaryBuilder.WriteString("\n")
		summaryBuilder.WriteString(fmt.Sprintf(branchLineFormat, input.Branch))
	}
	if input.Subpath != "" && input.Subpath != types.DefaultSubpath {
		summaryBuilder.WriteString("\n")
		summaryBuilder.WriteString(fmt.Sprintf(subpathLineFormat, input.Subpath))
	}
	summaryBuilder.WriteString("\n")
	return summaryBuilder.String()
}

// FormatTokenCount abbreviates a token count: every value from 1200 through
// 1299 renders as "1.2k", 3_450_000 as "3.4M", and anything below a thousand
// as the plain integer. The extra precision is truncated, not rounded, so the
// abbreviation never overstates the estimate.
func FormatTokenCount(tokenCount int) string {
	switch {
	case tokenCount >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(tokenCount/100_000)/10)
	case tokenCount >= 1_000:
		return fmt.Sprintf("%.1fk", float64(tokenCount/100)/10)
	default:
		return strconv.Itoa(tokenCount)
	}
}
