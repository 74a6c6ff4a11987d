// Package aggregate reads every included file and concatenates the decoded
// text into the single content block of a digest.
package aggregate

import (
	"context"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/temirov/gitdigest/internal/types"
	"github.com/temirov/gitdigest/internal/utils"
)

// blockSeparatorBar delimits file blocks inside the aggregated content.
const blockSeparatorBar = "================================================"

// fileHeaderPrefix introduces the relative path of each file block.
const fileHeaderPrefix = "FILE: "

// Result pairs the aggregated content with the entries that contributed to it.
// Entries that turn out to be unreadable at aggregation time are demoted in
// place, never aborting the batch.
type Result struct {
	Content       string
	AnalyzedFiles []*types.FileEntry
	AnalyzedBytes int64
}

// Aggregate reads the included entries and concatenates their decoded text.
// Reads run in parallel bounded by GOMAXPROCS, but blocks are assembled in the
// walker's pre-order sequence so the output is byte-stable regardless of
// completion order.
func Aggregate(requestContext context.Context, entries []*types.FileEntry) (*Result, error) {
	includedEntries := make([]*types.FileEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsIncluded {
			includedEntries = append(includedEntries, entry)
		}
	}

	decodedBlocks := make([]string, len(includedEntries))
	readGroup, groupContext := errgroup.WithContext(requestContext)
	readGroup.SetLimit(runtime.GOMAXPROCS(0))

	for entryIndex, entry := range includedEntries {
		entryIndex, entry := entryIndex, entry
		readGroup.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			fileBytes, readError := os.ReadFile(entry.AbsolutePath)
			if readError != nil {
				// The file became unreadable between the walk and the read.
				entry.IsIncluded = false
				entry.SkipReason = types.SkipReasonUnreadable
				return nil
			}
			if utils.IsBinary(fileBytes) {
				entry.IsIncluded = false
				entry.IsBinary = true
				entry.SkipReason = types.SkipReasonBinary
				return nil
			}
			decodedBlocks[entryIndex] = utils.DecodeText(fileBytes)
			return nil
		})
	}
	if groupError := readGroup.Wait(); groupError != nil {
		return nil, groupError
	}

	var contentBuilder strings.Builder
	var analyzedFiles []*types.FileEntry
	var analyzedBytes int64
	for entryIndex, entry := range includedEntries {
		if !entry.IsIncluded {
			continue
		}
		writeFileBlock(&contentBuilder, entry.RelativePath, decodedBlocks[entryIndex])
		analyzedFiles = append(analyzedFiles, entry)
		analyzedBytes += entry.Size
	}

	return &Result{
		Content:       contentBuilder.String(),
		AnalyzedFiles: analyzedFiles,
		AnalyzedBytes: analyzedBytes,
	}, nil
}

// writeFileBlock appends one self-delimited file block: a bar-framed header
// naming the relative path, a blank line, the text, and a blank separator line.
func writeFileBlock(contentBuilder *strings.Builder, relativePath, text string) {
	contentBuilder.WriteString(blockSeparatorBar)
	contentBuilder.WriteString("\n")
	contentBuilder.WriteString(fileHeaderPrefix)
	contentBuilder.WriteString(relativePath)
	contentBuilder.WriteString("\n")
	contentBuilder.WriteString(blockSeparatorBar)
	contentBuilder.WriteString("\n\n")
	contentBuilder.WriteString(text)
	contentBuilder.WriteString("\n\n")
}
