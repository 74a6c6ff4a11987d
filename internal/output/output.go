// Package output renders a computed digest for delivery: plain text or a
// JSON envelope, written to stdout, a file, or the system clipboard.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/temirov/gitdigest/internal/types"
)

const (
	// FormatRaw emits summary, tree, and content as one plain-text document.
	FormatRaw = "raw"
	// FormatJSON emits the digest inside a JSON envelope.
	FormatJSON = "json"

	// StdoutTarget selects standard output as the destination.
	StdoutTarget = "-"
)

// Envelope is the JSON shape of a rendered digest.
type Envelope struct {
	Success  bool              `json:"success"`
	Data     map[string]string `json:"data,omitempty"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RenderRaw concatenates summary, tree, and content into the canonical
// plain-text digest document.
func RenderRaw(digest *types.Digest) string {
	var documentBuilder strings.Builder
	documentBuilder.WriteString(digest.Summary)
	documentBuilder.WriteString("\n")
	documentBuilder.WriteString(digest.Tree)
	documentBuilder.WriteString("\n")
	documentBuilder.WriteString(digest.Content)
	return documentBuilder.String()
}

// RenderJSON marshals the digest into the response envelope shape.
func RenderJSON(digest *types.Digest) (string, error) {
	envelope := Envelope{
		Success: true,
		Data: map[string]string{
			"summary": digest.Summary,
			"tree":    digest.Tree,
			"content": digest.Content,
		},
		Metadata: map[string]string{
			"source_type": digest.SourceType,
			"repository":  digest.Repository,
			"branch":      digest.Branch,
			"subpath":     digest.Subpath,
		},
	}
	encoded, marshalError := json.MarshalIndent(envelope, "", "  ")
	if marshalError != nil {
		return "", fmt.Errorf("marshal digest envelope: %w", marshalError)
	}
	return string(encoded), nil
}

// RenderErrorJSON marshals a failure into the response envelope shape.
func RenderErrorJSON(digestError error) (string, error) {
	envelope := Envelope{Success: false, Error: digestError.Error()}
	encoded, marshalError := json.MarshalIndent(envelope, "", "  ")
	if marshalError != nil {
		return "", fmt.Errorf("marshal error envelope: %w", marshalError)
	}
	return string(encoded), nil
}

// Render dispatches on the requested format.
func Render(digest *types.Digest, format string) (string, error) {
	switch format {
	case FormatRaw, "":
		return RenderRaw(digest), nil
	case FormatJSON:
		return RenderJSON(digest)
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

// Write delivers the rendered document to target: standard output when target
// is empty or StdoutTarget, otherwise the named file.
func Write(document, target string) error {
	if target == "" || target == StdoutTarget {
		_, writeError := fmt.Fprintln(os.Stdout, document)
		return writeError
	}
	if writeError := os.WriteFile(target, []byte(document), 0o644); writeError != nil {
		return fmt.Errorf("write digest to %s: %w", target, writeError)
	}
	return nil
}

// CopyToClipboard places the rendered document on the system clipboard.
func CopyToClipboard(document string) error {
	if copyError := clipboard.WriteAll(document); copyError != nil {
		return fmt.Errorf("copy digest to clipboard: %w", copyError)
	}
	return nil
}
