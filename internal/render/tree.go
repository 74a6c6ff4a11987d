// Package render produces the canonical ASCII directory tree of a digest.
package render

import (
	"path"
	"strings"

	"github.com/temirov/gitdigest/internal/types"
)

// The glyph set below is a formatting contract verified by golden tests.
const (
	treeHeaderLine       = "Directory structure:"
	teeConnector         = "├── "
	cornerConnector      = "└── "
	continuationPrefix   = "│   "
	terminalPrefix       = "    "
	directorySuffix      = "/"
	tooLargeAnnotation   = " [too large]"
	unreadableAnnotation = " [unreadable]"
)

// Tree renders the directory structure as box-drawing ASCII art: a header
// line, one root line naming the repository, and one line per visible entry.
// Directories precede files, the last child of every directory uses the
// corner connector, and filtered-but-visible files carry an annotation.
func Tree(rootNode *types.DirNode) string {
	var treeBuilder strings.Builder
	treeBuilder.WriteString(treeHeaderLine)
	treeBuilder.WriteString("\n")
	treeBuilder.WriteString(cornerConnector)
	treeBuilder.WriteString(rootNode.Name)
	treeBuilder.WriteString(directorySuffix)
	treeBuilder.WriteString("\n")
	renderChildren(&treeBuilder, rootNode, terminalPrefix)
	return treeBuilder.String()
}

func renderChildren(treeBuilder *strings.Builder, node *types.DirNode, prefix string) {
	childCount := len(node.Directories) + len(node.Files)
	childIndex := 0

	for _, directory := range node.Directories {
		childIndex++
		connector, childPrefix := connectorFor(childIndex == childCount, prefix)
		treeBuilder.WriteString(prefix)
		treeBuilder.WriteString(connector)
		treeBuilder.WriteString(directory.Name)
		treeBuilder.WriteString(directorySuffix)
		treeBuilder.WriteString("\n")
		renderChildren(treeBuilder, directory, childPrefix)
	}
	for _, file := range node.Files {
		childIndex++
		connector, _ := connectorFor(childIndex == childCount, prefix)
		treeBuilder.WriteString(prefix)
		treeBuilder.WriteString(connector)
		treeBuilder.WriteString(path.Base(file.RelativePath))
		treeBuilder.WriteString(annotationFor(file))
		treeBuilder.WriteString("\n")
	}
}

func connectorFor(isLastChild bool, prefix string) (string, string) {
	if isLastChild {
		return cornerConnector, prefix + terminalPrefix
	}
	return teeConnector, prefix + continuationPrefix
}

func annotationFor(file *types.FileEntry) string {
	switch file.SkipReason {
	case types.SkipReasonTooLarge:
		return tooLargeAnnotation
	case types.SkipReasonUnreadable:
		return unreadableAnnotation
	default:
		return ""
	}
}
