// Package walker traverses a resolved repository root depth-first, applying
// pattern and size filters, and produces both the ordered file-entry sequence
// and the directory tree consumed by the renderer.
package walker

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	gitignore "github.com/monochromegane/go-gitignore"

	"github.com/temirov/gitdigest/internal/pattern"
	"github.com/temirov/gitdigest/internal/types"
	"github.com/temirov/gitdigest/internal/utils"
)

// Options configures one traversal.
type Options struct {
	// Root is the absolute directory to traverse.
	Root string
	// RootName names the root node of the rendered tree.
	RootName string
	// Matcher decides pattern-based inclusion. Required.
	Matcher *pattern.Matcher
	// MaxFileSize is the inclusive per-file size ceiling in bytes.
	MaxFileSize int64
	// UseGitignore honors a .gitignore file at the traversal root.
	UseGitignore bool
}

// Result holds the outcome of one traversal. Entries are in pre-order:
// within each directory subdirectories come first, then files, both
// alphabetically. The same ordering governs DirNode children, so the content
// block order matches the rendered tree top to bottom.
type Result struct {
	Entries []*types.FileEntry
	Root    *types.DirNode
}

type traversal struct {
	options       Options
	ignoreMatcher gitignore.IgnoreMatcher
	visited       map[string]struct{}
	entries       []*types.FileEntry
}

// Walk traverses options.Root and returns the entry sequence and tree.
// Per-file read and stat failures never abort the walk; they surface as
// entries with an unreadable skip reason.
func Walk(options Options) (*Result, error) {
	if options.Matcher == nil {
		return nil, fmt.Errorf("walker: matcher is required")
	}
	canonicalRoot, canonicalError := filepath.EvalSymlinks(options.Root)
	if canonicalError != nil {
		return nil, fmt.Errorf("walker: cannot resolve root %s: %w", options.Root, canonicalError)
	}

	walk := &traversal{
		options: options,
		visited: map[string]struct{}{canonicalRoot: {}},
	}
	if options.UseGitignore {
		gitignorePath := filepath.Join(options.Root, ".gitignore")
		if _, statError := os.Stat(gitignorePath); statError == nil {
			if matcher, gitignoreError := gitignore.NewGitIgnore(gitignorePath, "."); gitignoreError == nil {
				walk.ignoreMatcher = matcher
			}
		}
	}

	rootNode := &types.DirNode{Name: options.RootName}
	if walkError := walk.walkDirectory(options.Root, "", rootNode); walkError != nil {
		return nil, walkError
	}
	return &Result{Entries: walk.entries, Root: rootNode}, nil
}

// entryClass decides how a directory entry participates in the walk.
type entryClass int

const (
	entryClassDirectory entryClass = iota
	entryClassFile
	entryClassUnreadable
)

type classifiedFile struct {
	entry      os.DirEntry
	unreadable bool
}

func (walk *traversal) walkDirectory(absoluteDirectory, relativeDirectory string, node *types.DirNode) error {
	directoryEntries, readError := os.ReadDir(absoluteDirectory)
	if readError != nil {
		// The directory vanished or became unreadable mid-walk; its parent
		// already recorded it, so fail softly.
		return nil
	}

	var subdirectories []os.DirEntry
	var files []classifiedFile
	for _, directoryEntry := range directoryEntries {
		switch walk.classifyEntry(absoluteDirectory, directoryEntry) {
		case entryClassDirectory:
			subdirectories = append(subdirectories, directoryEntry)
		case entryClassUnreadable:
			// Dangling and revisited links sort among the files so entry
			// order and tree order stay alphabetical.
			files = append(files, classifiedFile{entry: directoryEntry, unreadable: true})
		default:
			files = append(files, classifiedFile{entry: directoryEntry})
		}
	}
	sortEntriesByName(subdirectories)
	sortClassifiedFilesByName(files)

	for _, directoryEntry := range subdirectories {
		walk.visitDirectory(absoluteDirectory, relativeDirectory, directoryEntry, node)
	}
	for _, file := range files {
		if file.unreadable {
			relativePath := joinRelative(relativeDirectory, file.entry.Name())
			if !walk.options.Matcher.Excluded(relativePath) {
				walk.recordUnreadable(node, relativePath, absoluteDirectory, file.entry.Name())
			}
			continue
		}
		walk.visitFile(absoluteDirectory, relativeDirectory, file.entry, node)
	}
	return nil
}

// classifyEntry resolves symbolic links up front: links to files walk as
// files, links to directories walk once (tracked by canonical path), and
// dangling or revisited links become unreadable leaves.
func (walk *traversal) classifyEntry(parentAbsolute string, directoryEntry os.DirEntry) entryClass {
	if directoryEntry.IsDir() {
		return entryClassDirectory
	}
	if directoryEntry.Type()&os.ModeSymlink == 0 {
		return entryClassFile
	}
	absolutePath := filepath.Join(parentAbsolute, directoryEntry.Name())
	targetInformation, statError := os.Stat(absolutePath)
	if statError != nil {
		return entryClassUnreadable
	}
	if !targetInformation.IsDir() {
		return entryClassFile
	}
	canonicalPath, canonicalError := filepath.EvalSymlinks(absolutePath)
	if canonicalError != nil {
		return entryClassUnreadable
	}
	if _, alreadyVisited := walk.visited[canonicalPath]; alreadyVisited {
		return entryClassUnreadable
	}
	walk.visited[canonicalPath] = struct{}{}
	return entryClassDirectory
}

func (walk *traversal) visitDirectory(parentAbsolute, parentRelative string, directoryEntry os.DirEntry, parentNode *types.DirNode) {
	entryName := directoryEntry.Name()
	if entryName == utils.GitDirectoryName {
		return
	}
	relativePath := joinRelative(parentRelative, entryName)
	absolutePath := filepath.Join(parentAbsolute, entryName)

	if walk.options.Matcher.Excluded(relativePath) {
		return
	}
	if walk.ignoreMatcher != nil && walk.ignoreMatcher.Match(relativePath, true) {
		return
	}

	childNode := &types.DirNode{Name: entryName}
	_ = walk.walkDirectory(absolutePath, relativePath, childNode)
	if !childNode.IsEmpty() {
		parentNode.Directories = append(parentNode.Directories, childNode)
	}
}

func (walk *traversal) visitFile(parentAbsolute, parentRelative string, directoryEntry os.DirEntry, parentNode *types.DirNode) {
	entryName := directoryEntry.Name()
	relativePath := joinRelative(parentRelative, entryName)
	absolutePath := filepath.Join(parentAbsolute, entryName)

	fileInformation, statError := os.Stat(absolutePath)
	if statError != nil {
		walk.recordUnreadable(parentNode, relativePath, parentAbsolute, entryName)
		return
	}

	entry := &types.FileEntry{
		RelativePath: relativePath,
		AbsolutePath: absolutePath,
		Size:         fileInformation.Size(),
	}

	switch {
	case walk.options.MaxFileSize > 0 && fileInformation.Size() > walk.options.MaxFileSize:
		entry.SkipReason = types.SkipReasonTooLarge
		parentNode.Files = append(parentNode.Files, entry)
	case !walk.options.Matcher.Included(relativePath, false),
		walk.ignoreMatcher != nil && walk.ignoreMatcher.Match(relativePath, false):
		entry.SkipReason = types.SkipReasonPatternExcluded
	case utils.IsFileBinary(absolutePath):
		entry.IsBinary = true
		entry.SkipReason = types.SkipReasonBinary
		parentNode.Files = append(parentNode.Files, entry)
	default:
		entry.IsIncluded = true
		entry.SkipReason = types.SkipReasonNone
		parentNode.Files = append(parentNode.Files, entry)
	}
	walk.entries = append(walk.entries, entry)
}

// recordUnreadable notes a path that dangled, cycled, or vanished mid-walk.
func (walk *traversal) recordUnreadable(parentNode *types.DirNode, relativePath, parentAbsolute, entryName string) {
	entry := &types.FileEntry{
		RelativePath: relativePath,
		AbsolutePath: filepath.Join(parentAbsolute, entryName),
		SkipReason:   types.SkipReasonUnreadable,
	}
	walk.entries = append(walk.entries, entry)
	parentNode.Files = append(parentNode.Files, entry)
}

func sortEntriesByName(directoryEntries []os.DirEntry) {
	sort.Slice(directoryEntries, func(firstIndex, secondIndex int) bool {
		return directoryEntries[firstIndex].Name() < directoryEntries[secondIndex].Name()
	})
}

func sortClassifiedFilesByName(files []classifiedFile) {
	sort.Slice(files, func(firstIndex, secondIndex int) bool {
		return files[firstIndex].entry.Name() < files[secondIndex].entry.Name()
	})
}

func joinRelative(parentRelative, entryName string) string {
	if parentRelative == "" {
		return entryName
	}
	return path.Join(parentRelative, entryName)
}
