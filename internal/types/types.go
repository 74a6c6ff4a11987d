// Package types defines every cross-package data structure used by the gitdigest engine.
package types

const (
	// SourceTypeRemote marks a digest produced from a cloned remote repository.
	SourceTypeRemote = "remote"
	// SourceTypeLocal marks a digest produced from a local directory.
	SourceTypeLocal = "local"

	// DefaultSubpath is the subpath value meaning "ingest the whole repository".
	DefaultSubpath = "/"

	// DefaultMaxFileSize is the per-file size ceiling applied when a query does not set one.
	DefaultMaxFileSize = 10 * 1024 * 1024
	// MinimumMaxFileSize is the smallest accepted per-file size ceiling.
	MinimumMaxFileSize = 1024
	// MaximumMaxFileSize is the largest accepted per-file size ceiling.
	MaximumMaxFileSize = 100 * 1024 * 1024
)

// SkipReason explains why a file was left out of the digest content.
type SkipReason string

const (
	SkipReasonNone            SkipReason = "none"
	SkipReasonTooLarge        SkipReason = "too_large"
	SkipReasonBinary          SkipReason = "binary"
	SkipReasonPatternExcluded SkipReason = "pattern_excluded"
	SkipReasonUnreadable      SkipReason = "unreadable"
)

// Query is the immutable input configuration for one digest computation.
type Query struct {
	Source          string
	Branch          string
	Subpath         string
	IncludePatterns []string
	ExcludePatterns []string
	MaxFileSize     int64
	UseGitignore    bool
	// LocalRoot restricts local sources to paths under this directory.
	// Empty means no restriction beyond existence checks.
	LocalRoot string
}

// ResolvedRoot is a local, read-only filesystem root produced by the source resolver.
// Release must be called exactly once when the computation finishes, on every exit path.
type ResolvedRoot struct {
	Path       string
	SourceType string
	Repository string
	Branch     string
	Subpath    string

	release func() error
}

// NewResolvedRoot constructs a ResolvedRoot whose cleanup runs releaseFunc.
// A nil releaseFunc means the root owns no temporary storage.
func NewResolvedRoot(path, sourceType, repository, branch, subpath string, releaseFunc func() error) *ResolvedRoot {
	return &ResolvedRoot{
		Path:       path,
		SourceType: sourceType,
		Repository: repository,
		Branch:     branch,
		Subpath:    subpath,
		release:    releaseFunc,
	}
}

// Release frees any temporary storage owned by the root. Calling it more than
// once, or on a root that owns no storage, is a no-op.
func (root *ResolvedRoot) Release() error {
	if root == nil || root.release == nil {
		return nil
	}
	releaseFunc := root.release
	root.release = nil
	return releaseFunc()
}

// FileEntry records one file discovered during traversal. Entries are
// immutable once the walk that produced them returns.
type FileEntry struct {
	RelativePath string
	AbsolutePath string
	Size         int64
	IsBinary     bool
	IsIncluded   bool
	SkipReason   SkipReason
}

// DirNode is one directory of the traversed tree. Subdirectories are ordered
// before files, both alphabetically and case-sensitively.
type DirNode struct {
	Name        string
	Directories []*DirNode
	Files       []*FileEntry
}

// IsEmpty reports whether the node has no children.
func (node *DirNode) IsEmpty() bool {
	if node == nil {
		return true
	}
	return len(node.Directories) == 0 && len(node.Files) == 0
}

// Digest is the immutable output of one ingestion.
type Digest struct {
	Summary string
	Tree    string
	Content string

	SourceType string
	Repository string
	Branch     string
	Subpath    string
}
