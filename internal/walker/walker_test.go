package walker_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/gitdigest/internal/pattern"
	"github.com/temirov/gitdigest/internal/types"
	"github.com/temirov/gitdigest/internal/walker"
)

func mustMatcher(t *testing.T, includePatterns, excludePatterns []string) *pattern.Matcher {
	t.Helper()
	matcher, compileError := pattern.Compile(includePatterns, excludePatterns)
	if compileError != nil {
		t.Fatalf("compile matcher: %v", compileError)
	}
	return matcher
}

func writeFile(t *testing.T, root string, relativePath string, content []byte) {
	t.Helper()
	absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
	if mkdirError := os.MkdirAll(filepath.Dir(absolutePath), 0o755); mkdirError != nil {
		t.Fatalf("mkdir for %s: %v", relativePath, mkdirError)
	}
	if writeError := os.WriteFile(absolutePath, content, 0o600); writeError != nil {
		t.Fatalf("write %s: %v", relativePath, writeError)
	}
}

func entryByPath(entries []*types.FileEntry, relativePath string) *types.FileEntry {
	for _, entry := range entries {
		if entry.RelativePath == relativePath {
			return entry
		}
	}
	return nil
}

func TestWalkOrdersDirectoriesBeforeFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "zeta.txt", []byte("z"))
	writeFile(t, root, "alpha/inner.txt", []byte("i"))
	writeFile(t, root, "beta/deep/leaf.txt", []byte("l"))
	writeFile(t, root, "apple.txt", []byte("a"))

	result, walkError := walker.Walk(walker.Options{
		Root:        root,
		RootName:    "repo",
		Matcher:     mustMatcher(t, nil, nil),
		MaxFileSize: types.DefaultMaxFileSize,
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}

	expectedOrder := []string{"alpha/inner.txt", "beta/deep/leaf.txt", "apple.txt", "zeta.txt"}
	if len(result.Entries) != len(expectedOrder) {
		t.Fatalf("expected %d entries, got %d", len(expectedOrder), len(result.Entries))
	}
	for index, expectedPath := range expectedOrder {
		if result.Entries[index].RelativePath != expectedPath {
			t.Fatalf("entry %d: expected %s, got %s", index, expectedPath, result.Entries[index].RelativePath)
		}
	}

	if len(result.Root.Directories) != 2 || result.Root.Directories[0].Name != "alpha" || result.Root.Directories[1].Name != "beta" {
		t.Fatalf("expected alphabetical subdirectories alpha, beta")
	}
	if len(result.Root.Files) != 2 || result.Root.Files[0].RelativePath != "apple.txt" {
		t.Fatalf("expected alphabetical root files starting with apple.txt")
	}
}

func TestWalkSizeBoundary(t *testing.T) {
	root := t.TempDir()
	atLimit := make([]byte, 64)
	overLimit := make([]byte, 65)
	for index := range atLimit {
		atLimit[index] = 'a'
	}
	for index := range overLimit {
		overLimit[index] = 'b'
	}
	writeFile(t, root, "at_limit.txt", atLimit)
	writeFile(t, root, "over_limit.txt", overLimit)

	result, walkError := walker.Walk(walker.Options{
		Root:        root,
		RootName:    "repo",
		Matcher:     mustMatcher(t, nil, nil),
		MaxFileSize: 64,
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}

	atLimitEntry := entryByPath(result.Entries, "at_limit.txt")
	if atLimitEntry == nil || !atLimitEntry.IsIncluded {
		t.Fatalf("expected file of exactly the size limit to be included")
	}
	overLimitEntry := entryByPath(result.Entries, "over_limit.txt")
	if overLimitEntry == nil || overLimitEntry.IsIncluded || overLimitEntry.SkipReason != types.SkipReasonTooLarge {
		t.Fatalf("expected file one byte over the limit to be skipped as too large")
	}
	if len(result.Root.Files) != 2 {
		t.Fatalf("expected the oversized file to remain visible in the tree")
	}
}

func TestWalkBinaryFilesStayInTreeOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", []byte("readme text content"))
	writeFile(t, root, "data.bin", []byte{0x01, 0x00, 0x02, 0x03})

	result, walkError := walker.Walk(walker.Options{
		Root:        root,
		RootName:    "repo",
		Matcher:     mustMatcher(t, nil, nil),
		MaxFileSize: types.DefaultMaxFileSize,
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}

	binaryEntry := entryByPath(result.Entries, "data.bin")
	if binaryEntry == nil || !binaryEntry.IsBinary || binaryEntry.IsIncluded {
		t.Fatalf("expected data.bin to be classified binary and excluded from content")
	}
	if binaryEntry.SkipReason != types.SkipReasonBinary {
		t.Fatalf("expected binary skip reason, got %s", binaryEntry.SkipReason)
	}
	if len(result.Root.Files) != 2 {
		t.Fatalf("expected both files in the tree, got %d", len(result.Root.Files))
	}
}

func TestWalkPatternExcludedFilesLeaveTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.py", []byte("print()"))
	writeFile(t, root, "test_app.py", []byte("print()"))
	writeFile(t, root, "generated/out.py", []byte("print()"))

	result, walkError := walker.Walk(walker.Options{
		Root:        root,
		RootName:    "repo",
		Matcher:     mustMatcher(t, []string{"*.py"}, []string{"test_*.py", "generated"}),
		MaxFileSize: types.DefaultMaxFileSize,
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}

	excludedEntry := entryByPath(result.Entries, "test_app.py")
	if excludedEntry == nil || excludedEntry.SkipReason != types.SkipReasonPatternExcluded {
		t.Fatalf("expected test_app.py to be pattern excluded")
	}
	if entryByPath(result.Entries, "generated/out.py") != nil {
		t.Fatalf("expected the excluded directory to be pruned entirely")
	}
	if len(result.Root.Files) != 1 || result.Root.Files[0].RelativePath != "app.py" {
		t.Fatalf("expected only app.py in the tree")
	}
	if len(result.Root.Directories) != 0 {
		t.Fatalf("expected pruned directory to be omitted from the tree")
	}
}

func TestWalkHiddenEntriesAreTraversed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".env", []byte("SECRET=1"))
	writeFile(t, root, ".config/settings.toml", []byte("key = 1"))

	result, walkError := walker.Walk(walker.Options{
		Root:        root,
		RootName:    "repo",
		Matcher:     mustMatcher(t, nil, nil),
		MaxFileSize: types.DefaultMaxFileSize,
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}
	if entryByPath(result.Entries, ".env") == nil {
		t.Fatalf("expected hidden file to be traversed")
	}
	if entryByPath(result.Entries, ".config/settings.toml") == nil {
		t.Fatalf("expected file inside hidden directory to be traversed")
	}
}

func TestWalkSkipsGitMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/HEAD", []byte("ref: refs/heads/main"))
	writeFile(t, root, "main.go", []byte("package main"))

	result, walkError := walker.Walk(walker.Options{
		Root:        root,
		RootName:    "repo",
		Matcher:     mustMatcher(t, nil, nil),
		MaxFileSize: types.DefaultMaxFileSize,
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}
	if entryByPath(result.Entries, ".git/HEAD") != nil {
		t.Fatalf("expected git metadata to be skipped")
	}
}

func TestWalkHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", []byte("*.log\nbuild/\n"))
	writeFile(t, root, "app.log", []byte("log line"))
	writeFile(t, root, "build/out.txt", []byte("artifact"))
	writeFile(t, root, "main.go", []byte("package main"))

	result, walkError := walker.Walk(walker.Options{
		Root:         root,
		RootName:     "repo",
		Matcher:      mustMatcher(t, nil, nil),
		MaxFileSize:  types.DefaultMaxFileSize,
		UseGitignore: true,
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}

	logEntry := entryByPath(result.Entries, "app.log")
	if logEntry == nil || logEntry.SkipReason != types.SkipReasonPatternExcluded {
		t.Fatalf("expected gitignored file to be pattern excluded")
	}
	if entryByPath(result.Entries, "build/out.txt") != nil {
		t.Fatalf("expected gitignored directory to be pruned")
	}
	if mainEntry := entryByPath(result.Entries, "main.go"); mainEntry == nil || !mainEntry.IsIncluded {
		t.Fatalf("expected main.go to remain included")
	}
}

func TestWalkUnreadableLinksSortAmongFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "aaa.txt", []byte("a"))
	writeFile(t, root, "mmm.txt", []byte("m"))
	if symlinkError := os.Symlink(filepath.Join(root, "missing-target"), filepath.Join(root, "bbb-link")); symlinkError != nil {
		t.Skipf("symlinks unavailable: %v", symlinkError)
	}
	if symlinkError := os.Symlink(root, filepath.Join(root, "zzz-cycle")); symlinkError != nil {
		t.Skipf("symlinks unavailable: %v", symlinkError)
	}

	result, walkError := walker.Walk(walker.Options{
		Root:        root,
		RootName:    "repo",
		Matcher:     mustMatcher(t, nil, nil),
		MaxFileSize: types.DefaultMaxFileSize,
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}

	expectedOrder := []string{"aaa.txt", "bbb-link", "mmm.txt", "zzz-cycle"}
	if len(result.Root.Files) != len(expectedOrder) {
		t.Fatalf("expected %d root files, got %d", len(expectedOrder), len(result.Root.Files))
	}
	for index, expectedPath := range expectedOrder {
		if result.Root.Files[index].RelativePath != expectedPath {
			t.Fatalf("root file %d: expected %s, got %s", index, expectedPath, result.Root.Files[index].RelativePath)
		}
		if result.Entries[index].RelativePath != expectedPath {
			t.Fatalf("entry %d: expected %s, got %s", index, expectedPath, result.Entries[index].RelativePath)
		}
	}
	if result.Root.Files[1].SkipReason != types.SkipReasonUnreadable || result.Root.Files[3].SkipReason != types.SkipReasonUnreadable {
		t.Fatalf("expected dangling and cycling links to be unreadable")
	}
}

func TestWalkBreaksSymlinkCycles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "nested/file.txt", []byte("data"))
	cyclePath := filepath.Join(root, "nested", "cycle")
	if symlinkError := os.Symlink(root, cyclePath); symlinkError != nil {
		t.Skipf("symlinks unavailable: %v", symlinkError)
	}
	danglingPath := filepath.Join(root, "dangling")
	if symlinkError := os.Symlink(filepath.Join(root, "missing-target"), danglingPath); symlinkError != nil {
		t.Skipf("symlinks unavailable: %v", symlinkError)
	}

	result, walkError := walker.Walk(walker.Options{
		Root:        root,
		RootName:    "repo",
		Matcher:     mustMatcher(t, nil, nil),
		MaxFileSize: types.DefaultMaxFileSize,
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}

	cycleEntry := entryByPath(result.Entries, "nested/cycle")
	if cycleEntry == nil || cycleEntry.SkipReason != types.SkipReasonUnreadable {
		t.Fatalf("expected the symlink cycle to fail softly as unreadable")
	}
	danglingEntry := entryByPath(result.Entries, "dangling")
	if danglingEntry == nil || danglingEntry.SkipReason != types.SkipReasonUnreadable {
		t.Fatalf("expected the dangling symlink to fail softly as unreadable")
	}
	if fileEntry := entryByPath(result.Entries, "nested/file.txt"); fileEntry == nil || !fileEntry.IsIncluded {
		t.Fatalf("expected the regular file to survive the cycle")
	}
}
