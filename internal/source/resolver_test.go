package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/gitdigest/internal/source"
	"github.com/temirov/gitdigest/internal/types"
)

func TestIsRemote(t *testing.T) {
	testCases := []struct {
		name     string
		source   string
		expected bool
	}{
		{name: "https URL", source: "https://github.com/owner/repo", expected: true},
		{name: "http URL", source: "http://example.com/repo.git", expected: true},
		{name: "ssh shorthand", source: "git@github.com:owner/repo.git", expected: true},
		{name: "ssh scheme", source: "ssh://git@github.com/owner/repo.git", expected: true},
		{name: "relative path", source: "./project", expected: false},
		{name: "absolute path", source: "/srv/project", expected: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if actual := source.IsRemote(testCase.source); actual != testCase.expected {
				t.Fatalf("IsRemote(%q) = %v, expected %v", testCase.source, actual, testCase.expected)
			}
		})
	}
}

func TestRepositoryIdentifier(t *testing.T) {
	testCases := []struct {
		name     string
		source   string
		expected string
	}{
		{name: "https with git suffix", source: "https://github.com/owner/repo.git", expected: "owner/repo"},
		{name: "https without suffix", source: "https://github.com/owner/repo", expected: "owner/repo"},
		{name: "nested host path", source: "https://gitlab.example.com/group/sub/repo", expected: "sub/repo"},
		{name: "ssh shorthand", source: "git@github.com:owner/repo.git", expected: "owner/repo"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if actual := source.RepositoryIdentifier(testCase.source); actual != testCase.expected {
				t.Fatalf("RepositoryIdentifier(%q) = %q, expected %q", testCase.source, actual, testCase.expected)
			}
		})
	}
}

func TestResolveLocalDirectory(t *testing.T) {
	rootDirectory := t.TempDir()
	if writeError := os.WriteFile(filepath.Join(rootDirectory, "README.md"), []byte("hello"), 0o600); writeError != nil {
		t.Fatalf("write file: %v", writeError)
	}

	resolvedRoot, resolveError := source.Resolve(context.Background(), types.Query{Source: rootDirectory, Subpath: types.DefaultSubpath})
	if resolveError != nil {
		t.Fatalf("resolve: %v", resolveError)
	}
	defer resolvedRoot.Release()

	if resolvedRoot.SourceType != types.SourceTypeLocal {
		t.Fatalf("expected local source type, got %s", resolvedRoot.SourceType)
	}
	if resolvedRoot.Subpath != types.DefaultSubpath {
		t.Fatalf("expected default subpath, got %s", resolvedRoot.Subpath)
	}
	entries, readError := os.ReadDir(resolvedRoot.Path)
	if readError != nil || len(entries) != 1 {
		t.Fatalf("expected the resolved root to expose the directory contents")
	}
}

func TestResolveLocalRepositoryIsDirectorySlug(t *testing.T) {
	parentDirectory := t.TempDir()
	projectDirectory := filepath.Join(parentDirectory, "local-project")
	if mkdirError := os.Mkdir(projectDirectory, 0o755); mkdirError != nil {
		t.Fatalf("mkdir: %v", mkdirError)
	}

	resolvedRoot, resolveError := source.Resolve(context.Background(), types.Query{Source: projectDirectory, Subpath: types.DefaultSubpath})
	if resolveError != nil {
		t.Fatalf("resolve: %v", resolveError)
	}
	defer resolvedRoot.Release()

	if resolvedRoot.Repository != "local-project" {
		t.Fatalf("expected repository slug local-project, got %q", resolvedRoot.Repository)
	}
	if filepath.Base(resolvedRoot.Path) != "local-project" || !filepath.IsAbs(resolvedRoot.Path) {
		t.Fatalf("expected an absolute path ending in local-project, got %q", resolvedRoot.Path)
	}
}

func TestResolveLocalMissingPathIsNotFound(t *testing.T) {
	missingPath := filepath.Join(t.TempDir(), "does-not-exist")
	_, resolveError := source.Resolve(context.Background(), types.Query{Source: missingPath, Subpath: types.DefaultSubpath})
	if resolveError == nil {
		t.Fatalf("expected resolution of a missing path to fail")
	}
	if types.KindOf(resolveError) != types.ErrorKindSource {
		t.Fatalf("expected a source error, got kind %s", types.KindOf(resolveError))
	}
	if !types.IsNotFound(resolveError) {
		t.Fatalf("expected a not-found source error")
	}
}

func TestResolveLocalFileRejected(t *testing.T) {
	rootDirectory := t.TempDir()
	filePath := filepath.Join(rootDirectory, "file.txt")
	if writeError := os.WriteFile(filePath, []byte("data"), 0o600); writeError != nil {
		t.Fatalf("write file: %v", writeError)
	}
	_, resolveError := source.Resolve(context.Background(), types.Query{Source: filePath, Subpath: types.DefaultSubpath})
	if resolveError == nil {
		t.Fatalf("expected resolution of a plain file to fail")
	}
	if types.KindOf(resolveError) != types.ErrorKindSource {
		t.Fatalf("expected a source error, got kind %s", types.KindOf(resolveError))
	}
}

func TestResolveSubpath(t *testing.T) {
	rootDirectory := t.TempDir()
	nestedDirectory := filepath.Join(rootDirectory, "src", "app")
	if mkdirError := os.MkdirAll(nestedDirectory, 0o755); mkdirError != nil {
		t.Fatalf("mkdir: %v", mkdirError)
	}

	resolvedRoot, resolveError := source.Resolve(context.Background(), types.Query{Source: rootDirectory, Subpath: "src/app"})
	if resolveError != nil {
		t.Fatalf("resolve: %v", resolveError)
	}
	defer resolvedRoot.Release()
	if resolvedRoot.Subpath != "/src/app" {
		t.Fatalf("expected normalized subpath /src/app, got %s", resolvedRoot.Subpath)
	}
	if resolvedRoot.Path != filepath.Join(rootDirectory, "src", "app") {
		t.Fatalf("expected root narrowed to subpath, got %s", resolvedRoot.Path)
	}

	_, missingError := source.Resolve(context.Background(), types.Query{Source: rootDirectory, Subpath: "src/missing"})
	if missingError == nil || !types.IsNotFound(missingError) {
		t.Fatalf("expected not-found error for missing subpath, got %v", missingError)
	}
}

func TestResolveLocalRootGuard(t *testing.T) {
	allowedRoot := t.TempDir()
	outsideDirectory := t.TempDir()

	_, resolveError := source.Resolve(context.Background(), types.Query{
		Source:    outsideDirectory,
		Subpath:   types.DefaultSubpath,
		LocalRoot: allowedRoot,
	})
	if resolveError == nil {
		t.Fatalf("expected a path outside the allowed root to be rejected")
	}
	if types.KindOf(resolveError) != types.ErrorKindSource {
		t.Fatalf("expected a source error, got kind %s", types.KindOf(resolveError))
	}

	insideDirectory := filepath.Join(allowedRoot, "inside")
	if mkdirError := os.Mkdir(insideDirectory, 0o755); mkdirError != nil {
		t.Fatalf("mkdir: %v", mkdirError)
	}
	resolvedRoot, insideError := source.Resolve(context.Background(), types.Query{
		Source:    insideDirectory,
		Subpath:   types.DefaultSubpath,
		LocalRoot: allowedRoot,
	})
	if insideError != nil {
		t.Fatalf("resolve inside allowed root: %v", insideError)
	}
	defer resolvedRoot.Release()
}

func TestResolveUnsupportedScheme(t *testing.T) {
	_, resolveError := source.Resolve(context.Background(), types.Query{Source: "ftp://example.com/repo", Subpath: types.DefaultSubpath})
	if resolveError == nil {
		t.Fatalf("expected unsupported scheme to fail")
	}
	var digestError *types.Error
	if !errors.As(resolveError, &digestError) || digestError.Kind != types.ErrorKindSource {
		t.Fatalf("expected a source error, got %v", resolveError)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	released := 0
	root := types.NewResolvedRoot("/tmp/example", types.SourceTypeRemote, "owner/repo", "main", types.DefaultSubpath, func() error {
		released++
		return nil
	})
	if releaseError := root.Release(); releaseError != nil {
		t.Fatalf("release: %v", releaseError)
	}
	if releaseError := root.Release(); releaseError != nil {
		t.Fatalf("second release: %v", releaseError)
	}
	if released != 1 {
		t.Fatalf("expected release to run once, ran %d times", released)
	}
}
