// Package source turns a digest source string into a local, read-only
// filesystem root. Remote URLs are cloned shallowly into per-request temporary
// storage that the returned root releases on every exit path; local paths are
// canonicalized in place without copying.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/temirov/gitdigest/internal/types"
)

const (
	clonedDirectoryPattern = "gitdigest-clone-*"
	gitURLSuffix           = ".git"
	sshShorthandPrefix     = "git@"
)

var supportedRemoteSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
	"ssh":   {},
	"git":   {},
}

// IsRemote reports whether the source string names a remote repository rather
// than a local path.
func IsRemote(sourceValue string) bool {
	if strings.HasPrefix(sourceValue, sshShorthandPrefix) {
		return true
	}
	schemeSeparatorIndex := strings.Index(sourceValue, "://")
	return schemeSeparatorIndex > 0
}

// Resolve acquires the filesystem root for the query. Remote sources are
// cloned; local sources are validated and canonicalized. On failure no
// temporary storage is left behind.
func Resolve(requestContext context.Context, query types.Query) (*types.ResolvedRoot, error) {
	if strings.TrimSpace(query.Source) == "" {
		return nil, types.NewSourceError("source is empty", nil, true)
	}
	if IsRemote(query.Source) {
		return resolveRemote(requestContext, query)
	}
	return resolveLocal(query)
}

func resolveRemote(requestContext context.Context, query types.Query) (*types.ResolvedRoot, error) {
	if schemeError := validateRemoteScheme(query.Source); schemeError != nil {
		return nil, schemeError
	}

	temporaryDirectory, temporaryError := os.MkdirTemp("", clonedDirectoryPattern)
	if temporaryError != nil {
		return nil, types.NewEngineError("failed to create temporary clone directory", temporaryError)
	}
	releaseStorage := func() error { return os.RemoveAll(temporaryDirectory) }

	cloneOptions := &git.CloneOptions{
		URL:          query.Source,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
		ReferenceName: func() plumbing.ReferenceName {
			if query.Branch != "" {
				return plumbing.NewBranchReferenceName(query.Branch)
			}
			return plumbing.HEAD
		}(),
	}

	clonedRepository, cloneError := git.PlainCloneContext(requestContext, temporaryDirectory, false, cloneOptions)
	if cloneError != nil {
		_ = releaseStorage()
		return nil, classifyCloneError(query, cloneError)
	}

	resolvedBranch := query.Branch
	if resolvedBranch == "" {
		headReference, headError := clonedRepository.Head()
		if headError == nil {
			resolvedBranch = headReference.Name().Short()
		}
	}

	root := types.NewResolvedRoot(
		temporaryDirectory,
		types.SourceTypeRemote,
		RepositoryIdentifier(query.Source),
		resolvedBranch,
		normalizeSubpath(query.Subpath),
		releaseStorage,
	)
	if subpathError := applySubpath(root); subpathError != nil {
		_ = root.Release()
		return nil, subpathError
	}
	return root, nil
}

func validateRemoteScheme(sourceValue string) error {
	if strings.HasPrefix(sourceValue, sshShorthandPrefix) {
		return nil
	}
	schemeSeparatorIndex := strings.Index(sourceValue, "://")
	scheme := strings.ToLower(sourceValue[:schemeSeparatorIndex])
	if _, supported := supportedRemoteSchemes[scheme]; !supported {
		return types.NewSourceError(fmt.Sprintf("unsupported URL scheme %q", scheme), nil, false)
	}
	return nil
}

// classifyCloneError distinguishes a missing repository or branch from
// transient network and authentication failures.
func classifyCloneError(query types.Query, cloneError error) error {
	var noMatchingRef git.NoMatchingRefSpecError
	if errors.Is(cloneError, plumbing.ErrReferenceNotFound) || errors.As(cloneError, &noMatchingRef) {
		return types.NewSourceError(fmt.Sprintf("branch %q not found in %s", query.Branch, query.Source), cloneError, true)
	}
	if errors.Is(cloneError, transport.ErrRepositoryNotFound) {
		return types.NewSourceError(fmt.Sprintf("repository %s not found", query.Source), cloneError, true)
	}
	if errors.Is(cloneError, transport.ErrAuthenticationRequired) || errors.Is(cloneError, transport.ErrAuthorizationFailed) {
		return types.NewSourceError(fmt.Sprintf("access to %s denied", query.Source), cloneError, false)
	}
	if errors.Is(cloneError, context.Canceled) || errors.Is(cloneError, context.DeadlineExceeded) {
		return types.NewSourceError(fmt.Sprintf("clone of %s cancelled", query.Source), cloneError, false)
	}
	return types.NewSourceError(fmt.Sprintf("failed to clone %s", query.Source), cloneError, false)
}

func resolveLocal(query types.Query) (*types.ResolvedRoot, error) {
	absolutePath, absoluteError := filepath.Abs(query.Source)
	if absoluteError != nil {
		return nil, types.NewSourceError(fmt.Sprintf("invalid local path %q", query.Source), absoluteError, false)
	}
	canonicalPath, canonicalError := filepath.EvalSymlinks(absolutePath)
	if canonicalError != nil {
		if os.IsNotExist(canonicalError) {
			return nil, types.NewSourceError(fmt.Sprintf("local path %q does not exist", query.Source), canonicalError, true)
		}
		return nil, types.NewSourceError(fmt.Sprintf("cannot resolve local path %q", query.Source), canonicalError, false)
	}
	pathInformation, statError := os.Stat(canonicalPath)
	if statError != nil {
		return nil, types.NewSourceError(fmt.Sprintf("cannot stat local path %q", query.Source), statError, os.IsNotExist(statError))
	}
	if !pathInformation.IsDir() {
		return nil, types.NewSourceError(fmt.Sprintf("local path %q is not a directory", query.Source), nil, false)
	}
	if guardError := guardLocalRoot(canonicalPath, query.LocalRoot); guardError != nil {
		return nil, guardError
	}

	// Repository carries the directory slug, not the absolute path, so the
	// summary and metadata never leak filesystem locations.
	root := types.NewResolvedRoot(
		canonicalPath,
		types.SourceTypeLocal,
		filepath.Base(canonicalPath),
		query.Branch,
		normalizeSubpath(query.Subpath),
		nil,
	)
	if subpathError := applySubpath(root); subpathError != nil {
		return nil, subpathError
	}
	return root, nil
}

// guardLocalRoot rejects local sources that escape the allowed base directory.
func guardLocalRoot(canonicalPath, allowedRoot string) error {
	if allowedRoot == "" {
		return nil
	}
	canonicalAllowedRoot, allowedRootError := filepath.EvalSymlinks(allowedRoot)
	if allowedRootError != nil {
		return types.NewSourceError(fmt.Sprintf("cannot resolve allowed root %q", allowedRoot), allowedRootError, false)
	}
	relativePath, relativeError := filepath.Rel(canonicalAllowedRoot, canonicalPath)
	if relativeError != nil || relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
		return types.NewSourceError(fmt.Sprintf("local path %q escapes the allowed root", canonicalPath), nil, false)
	}
	return nil
}

// applySubpath narrows the root path to the requested subpath, if any.
func applySubpath(root *types.ResolvedRoot) error {
	if root.Subpath == types.DefaultSubpath {
		return nil
	}
	narrowedPath := filepath.Join(root.Path, filepath.FromSlash(strings.TrimPrefix(root.Subpath, "/")))
	pathInformation, statError := os.Stat(narrowedPath)
	if statError != nil {
		return types.NewSourceError(fmt.Sprintf("subpath %q not found", root.Subpath), statError, true)
	}
	if !pathInformation.IsDir() {
		return types.NewSourceError(fmt.Sprintf("subpath %q is not a directory", root.Subpath), nil, false)
	}
	root.Path = narrowedPath
	return nil
}

func normalizeSubpath(subpath string) string {
	trimmed := strings.TrimSpace(subpath)
	if trimmed == "" || trimmed == types.DefaultSubpath {
		return types.DefaultSubpath
	}
	return "/" + strings.Trim(filepath.ToSlash(trimmed), "/")
}

// RepositoryIdentifier derives an owner/name identifier from a remote URL.
func RepositoryIdentifier(sourceValue string) string {
	trimmed := strings.TrimSuffix(sourceValue, gitURLSuffix)
	trimmed = strings.TrimSuffix(trimmed, "/")
	if strings.HasPrefix(trimmed, sshShorthandPrefix) {
		if colonIndex := strings.Index(trimmed, ":"); colonIndex >= 0 {
			trimmed = trimmed[colonIndex+1:]
		}
	} else if schemeIndex := strings.Index(trimmed, "://"); schemeIndex > 0 {
		trimmed = trimmed[schemeIndex+3:]
		if slashIndex := strings.Index(trimmed, "/"); slashIndex >= 0 {
			trimmed = trimmed[slashIndex+1:]
		}
	}
	segments := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(segments) >= 2 {
		return segments[len(segments)-2] + "/" + segments[len(segments)-1]
	}
	return trimmed
}
