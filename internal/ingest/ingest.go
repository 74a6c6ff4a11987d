// Package ingest assembles the digest pipeline: source resolution, filtered
// traversal, content aggregation, tree rendering, and summarization. The
// whole pipeline is a pure transform from a Query to a Digest; it owns its
// temporary resources and releases them on every exit path.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/temirov/gitdigest/internal/aggregate"
	"github.com/temirov/gitdigest/internal/pattern"
	"github.com/temirov/gitdigest/internal/render"
	"github.com/temirov/gitdigest/internal/source"
	"github.com/temirov/gitdigest/internal/summary"
	"github.com/temirov/gitdigest/internal/tokenizer"
	"github.com/temirov/gitdigest/internal/types"
	"github.com/temirov/gitdigest/internal/walker"
)

// Engine computes digests. The zero value is not usable; construct one with
// NewEngine. Engines are stateless across requests and safe for concurrent use.
type Engine struct {
	tokenCounter tokenizer.Counter
}

// NewEngine returns an engine using the given token counter, or the
// deterministic character-based estimator when counter is nil.
func NewEngine(counter tokenizer.Counter) *Engine {
	if counter == nil {
		counter = tokenizer.NewEstimator()
	}
	return &Engine{tokenCounter: counter}
}

// ComputeDigest runs the full pipeline for the query using the default
// engine. It is the single function boundary collaborators call.
func ComputeDigest(requestContext context.Context, query types.Query) (*types.Digest, error) {
	return NewEngine(nil).ComputeDigest(requestContext, query)
}

// ComputeDigest validates the query, resolves the source, and digests it.
// Temporary storage acquired for remote sources is released before returning,
// on success, failure, and cancellation alike.
func (engine *Engine) ComputeDigest(requestContext context.Context, query types.Query) (*types.Digest, error) {
	query = applyQueryDefaults(query)
	matcher, validationError := validateQuery(query)
	if validationError != nil {
		return nil, validationError
	}

	resolvedRoot, resolveError := source.Resolve(requestContext, query)
	if resolveError != nil {
		return nil, resolveError
	}
	defer func() {
		_ = resolvedRoot.Release()
	}()

	return engine.digestResolvedRoot(requestContext, resolvedRoot, query, matcher)
}

// ComputeDigestFromRoot digests an already-resolved root, letting callers
// that cache clones skip re-fetching. Ownership of the root stays with the
// caller: this entry point never releases it.
func (engine *Engine) ComputeDigestFromRoot(requestContext context.Context, resolvedRoot *types.ResolvedRoot, query types.Query) (*types.Digest, error) {
	query = applyQueryDefaults(query)
	matcher, validationError := validateQuery(query)
	if validationError != nil {
		return nil, validationError
	}
	return engine.digestResolvedRoot(requestContext, resolvedRoot, query, matcher)
}

func (engine *Engine) digestResolvedRoot(requestContext context.Context, resolvedRoot *types.ResolvedRoot, query types.Query, matcher *pattern.Matcher) (*types.Digest, error) {
	walkResult, walkError := walker.Walk(walker.Options{
		Root:         resolvedRoot.Path,
		RootName:     rootDisplayName(resolvedRoot),
		Matcher:      matcher,
		MaxFileSize:  query.MaxFileSize,
		UseGitignore: query.UseGitignore,
	})
	if walkError != nil {
		return nil, types.NewEngineError("traversal failed", walkError)
	}

	aggregateResult, aggregateError := aggregate.Aggregate(requestContext, walkResult.Entries)
	if aggregateError != nil {
		return nil, types.NewEngineError("content aggregation failed", aggregateError)
	}

	treeText := render.Tree(walkResult.Root)

	tokenCount, tokenError := engine.tokenCounter.CountString(treeText + aggregateResult.Content)
	if tokenError != nil {
		return nil, types.NewEngineError("token counting failed", tokenError)
	}

	summaryText := summary.Render(summary.Input{
		Repository: resolvedRoot.Repository,
		Branch:     query.Branch,
		Subpath:    resolvedRoot.Subpath,
		FileCount:  len(aggregateResult.AnalyzedFiles),
		TokenCount: tokenCount,
	})

	return &types.Digest{
		Summary:    summaryText,
		Tree:       treeText,
		Content:    aggregateResult.Content,
		SourceType: resolvedRoot.SourceType,
		Repository: resolvedRoot.Repository,
		Branch:     resolvedRoot.Branch,
		Subpath:    resolvedRoot.Subpath,
	}, nil
}

func applyQueryDefaults(query types.Query) types.Query {
	if query.MaxFileSize == 0 {
		query.MaxFileSize = types.DefaultMaxFileSize
	}
	if strings.TrimSpace(query.Subpath) == "" {
		query.Subpath = types.DefaultSubpath
	}
	return query
}

// validateQuery fails fast, before any I/O, on out-of-range size limits and
// malformed patterns, returning the compiled matcher on success.
func validateQuery(query types.Query) (*pattern.Matcher, error) {
	if query.MaxFileSize < types.MinimumMaxFileSize || query.MaxFileSize > types.MaximumMaxFileSize {
		return nil, types.NewSizeError(fmt.Sprintf(
			"max file size %d outside accepted range [%d, %d]",
			query.MaxFileSize, types.MinimumMaxFileSize, types.MaximumMaxFileSize))
	}
	matcher, compileError := pattern.Compile(query.IncludePatterns, query.ExcludePatterns)
	if compileError != nil {
		return nil, types.NewPatternError("invalid pattern set", compileError)
	}
	return matcher, nil
}

// rootDisplayName names the root line of the rendered tree: the owner-repo
// slug for remotes, the directory slug for local sources. Both derive from
// Repository so the summary, tree, and metadata agree.
func rootDisplayName(resolvedRoot *types.ResolvedRoot) string {
	if resolvedRoot.SourceType == types.SourceTypeRemote {
		return strings.ReplaceAll(resolvedRoot.Repository, "/", "-")
	}
	return resolvedRoot.Repository
}
