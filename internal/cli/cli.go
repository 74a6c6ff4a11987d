// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/temirov/gitdigest/internal/config"
	"github.com/temirov/gitdigest/internal/ingest"
	"github.com/temirov/gitdigest/internal/output"
	"github.com/temirov/gitdigest/internal/tokenizer"
	"github.com/temirov/gitdigest/internal/types"
	"github.com/temirov/gitdigest/internal/utils"
)

const (
	rootUse              = "gitdigest [source]"
	rootShortDescription = "turn a repository into an LLM-friendly text digest"
	rootLongDescription  = `gitdigest converts a Git repository URL or local directory into a single
deterministic text digest: a summary, an ASCII directory tree, and the
concatenated contents of the selected files.
Use --include and --exclude to filter files, --branch and --subpath to narrow
remote sources, and --format to select raw or json output.`
	rootUsageExample = `  # Digest the current directory to stdout
  gitdigest .

  # Digest a repository branch, Python sources only
  gitdigest https://github.com/owner/repo --branch develop --include "*.py"

  # Write a JSON envelope to a file
  gitdigest . --format json --output digest.json`

	branchFlagName      = "branch"
	subpathFlagName     = "subpath"
	includeFlagName     = "include"
	excludeFlagName     = "exclude"
	maxSizeFlagName     = "max-size"
	outputFlagName      = "output"
	formatFlagName      = "format"
	tokensFlagName      = "tokens"
	modelFlagName       = "model"
	copyFlagName        = "copy"
	noGitignoreFlagName = "no-gitignore"
	timeoutFlagName     = "timeout"
	configFlagName      = "config"

	branchFlagDescription      = "branch or ref to clone"
	subpathFlagDescription     = "restrict the digest to a path inside the repository"
	includeFlagDescription     = "comma-separated include patterns"
	excludeFlagDescription     = "comma-separated exclude patterns"
	maxSizeFlagDescription     = "maximum file size in bytes"
	outputFlagDescription      = "output destination ('-' for stdout)"
	formatFlagDescription      = "output format (raw or json)"
	tokensFlagDescription      = "count tokens with a model tokenizer instead of the character estimate"
	modelFlagDescription       = "tokenizer model used with --tokens"
	copyFlagDescription        = "copy the digest to the system clipboard"
	noGitignoreFlagDescription = "do not honor the repository's .gitignore"
	timeoutFlagDescription     = "abort the digest after this duration (0 disables)"
	configFlagDescription      = "path to a configuration file"

	defaultSource         = "."
	defaultTokenizerModel = "gpt-4o"
	invalidFormatMessage  = "invalid format value %q; must be %q or %q"
)

// Execute builds the root command and runs it.
func Execute() error {
	return NewRootCommand().Execute()
}

// commandFlags collects every flag value of the root command.
type commandFlags struct {
	branch      string
	subpath     string
	include     string
	exclude     string
	maxSize     int64
	outputPath  string
	format      string
	tokens      bool
	model       string
	copyToClip  bool
	noGitignore bool
	timeout     time.Duration
	configPath  string
}

// NewRootCommand constructs the gitdigest command.
func NewRootCommand() *cobra.Command {
	flags := &commandFlags{}

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.MaximumNArgs(1),
		Version:       applicationVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			sourceValue := defaultSource
			if len(arguments) == 1 {
				sourceValue = arguments[0]
			}
			return runDigest(command, flags, sourceValue)
		},
	}

	rootCommand.Flags().StringVarP(&flags.branch, branchFlagName, "b", "", branchFlagDescription)
	rootCommand.Flags().StringVar(&flags.subpath, subpathFlagName, "", subpathFlagDescription)
	rootCommand.Flags().StringVarP(&flags.include, includeFlagName, "i", "", includeFlagDescription)
	rootCommand.Flags().StringVarP(&flags.exclude, excludeFlagName, "e", "", excludeFlagDescription)
	rootCommand.Flags().Int64Var(&flags.maxSize, maxSizeFlagName, 0, maxSizeFlagDescription)
	rootCommand.Flags().StringVarP(&flags.outputPath, outputFlagName, "o", output.StdoutTarget, outputFlagDescription)
	rootCommand.Flags().StringVar(&flags.format, formatFlagName, "", formatFlagDescription)
	rootCommand.Flags().StringVar(&flags.model, modelFlagName, "", modelFlagDescription)
	rootCommand.Flags().BoolVar(&flags.noGitignore, noGitignoreFlagName, false, noGitignoreFlagDescription)
	rootCommand.Flags().DurationVar(&flags.timeout, timeoutFlagName, 0, timeoutFlagDescription)
	rootCommand.Flags().StringVar(&flags.configPath, configFlagName, "", configFlagDescription)
	registerOptionalBooleanFlag(rootCommand, &flags.tokens, tokensFlagName, tokensFlagDescription)
	registerOptionalBooleanFlag(rootCommand, &flags.copyToClip, copyFlagName, copyFlagDescription)

	return rootCommand
}

func runDigest(command *cobra.Command, flags *commandFlags, sourceValue string) error {
	configuration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		ExplicitFilePath: flags.configPath,
	})
	if configurationError != nil {
		return configurationError
	}

	query := buildQuery(command, flags, configuration, sourceValue)
	format, formatError := resolveFormat(flags.format, configuration)
	if formatError != nil {
		return formatError
	}
	counter, counterError := resolveCounter(command, flags, configuration)
	if counterError != nil {
		return counterError
	}

	requestContext := command.Context()
	if requestContext == nil {
		requestContext = context.Background()
	}
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		requestContext, cancel = context.WithTimeout(requestContext, flags.timeout)
		defer cancel()
	}

	digest, digestError := ingest.NewEngine(counter).ComputeDigest(requestContext, query)
	if digestError != nil {
		if format == output.FormatJSON {
			if envelope, envelopeError := output.RenderErrorJSON(digestError); envelopeError == nil {
				_ = output.Write(envelope, flags.outputPath)
			}
		}
		return digestError
	}

	document, renderError := output.Render(digest, format)
	if renderError != nil {
		return renderError
	}
	if writeError := output.Write(document, flags.outputPath); writeError != nil {
		return writeError
	}
	if shouldCopy(command, flags, configuration) {
		if copyError := output.CopyToClipboard(document); copyError != nil {
			return copyError
		}
	}
	return nil
}

// buildQuery merges configuration defaults and flag values into the engine query.
// Flags that were set explicitly win over configuration.
func buildQuery(command *cobra.Command, flags *commandFlags, configuration config.ApplicationConfiguration, sourceValue string) types.Query {
	includePatterns := configuration.Digest.Include
	if command.Flags().Changed(includeFlagName) {
		includePatterns = utils.SplitPatternList(flags.include)
	}
	excludePatterns := configuration.Digest.Exclude
	if command.Flags().Changed(excludeFlagName) {
		excludePatterns = utils.SplitPatternList(flags.exclude)
	}

	maxFileSize := configuration.Digest.MaxFileSize
	if command.Flags().Changed(maxSizeFlagName) {
		maxFileSize = flags.maxSize
	}

	useGitignore := true
	if configuration.Digest.UseGitignore != nil {
		useGitignore = *configuration.Digest.UseGitignore
	}
	if command.Flags().Changed(noGitignoreFlagName) {
		useGitignore = !flags.noGitignore
	}

	return types.Query{
		Source:          strings.TrimSpace(sourceValue),
		Branch:          flags.branch,
		Subpath:         flags.subpath,
		IncludePatterns: includePatterns,
		ExcludePatterns: excludePatterns,
		MaxFileSize:     maxFileSize,
		UseGitignore:    useGitignore,
	}
}

func resolveFormat(flagValue string, configuration config.ApplicationConfiguration) (string, error) {
	format := configuration.Digest.Format
	if flagValue != "" {
		format = flagValue
	}
	if format == "" {
		format = output.FormatRaw
	}
	format = strings.ToLower(format)
	if format != output.FormatRaw && format != output.FormatJSON {
		return "", fmt.Errorf(invalidFormatMessage, format, output.FormatRaw, output.FormatJSON)
	}
	return format, nil
}

// resolveCounter picks the token counter: the model tokenizer when --tokens
// (or configuration) asks for it, otherwise the deterministic estimator.
func resolveCounter(command *cobra.Command, flags *commandFlags, configuration config.ApplicationConfiguration) (tokenizer.Counter, error) {
	tokensEnabled := configuration.Digest.Tokens.Enabled != nil && *configuration.Digest.Tokens.Enabled
	if command.Flags().Changed(tokensFlagName) {
		tokensEnabled = flags.tokens
	}
	if !tokensEnabled {
		return tokenizer.NewEstimator(), nil
	}
	model := configuration.Digest.Tokens.Model
	if flags.model != "" {
		model = flags.model
	}
	if model == "" {
		model = defaultTokenizerModel
	}
	return tokenizer.NewCounter(model)
}

func shouldCopy(command *cobra.Command, flags *commandFlags, configuration config.ApplicationConfiguration) bool {
	if command.Flags().Changed(copyFlagName) {
		return flags.copyToClip
	}
	return configuration.Digest.Clipboard != nil && *configuration.Digest.Clipboard
}

// applicationVersion reports the version recorded in build information.
func applicationVersion() string {
	buildInformation, buildInformationAvailable := debug.ReadBuildInfo()
	if buildInformationAvailable && buildInformation.Main.Version != "" && buildInformation.Main.Version != "(devel)" {
		return buildInformation.Main.Version
	}
	return "unknown"
}
