// Package tokenizer estimates token counts for digest content.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

const (
	// EstimatorName identifies the deterministic character-based counter.
	EstimatorName = "estimate"
	// CharactersPerToken is the fixed divisor of the character-based
	// estimator: roughly four characters of source text per token.
	CharactersPerToken = 4

	defaultEncodingName = "cl100k_base"
)

// estimatorCounter approximates tokens as character count divided by
// CharactersPerToken, rounded to nearest. It needs no model data, so the
// default digest path stays dependency-free and reproducible.
type estimatorCounter struct{}

func (estimatorCounter) Name() string { return EstimatorName }

func (estimatorCounter) CountString(input string) (int, error) {
	return (len(input) + CharactersPerToken/2) / CharactersPerToken, nil
}

// NewEstimator returns the deterministic character-based counter.
func NewEstimator() Counter {
	return estimatorCounter{}
}

// openAICounter counts tokens with a tiktoken encoding.
type openAICounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter openAICounter) Name() string { return counter.name }

func (counter openAICounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, fmt.Errorf("nil tiktoken encoder")
	}
	tokenIDs := counter.encoding.Encode(input, nil, nil)
	return len(tokenIDs), nil
}

// NewCounter returns a Counter for the requested model. An empty model selects
// the character-based estimator; otherwise a tiktoken encoding is resolved for
// the model, falling back to the default encoding for unknown model names.
func NewCounter(model string) (Counter, error) {
	trimmedModel := strings.TrimSpace(model)
	if trimmedModel == "" || trimmedModel == EstimatorName {
		return NewEstimator(), nil
	}
	encoding, encodingError := tiktoken.EncodingForModel(strings.ToLower(trimmedModel))
	if encodingError == nil && encoding != nil {
		return openAICounter{encoding: encoding, name: strings.ToLower(trimmedModel)}, nil
	}
	fallbackEncoding, fallbackError := tiktoken.GetEncoding(defaultEncodingName)
	if fallbackError != nil {
		return nil, fmt.Errorf("initialize fallback tokenizer: %w", fallbackError)
	}
	return openAICounter{encoding: fallbackEncoding, name: defaultEncodingName}, nil
}
