// Package gemini estimates token counts for extracted content with the
// local Gemini tokenizer.
package gemini

import (
	"context"
	"sync"

	"github.com/fwojciec/harvest"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

// DefaultModel is the model whose vocabulary is used for counting.
const DefaultModel = "gemini-2.0-flash"

var _ harvest.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts tokens using the Gemini tokenizer. Content
// processors call it from many fetch goroutines at once, so calls into
// the tokenizer are serialized.
type TokenCounter struct {
	mu  sync.Mutex
	tok *tokenizer.LocalTokenizer
}

// NewTokenCounter creates a new TokenCounter for the given model.
// An empty model selects DefaultModel.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if model == "" {
		model = DefaultModel
	}
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "load tokenizer for %s: %v", model, err)
	}
	return &TokenCounter{tok: tok}, nil
}

// CountTokens counts the number of tokens in the given text.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if text == "" {
		return 0, nil
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, "user"),
	}

	tc.mu.Lock()
	result, err := tc.tok.CountTokens(contents, nil)
	tc.mu.Unlock()
	if err != nil {
		return 0, err
	}

	return int(result.TotalTokens), nil
}
