package harvest

import "context"

// TokenCounter counts tokens in text for a specific model.
// Content results carry a token estimate for downstream LLM use.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
