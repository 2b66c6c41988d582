// Package llm wraps the language-model backends behind one small interface.
// Adapters convert every transport or parsing failure into an error return;
// nothing ever panics past this boundary.
package llm

import "context"

// Client produces a completion for a prompt. A non-nil error means the
// backend is unavailable; callers decide how to degrade.
type Client interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}
