// Package llm invokes language models. Callers treat every call as fallible.
package llm

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrEmptyResponse = errors.New("empty model response")
	ErrNoJSON        = errors.New("no JSON object in model response")
	ErrNotConfigured = errors.New("language model not configured")
)

// Request is a single completion request.
type Request struct {
	// System is the system prompt.
	System string
	Prompt string
	// MaxTokens overrides the client default when positive.
	MaxTokens int
	// Temperature overrides the client default when non-nil.
	Temperature *float64
}

// Client completes prompts.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// FuncClient adapts a function to Client.
type FuncClient func(ctx context.Context, req Request) (string, error)

func (f FuncClient) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Unconfigured is a Client that always fails. Components fall back to their
// deterministic paths when given it.
type Unconfigured struct{}

func (Unconfigured) Complete(ctx context.Context, req Request) (string, error) {
	return "", ErrNotConfigured
}

// StripCodeFences removes a surrounding markdown code fence. Models often add
// one despite being told not to.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.Index(text, "\n"); idx != -1 {
		text = text[idx+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	if idx := strings.LastIndex(text, "```"); idx != -1 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
