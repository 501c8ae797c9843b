// Package generator turns a test plan into executable test code.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hairizuan-noorazman/testpilot/llm"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/script"
	"github.com/hairizuan-noorazman/testpilot/testplan"
)

var ErrNoStatements = errors.New("generated code has no executable statements")

const generateTemperature = 0.0

// Generated is the outcome of a generation. Code is always runnable. Cause is
// set when the model path failed and Code came from the deterministic
// fallback.
type Generated struct {
	Code     string
	Fallback bool
	Cause    error
}

// Generator is the code synthesizer.
type Generator struct {
	client    llm.Client
	logger    logger.Logger
	maxTokens int
}

type Option func(*Generator)

func WithMaxTokens(n int) Option {
	return func(g *Generator) { g.maxTokens = n }
}

func New(client llm.Client, log logger.Logger, opts ...Option) *Generator {
	g := &Generator{client: client, logger: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces test code for plan. It never fails: when the model cannot
// be used the code is assembled from templates.
func (g *Generator) Generate(ctx context.Context, plan *testplan.TestPlan) Generated {
	body, err := g.complete(ctx, plan)
	if err == nil {
		return Generated{Code: Wrap(plan, body)}
	}

	g.logger.Warn(ctx, "code generation failed, using template fallback", map[string]interface{}{
		"plan_id": plan.ID,
		"error":   err.Error(),
	})
	return Generated{
		Code:     Wrap(plan, Fallback(plan)),
		Fallback: true,
		Cause:    err,
	}
}

func (g *Generator) complete(ctx context.Context, plan *testplan.TestPlan) (string, error) {
	temperature := generateTemperature
	text, err := g.client.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      buildUserPrompt(plan),
		MaxTokens:   g.maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	body := strings.TrimSpace(llm.StripCodeFences(text))
	if body == "" {
		return "", llm.ErrEmptyResponse
	}

	parsed, err := script.Parse(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoStatements, err)
	}
	for _, st := range parsed.Statements {
		if st.Err != nil {
			g.logger.Warn(ctx, "generated code contains an unsupported statement", map[string]interface{}{
				"plan_id": plan.ID,
				"line":    st.Line,
				"source":  st.Source,
			})
		}
	}
	return unwrap(body), nil
}

// unwrap drops a test() wrapper the model may have added despite the prompt so
// the body is not wrapped twice.
func unwrap(body string) string {
	lines := strings.Split(body, "\n")
	start, end := -1, -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if start < 0 && strings.HasPrefix(trimmed, "test(") {
			start = i
		}
		if trimmed == "});" {
			end = i
		}
	}
	if start < 0 || end <= start {
		return body
	}

	var out []string
	for _, line := range lines[start+1 : end] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "test.setTimeout(") {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
