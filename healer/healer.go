// Package healer repairs test code after a failed execution.
package healer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hairizuan-noorazman/testpilot/llm"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/pageanalysis"
	"github.com/hairizuan-noorazman/testpilot/script"
)

var (
	ErrNoRepair      = errors.New("no repair produced")
	ErrInvalidRepair = errors.New("repaired code has no executable statements")
)

const healTemperature = 0.1

// Strategy records how a repair was produced.
type Strategy string

const (
	StrategyModel     Strategy = "model"
	StrategyFallback  Strategy = "fallback"
	StrategyUnchanged Strategy = "unchanged"
)

// Request is a failed execution to repair.
type Request struct {
	Code  string
	Error string
	// PageHTML is the markup captured when the failure happened. It may be empty.
	PageHTML string
	URL      string
}

// Outcome is the result of a repair. Code is always set; it equals the input
// code when Strategy is StrategyUnchanged.
type Outcome struct {
	Code     string
	Category Category
	Strategy Strategy
	// Cause is the model failure that led to the fallback, if any.
	Cause error
}

// Recorder receives one call per repair attempt.
type Recorder interface {
	HealAttempt(category, strategy string)
}

// Healer is the healing strategist.
type Healer struct {
	client    llm.Client
	logger    logger.Logger
	recorder  Recorder
	maxTokens int
}

type Option func(*Healer)

func WithRecorder(r Recorder) Option {
	return func(h *Healer) { h.recorder = r }
}

func WithMaxTokens(n int) Option {
	return func(h *Healer) { h.maxTokens = n }
}

func New(client llm.Client, log logger.Logger, opts ...Option) *Healer {
	h := &Healer{client: client, logger: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Heal attempts to repair req.Code. It never fails; when nothing works the
// original code is returned.
func (h *Healer) Heal(ctx context.Context, req Request) (out Outcome) {
	category := Classify(req.Error)
	out = Outcome{Code: req.Code, Category: category, Strategy: StrategyUnchanged}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error(ctx, "healing panicked, keeping original code", map[string]interface{}{
				"category": string(category),
				"panic":    fmt.Sprint(r),
			})
			out = Outcome{Code: req.Code, Category: category, Strategy: StrategyUnchanged, Cause: fmt.Errorf("%w: %v", ErrNoRepair, r)}
		}
		if h.recorder != nil {
			h.recorder.HealAttempt(string(out.Category), string(out.Strategy))
		}
	}()

	h.logger.Info(ctx, "attempting to heal test", map[string]interface{}{
		"category": string(category),
	})

	var analysis *pageanalysis.PageAnalysis
	if category == CategorySelector && req.PageHTML != "" {
		a, err := pageanalysis.AnalyzeHTML(req.URL, strings.NewReader(req.PageHTML))
		if err != nil {
			h.logger.Warn(ctx, "failed to analyze captured page", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			analysis = a
		}
	}

	code, err := h.complete(ctx, category, req, analysis)
	if err == nil {
		out.Code = code
		out.Strategy = StrategyModel
		return out
	}

	h.logger.Warn(ctx, "model repair failed, applying fallback", map[string]interface{}{
		"category": string(category),
		"error":    err.Error(),
	})

	switch category {
	case CategorySelector:
		return settle(out, repairSelector(req.Code, req.Error, analysis), err)
	case CategoryTimeout:
		return settle(out, relaxTimeouts(req.Code), err)
	case CategoryNavigation:
		return settle(out, settleNavigation(req.Code), err)
	}
	out.Cause = err
	return out
}

// settle records a deterministic repair. An identical result counts as no
// repair.
func settle(out Outcome, code string, cause error) Outcome {
	out.Cause = cause
	if code == out.Code {
		out.Cause = ErrNoRepair
		if cause != nil {
			out.Cause = fmt.Errorf("%w: %w", ErrNoRepair, cause)
		}
		return out
	}
	out.Code = code
	out.Strategy = StrategyFallback
	return out
}

func (h *Healer) complete(ctx context.Context, category Category, req Request, analysis *pageanalysis.PageAnalysis) (string, error) {
	var pageContext, markup string
	if analysis != nil {
		pageContext = pageanalysis.FormatForPrompt(analysis)
	}
	if category == CategorySelector {
		markup = pageanalysis.CondenseMarkup(req.PageHTML, markupLimit)
	}

	temperature := healTemperature
	text, err := h.client.Complete(ctx, llm.Request{
		System:      systemPrompts[category],
		Prompt:      buildUserPrompt(category, req, pageContext, markup),
		MaxTokens:   h.maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to repair code: %w", err)
	}

	code := strings.TrimSpace(llm.StripCodeFences(text))
	if code == "" {
		return "", llm.ErrEmptyResponse
	}
	if _, err := script.Parse(code); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRepair, err)
	}
	if code == strings.TrimSpace(req.Code) {
		return "", ErrNoRepair
	}
	return code + "\n", nil
}
