package pageanalysis

import (
	"context"
	"errors"
	"time"

	"github.com/hairizuan-noorazman/testpilot/logger"
)

var errNoAnalyzers = errors.New("no analyzers configured")

// Chain tries analyzers in order and falls back to FallbackAnalysis when all of
// them fail. Its Analyze never returns an error.
type Chain struct {
	analyzers []Analyzer
	timeout   time.Duration
	logger    logger.Logger
}

// NewChain creates a Chain. timeout bounds each analyzer; zero means no bound
// beyond the caller's context.
func NewChain(log logger.Logger, timeout time.Duration, analyzers ...Analyzer) *Chain {
	return &Chain{
		analyzers: analyzers,
		timeout:   timeout,
		logger:    log.WithField("component", "page_analysis"),
	}
}

func (c *Chain) Analyze(ctx context.Context, url string, headless bool) (*PageAnalysis, error) {
	lastErr := errNoAnalyzers
	for i, a := range c.analyzers {
		actx, cancel := ctx, context.CancelFunc(func() {})
		if c.timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		analysis, err := a.Analyze(actx, url, headless)
		cancel()
		if err == nil && analysis != nil {
			return analysis, nil
		}
		if err != nil {
			lastErr = err
		}
		c.logger.Warn(ctx, "page analyzer failed", map[string]interface{}{
			"url":      url,
			"analyzer": i,
			"error":    lastErr.Error(),
		})
		if ctx.Err() != nil {
			break
		}
	}

	c.logger.Warn(ctx, "using fallback page analysis", map[string]interface{}{
		"url":   url,
		"error": lastErr.Error(),
	})
	return FallbackAnalysis(url, lastErr), nil
}
