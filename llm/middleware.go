package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	base    Client
	limiter *rate.Limiter
}

// RateLimited bounds the request rate to base. Calls wait for a token until
// ctx is done. A non-positive limit returns base unchanged.
func RateLimited(base Client, limit rate.Limit, burst int) Client {
	if limit <= 0 {
		return base
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{base: base, limiter: rate.NewLimiter(limit, burst)}
}

func (c *rateLimited) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit wait: %w", err)
	}
	return c.base.Complete(ctx, req)
}

// Recorder receives the outcome of every model call.
type Recorder interface {
	LLMRequest(component, outcome string)
}

type instrumented struct {
	base      Client
	component string
	recorder  Recorder
}

// Instrumented reports every call made through base under component.
func Instrumented(base Client, component string, recorder Recorder) Client {
	if recorder == nil {
		return base
	}
	return &instrumented{base: base, component: component, recorder: recorder}
}

func (c *instrumented) Complete(ctx context.Context, req Request) (string, error) {
	text, err := c.base.Complete(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.recorder.LLMRequest(c.component, outcome)
	return text, err
}
