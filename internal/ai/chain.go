package ai

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// completerChain tries a primary provider and falls back to a secondary one
// when the primary errors or returns blank output. Context cancellation is
// never retried against the fallback.
type completerChain struct {
	primary  Completer
	fallback Completer
}

// WithFallback combines two providers into one Completer. Either side may be
// nil or disabled.
func WithFallback(primary, fallback Completer) Completer {
	return &completerChain{primary: primary, fallback: fallback}
}

func (c *completerChain) Enabled() bool {
	return enabled(c.primary) || enabled(c.fallback)
}

func (c *completerChain) Complete(ctx context.Context, system, user string) (string, error) {
	var primaryErr error
	if enabled(c.primary) {
		text, err := c.primary.Complete(ctx, system, user)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		primaryErr = err
		if enabled(c.fallback) {
			logrus.WithError(err).Warn("primary provider failed, trying fallback")
		}
	}
	if enabled(c.fallback) {
		return c.fallback.Complete(ctx, system, user)
	}
	if primaryErr != nil {
		return "", primaryErr
	}
	return "", ErrDisabled
}

func enabled(c Completer) bool {
	return c != nil && c.Enabled()
}
