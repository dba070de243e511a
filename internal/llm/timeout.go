package llm

import (
	"context"
	"errors"
	"time"
)

// timeoutProvider enforces a per-call budget. Sitting under the retry
// decorator, each attempt gets its own budget; a call past it reports the
// provider unavailable so the caller's fallback path takes over.
type timeoutProvider struct {
	inner Provider
	d     time.Duration
}

// WithTimeout wraps a Provider with a per-call deadline. Zero disables it.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{inner: p, d: d}
}

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	resp, err := t.inner.Generate(callCtx, req)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		// The per-call budget expired, not the caller's context.
		return nil, &ErrProviderUnavailable{Err: err}
	}
	return resp, err
}

func (t *timeoutProvider) ModelID() string {
	return t.inner.ModelID()
}
