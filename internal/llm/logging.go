package llm

import (
	"context"
	"fmt"
	"os"
	"time"
)

// RequestRecord captures one model call for the audit trail.
type RequestRecord struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	CostUSD      float64
	Success      bool
	ErrorMessage string
}

// Recorder persists model request records. The sqlite store implements it;
// tests use an in-memory one. A nil Recorder disables logging.
type Recorder interface {
	RecordLLMRequest(ctx context.Context, rec RequestRecord) error
}

// Recorders fans one record out to several recorders. Each recorder gets
// the record even if an earlier one fails; the first error is returned.
type Recorders []Recorder

func (rs Recorders) RecordLLMRequest(ctx context.Context, rec RequestRecord) error {
	var first error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.RecordLLMRequest(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LoggingProvider is a decorator that records every model call.
type LoggingProvider struct {
	inner    Provider
	name     string
	recorder Recorder
}

// WithLogging wraps a Provider with request event logging. name is the
// backend ("anthropic", "openai", ...) recorded alongside the model ID.
func WithLogging(p Provider, name string, rec Recorder) Provider {
	return &LoggingProvider{inner: p, name: name, recorder: rec}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)

	if l.recorder == nil {
		return resp, err
	}

	rec := RequestRecord{
		Provider:  l.name,
		Model:     l.inner.ModelID(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}

	if resp != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.OutputTokens = resp.Usage.OutputTokens
		rec.Model = resp.Model
		if c := LookupCost(resp.Model); c != nil {
			rec.CostUSD = c.Cost(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}

	// Logging failures never fail the request.
	if logErr := l.recorder.RecordLLMRequest(ctx, rec); logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record model request: %v\n", logErr)
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
