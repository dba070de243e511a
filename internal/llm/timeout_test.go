package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type slowProvider struct {
	delay time.Duration
}

func (s *slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
		return &Response{Content: json.RawMessage(`"late"`), Model: "slow"}, nil
	}
}

func (s *slowProvider) ModelID() string { return "slow" }

func TestTimeout_SlowCallReportsUnavailable(t *testing.T) {
	p := WithTimeout(&slowProvider{delay: time.Second}, 5*time.Millisecond)

	_, err := p.Generate(context.Background(), Request{})
	var unavailable *ErrProviderUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestTimeout_FastCallPasses(t *testing.T) {
	p := WithTimeout(&slowProvider{delay: time.Millisecond}, time.Second)

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "late" {
		t.Fatalf("content = %q", resp.Text())
	}
}

func TestTimeout_CallerCancellationPreserved(t *testing.T) {
	p := WithTimeout(&slowProvider{delay: time.Second}, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want caller's DeadlineExceeded", err)
	}
}

func TestTimeout_ZeroDisables(t *testing.T) {
	inner := &slowProvider{delay: time.Millisecond}
	if p := WithTimeout(inner, 0); p != Provider(inner) {
		t.Fatal("zero timeout should return the inner provider unchanged")
	}
}
