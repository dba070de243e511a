package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hmkang/maieut/internal/llm"
)

// LLMEvent is one persisted model-call record.
type LLMEvent struct {
	ID           int64
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	CostUSD      float64
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}

// LLMStats aggregates the audit trail for reporting.
type LLMStats struct {
	TotalRequests int
	Failures      int
	InputTokens   int64
	OutputTokens  int64
	TotalCostUSD  float64
	ByPurpose     map[string]int
}

// RecordLLMRequest implements llm.Recorder.
func (s *Store) RecordLLMRequest(ctx context.Context, rec llm.RequestRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_events (provider, model, purpose, input_tokens, output_tokens, latency_ms, cost_usd, success, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Provider, rec.Model, rec.Purpose, rec.InputTokens, rec.OutputTokens,
		rec.LatencyMs, rec.CostUSD, boolToInt(rec.Success), rec.ErrorMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert llm event: %w", err)
	}
	return nil
}

// ListLLMEvents returns the most recent model calls, newest first.
func (s *Store) ListLLMEvents(ctx context.Context, limit int) ([]*LLMEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider, model, purpose, input_tokens, output_tokens, latency_ms, cost_usd, success, error_message, created_at
		 FROM llm_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list llm events: %w", err)
	}
	defer rows.Close()

	var out []*LLMEvent
	for rows.Next() {
		var ev LLMEvent
		var success int
		if err := rows.Scan(&ev.ID, &ev.Provider, &ev.Model, &ev.Purpose,
			&ev.InputTokens, &ev.OutputTokens, &ev.LatencyMs, &ev.CostUSD,
			&success, &ev.ErrorMessage, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan llm event: %w", err)
		}
		ev.Success = success != 0
		out = append(out, &ev)
	}
	return out, rows.Err()
}

// LLMStatsSummary aggregates all recorded model calls.
func (s *Store) LLMStatsSummary(ctx context.Context) (*LLMStats, error) {
	stats := &LLMStats{ByPurpose: make(map[string]int)}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(input_tokens), 0),
		        COALESCE(SUM(output_tokens), 0),
		        COALESCE(SUM(cost_usd), 0)
		 FROM llm_events`)
	if err := row.Scan(&stats.TotalRequests, &stats.Failures,
		&stats.InputTokens, &stats.OutputTokens, &stats.TotalCostUSD); err != nil {
		return nil, fmt.Errorf("aggregate llm events: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT purpose, COUNT(*) FROM llm_events GROUP BY purpose`)
	if err != nil {
		return nil, fmt.Errorf("group llm events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var purpose string
		var n int
		if err := rows.Scan(&purpose, &n); err != nil {
			return nil, fmt.Errorf("scan purpose count: %w", err)
		}
		stats.ByPurpose[purpose] = n
	}
	return stats, rows.Err()
}
