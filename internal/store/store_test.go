package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/llm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(id string) *Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &Session{
		ID:          id,
		Title:       "Photosynthesis basics",
		Description: "first period",
		Topic:       "photosynthesis",
		Difficulty:  "normal",
		TeacherKey:  "teacher-1",
		Status:      "active",
		ShowScore:   true,
		MaxStudents: 30,
		CreatedAt:   now,
		ExpiresAt:   now.Add(2 * time.Hour),
	}
}

func testStudent(token, sessionID string) *Student {
	now := time.Now().UTC().Truncate(time.Second)
	return &Student{
		Token:     token,
		SessionID: sessionID,
		Name:      "Mina",
		Phase:     "uninitialized",
		JoinedAt:  now,
		UpdatedAt: now,
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		if err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := testSession("sess-1")
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Topic != sess.Topic || got.Status != "active" || got.EndedAt != nil {
		t.Errorf("got %+v", got)
	}
	if got.Title != sess.Title || got.Description != sess.Description {
		t.Errorf("attributes lost: %+v", got)
	}
	if !got.ShowScore || got.MaxStudents != 30 {
		t.Errorf("settings lost: %+v", got)
	}
	if got.TimeLimit() != 2*time.Hour {
		t.Errorf("time limit = %v", got.TimeLimit())
	}
	if !got.Active(time.Now()) {
		t.Error("fresh session should be active")
	}
	if got.Active(got.ExpiresAt.Add(time.Minute)) {
		t.Error("session past expiry should be inactive")
	}

	list, err := s.ListSessions(ctx, "teacher-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, %v", list, err)
	}
	if other, _ := s.ListSessions(ctx, "teacher-2"); len(other) != 0 {
		t.Error("sessions must be scoped to their teacher key")
	}

	if err := s.EndSession(ctx, "sess-1", time.Now().UTC()); err != nil {
		t.Fatalf("end: %v", err)
	}
	got, _ = s.GetSession(ctx, "sess-1")
	if got.Status != "ended" || got.EndedAt == nil {
		t.Errorf("after end: %+v", got)
	}

	if err := s.EndSession(ctx, "missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("end missing = %v, want ErrNotFound", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetSession(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveTurnAtomicity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, testSession("sess-1")); err != nil {
		t.Fatalf("create session: %v", err)
	}
	st := testStudent("tok-1", "sess-1")
	if err := s.AddStudent(ctx, st); err != nil {
		t.Fatalf("add student: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.SaveOpening(ctx, st, "Hello! What is a plant, to you?", now); err != nil {
		t.Fatalf("save opening: %v", err)
	}

	st.Score = 15
	st.Dims = conversation.Dimensions{Depth: 10, Breadth: 5, Application: 0, Metacognition: 5, Engagement: 30}
	st.Phase = "in-conversation"
	if err := s.SaveTurn(ctx, st, "Plants eat sunlight.", "Interesting. How?", now.Add(time.Minute)); err != nil {
		t.Fatalf("save turn: %v", err)
	}

	history, err := s.History(ctx, "tok-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want greeting + user + tutor", len(history))
	}
	if history[1].Role != conversation.RoleUser || history[2].Role != conversation.RoleAssistant {
		t.Errorf("history order wrong: %+v", history)
	}

	scores, err := s.ScoreHistory(ctx, "tok-1")
	if err != nil || len(scores) != 1 {
		t.Fatalf("score history = %v, %v", scores, err)
	}
	if scores[0].Score != 15 || scores[0].Dims.Engagement != 30 {
		t.Errorf("score point = %+v", scores[0])
	}

	loaded, err := s.GetStudent(ctx, "tok-1")
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if loaded.Score != 15 || loaded.Phase != "in-conversation" || loaded.Completed {
		t.Errorf("student = %+v", loaded)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, testSession("sess-1")); err != nil {
		t.Fatal(err)
	}
	st := testStudent("tok-1", "sess-1")
	if err := s.AddStudent(ctx, st); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveOpening(ctx, st, "hi", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetStudent(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("student should be gone, err = %v", err)
	}
	if history, _ := s.History(ctx, "tok-1"); len(history) != 0 {
		t.Error("messages should be gone")
	}
}

func TestListStudents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, testSession("sess-1")); err != nil {
		t.Fatal(err)
	}
	a := testStudent("tok-a", "sess-1")
	b := testStudent("tok-b", "sess-1")
	b.JoinedAt = a.JoinedAt.Add(time.Minute)
	for _, st := range []*Student{a, b} {
		if err := s.AddStudent(ctx, st); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListStudents(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Token != "tok-a" || list[1].Token != "tok-b" {
		t.Errorf("list = %+v", list)
	}

	if n, err := s.CountStudents(ctx, "sess-1"); err != nil || n != 2 {
		t.Errorf("count = %d, %v", n, err)
	}
	if n, err := s.CountStudents(ctx, "no-such-session"); err != nil || n != 0 {
		t.Errorf("empty count = %d, %v", n, err)
	}
}

func TestLLMEventRecordAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// The store satisfies the provider logging interface.
	var _ llm.Recorder = s

	records := []llm.RequestRecord{
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "dialogue", InputTokens: 120, OutputTokens: 40, LatencyMs: 800, CostUSD: 0.0001, Success: true},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "assessment", InputTokens: 300, OutputTokens: 90, LatencyMs: 1200, CostUSD: 0.0002, Success: true},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "dialogue", LatencyMs: 20000, Success: false, ErrorMessage: "timeout"},
	}
	for _, rec := range records {
		if err := s.RecordLLMRequest(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	events, err := s.ListLLMEvents(ctx, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d", len(events))
	}
	if events[0].Success || events[0].ErrorMessage != "timeout" {
		t.Errorf("newest first expected, got %+v", events[0])
	}

	stats, err := s.LLMStatsSummary(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRequests != 3 || stats.Failures != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.InputTokens != 420 || stats.OutputTokens != 130 {
		t.Errorf("token totals = %d/%d", stats.InputTokens, stats.OutputTokens)
	}
	if stats.ByPurpose["dialogue"] != 2 || stats.ByPurpose["assessment"] != 1 {
		t.Errorf("by purpose = %v", stats.ByPurpose)
	}
}
