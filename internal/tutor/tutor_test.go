package tutor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/llm"
	"github.com/hmkang/maieut/internal/scoring"
)

func canned(s string) llm.MockResponse {
	raw, _ := json.Marshal(s)
	return llm.MockResponse{Content: raw}
}

func TestOpening(t *testing.T) {
	mock := llm.NewMockProvider(canned("Hello! What do you already know about photosynthesis?"))

	tut := New(mock, DefaultConfig())
	greeting, err := tut.Opening(context.Background(), "photosynthesis", scoring.DifficultyNormal)
	if err != nil {
		t.Fatalf("Opening: %v", err)
	}
	if !strings.Contains(greeting, "photosynthesis") {
		t.Errorf("greeting = %q, want topic mention", greeting)
	}

	call := mock.LastCall()
	if !strings.Contains(call.System, "photosynthesis") {
		t.Error("system prompt missing topic")
	}
	if len(call.Messages) != 1 || call.Messages[0].Role != llm.RoleUser {
		t.Errorf("opening request should carry a single user message, got %d", len(call.Messages))
	}
}

func TestRespondCarriesHistory(t *testing.T) {
	mock := llm.NewMockProvider(canned("Good. Why do leaves need light for that?"))

	tut := New(mock, DefaultConfig())
	history := []conversation.Turn{
		{Role: conversation.RoleAssistant, Content: "What do plants eat?"},
		{Role: conversation.RoleUser, Content: "They make sugar from sunlight."},
	}

	_, err := tut.Respond(context.Background(), "photosynthesis", scoring.DifficultyEasy, history, 40)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	call := mock.LastCall()
	if len(call.Messages) != 2 {
		t.Fatalf("messages = %d, want full history", len(call.Messages))
	}
	if call.Messages[0].Role != llm.RoleAssistant || call.Messages[1].Role != llm.RoleUser {
		t.Error("history roles not preserved")
	}
}

func TestRespondError(t *testing.T) {
	mock := llm.NewMockProvider()

	tut := New(mock, DefaultConfig())
	_, err := tut.Respond(context.Background(), "gravity", scoring.DifficultyHard, nil, 50)
	if err == nil {
		t.Fatal("expected error from failing provider")
	}
}

func TestSystemPromptTracksScore(t *testing.T) {
	low := buildSystemPrompt("entropy", scoring.DifficultyNormal, 10)
	mid := buildSystemPrompt("entropy", scoring.DifficultyNormal, 50)
	high := buildSystemPrompt("entropy", scoring.DifficultyNormal, 90)

	if !strings.Contains(low, "basic concepts") {
		t.Error("low-score prompt should focus on basics")
	}
	if !strings.Contains(mid, "connections") {
		t.Error("mid-score prompt should push connections")
	}
	if !strings.Contains(high, "synthesis") {
		t.Error("high-score prompt should demand synthesis")
	}
}

func TestApproachBoundaries(t *testing.T) {
	if approachFor(29) == approachFor(30) {
		t.Error("band should change at 30")
	}
	if approachFor(69) == approachFor(70) {
		t.Error("band should change at 70")
	}
}

func TestValidateTopic(t *testing.T) {
	cases := []struct {
		answer string
		want   bool
	}{
		{"yes", true},
		{"Yes.", true},
		{"no", false},
		{"No, too shallow.", false},
		{"maybe", false},
	}
	for _, tc := range cases {
		mock := llm.NewMockProvider(canned(tc.answer))
		tut := New(mock, DefaultConfig())

		ok, err := tut.ValidateTopic(context.Background(), "the water cycle", scoring.DifficultyEasy)
		if err != nil {
			t.Fatalf("ValidateTopic(%q): %v", tc.answer, err)
		}
		if ok != tc.want {
			t.Errorf("ValidateTopic answer %q = %v, want %v", tc.answer, ok, tc.want)
		}
	}
}

func TestValidateTopicRejectsBadDifficulty(t *testing.T) {
	tut := New(llm.NewMockProvider(), DefaultConfig())
	_, err := tut.ValidateTopic(context.Background(), "anything", scoring.Difficulty("impossible"))
	if err == nil {
		t.Fatal("expected invalid difficulty error")
	}
}
