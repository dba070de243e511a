package assess

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/llm"
	"github.com/hmkang/maieut/internal/scoring"
)

func sampleInput() conversation.AssessmentInput {
	return conversation.AssessmentInput{
		Topic:         "photosynthesis",
		Difficulty:    scoring.DifficultyNormal,
		LastUserMsg:   "Plants turn light into sugar using chlorophyll.",
		TutorResponse: "Where in the plant does that happen?",
		CurrentScore:  40,
		CurrentDims:   conversation.Dimensions{Depth: 40, Breadth: 30, Application: 20, Metacognition: 25, Engagement: 60},
		History: []conversation.Turn{
			{Role: conversation.RoleAssistant, Content: "What do plants eat?"},
			{Role: conversation.RoleUser, Content: "Plants turn light into sugar using chlorophyll."},
		},
	}
}

func cannedEvaluation(t *testing.T) llm.MockResponse {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"suggested_score": 55,
		"dimensions": map[string]int{
			"depth": 50, "breadth": 35, "application": 25, "metacognition": 30, "engagement": 65,
		},
		"insights":          []string{"names the mechanism correctly"},
		"growth_indicators": []string{"moved from what to how"},
		"next_focus":        "where the reaction takes place",
	})
	require.NoError(t, err)
	return llm.MockResponse{Content: raw}
}

func TestEvaluate(t *testing.T) {
	mock := llm.NewMockProvider(cannedEvaluation(t))
	ev := New(mock, DefaultConfig())

	got, err := ev.Evaluate(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, 55, got.SuggestedScore)
	assert.Equal(t, 50, got.Dims.Depth)
	assert.Equal(t, 65, got.Dims.Engagement)
	assert.Len(t, got.Insights, 1)
	assert.Equal(t, "where the reaction takes place", got.NextFocus)

	call := mock.LastCall()
	require.NotNil(t, call.Schema)
	assert.Equal(t, "understanding-evaluation", call.Schema.Name)
	assert.Contains(t, call.System, "0-20", "system prompt should carry the rubric")
	assert.Contains(t, call.System, "photosynthesis")
}

func TestEvaluateTrimsHistory(t *testing.T) {
	in := sampleInput()
	in.History = nil
	for i := 0; i < 10; i++ {
		in.History = append(in.History,
			conversation.Turn{Role: conversation.RoleUser, Content: "answer"},
			conversation.Turn{Role: conversation.RoleAssistant, Content: "question"},
		)
	}
	in.History = append(in.History, conversation.Turn{Role: conversation.RoleUser, Content: "unique-final-marker"})

	msg := buildAssessmentMessage(in)
	assert.Contains(t, msg, "unique-final-marker", "latest turns must be included")
	assert.LessOrEqual(t, strings.Count(msg, "Tutor: question"), contextWindow, "history not trimmed")
}

func TestEvaluateProviderError(t *testing.T) {
	ev := New(llm.NewMockProvider(), DefaultConfig())
	_, err := ev.Evaluate(context.Background(), sampleInput())
	require.Error(t, err)
}

func TestEvaluateMalformedPayload(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`"not an object"`)})
	ev := New(mock, DefaultConfig())
	_, err := ev.Evaluate(context.Background(), sampleInput())
	require.Error(t, err)
}
