// Package assess runs the understanding assessment: an independent model
// reads each exchange and suggests updated scores against a fixed rubric.
package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/llm"
	"github.com/hmkang/maieut/internal/scoring"
)

// contextWindow is how many trailing transcript turns the assessment sees
// beyond the latest exchange. Older turns add cost without changing the
// judgement.
const contextWindow = 6

// Config holds generation parameters for the assessment model.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig keeps the temperature near zero. The assessment should be
// as repeatable as a structured judgement can be.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   600,
		Temperature: 0.1,
	}
}

// Evaluator is the assessment model adapter. It implements
// conversation.Assessor.
type Evaluator struct {
	provider llm.Provider
	cfg      Config
}

// New creates an assessment adapter over the given provider.
func New(provider llm.Provider, cfg Config) *Evaluator {
	return &Evaluator{provider: provider, cfg: cfg}
}

// evaluationPayload mirrors the JSON schema on the wire.
type evaluationPayload struct {
	SuggestedScore int `json:"suggested_score"`
	Dimensions     struct {
		Depth         int `json:"depth"`
		Breadth       int `json:"breadth"`
		Application   int `json:"application"`
		Metacognition int `json:"metacognition"`
		Engagement    int `json:"engagement"`
	} `json:"dimensions"`
	Insights         []string `json:"insights"`
	GrowthIndicators []string `json:"growth_indicators"`
	NextFocus        string   `json:"next_focus"`
}

// Evaluate judges the latest exchange and returns suggested scores. The
// caller bounds them; this layer only ensures the output parses and
// conforms to the schema.
func (e *Evaluator) Evaluate(ctx context.Context, in conversation.AssessmentInput) (*conversation.Evaluation, error) {
	ctx = llm.WithPurpose(ctx, "assessment")

	req := llm.Request{
		System: buildAssessmentSystemPrompt(in),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildAssessmentMessage(in)},
		},
		Schema:      evaluationSchema,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	}

	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("assessment generation: %w", err)
	}

	var payload evaluationPayload
	if err := json.Unmarshal(resp.Content, &payload); err != nil {
		return nil, fmt.Errorf("assessment decode: %w", err)
	}

	return &conversation.Evaluation{
		SuggestedScore: payload.SuggestedScore,
		Dims: conversation.Dimensions{
			Depth:         payload.Dimensions.Depth,
			Breadth:       payload.Dimensions.Breadth,
			Application:   payload.Dimensions.Application,
			Metacognition: payload.Dimensions.Metacognition,
			Engagement:    payload.Dimensions.Engagement,
		},
		Insights:         payload.Insights,
		GrowthIndicators: payload.GrowthIndicators,
		NextFocus:        payload.NextFocus,
	}, nil
}

func buildAssessmentSystemPrompt(in conversation.AssessmentInput) string {
	profile, err := scoring.ProfileFor(in.Difficulty)
	if err != nil {
		profile, _ = scoring.ProfileFor(scoring.DifficultyNormal)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are an assessment specialist observing a Socratic tutoring session about "%s".
Audience: %s.

Score the student's understanding on five dimensions and overall, each 0-100, using this rubric:
- 0-20: no grasp of the concept, or off-topic responses
- 21-40: recognizes terms but cannot explain them
- 41-60: explains the concept in their own words with some gaps
- 61-80: explains accurately and connects to related ideas
- 81-100: applies the concept to new situations and reasons about edge cases

Completion standard for this session: %s

Judge only what the student wrote, not the tutor's questions. Be conservative: a single good answer does not prove deep understanding.`, in.Topic, profile.Audience, profile.CompletionCriteria)
	return b.String()
}

func buildAssessmentMessage(in conversation.AssessmentInput) string {
	var b strings.Builder

	recent := in.History
	if len(recent) > contextWindow {
		recent = recent[len(recent)-contextWindow:]
	}
	if len(recent) > 0 {
		b.WriteString("Recent transcript:\n")
		for _, turn := range recent {
			speaker := "Student"
			if turn.Role == conversation.RoleAssistant {
				speaker = "Tutor"
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, turn.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Latest student message: %s\n", in.LastUserMsg)
	fmt.Fprintf(&b, "Tutor's reply: %s\n\n", in.TutorResponse)
	fmt.Fprintf(&b, "Current overall score: %d\n", in.CurrentScore)
	fmt.Fprintf(&b, "Current dimensions: depth %d, breadth %d, application %d, metacognition %d, engagement %d\n",
		in.CurrentDims.Depth, in.CurrentDims.Breadth, in.CurrentDims.Application,
		in.CurrentDims.Metacognition, in.CurrentDims.Engagement)
	b.WriteString("\nEvaluate the student's understanding after this exchange.")
	return b.String()
}
