// Package tutor generates Socratic dialogue: question-driven tutoring that
// never hands the learner a direct answer.
package tutor

import (
	"context"
	"fmt"

	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/llm"
	"github.com/hmkang/maieut/internal/scoring"
)

// Config holds generation parameters for the dialogue model.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns sensible defaults. Temperature stays warm: the
// dialogue should vary, unlike the assessment.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   400,
		Temperature: 0.7,
	}
}

// Tutor is the dialogue model adapter. It implements
// conversation.Dialoguer.
type Tutor struct {
	provider llm.Provider
	cfg      Config
}

// New creates a dialogue adapter over the given provider.
func New(provider llm.Provider, cfg Config) *Tutor {
	return &Tutor{provider: provider, cfg: cfg}
}

// Opening generates the greeting that starts a conversation. The history
// is empty and the score is zero, so the prompt only carries the topic and
// difficulty.
func (t *Tutor) Opening(ctx context.Context, topic string, difficulty scoring.Difficulty) (string, error) {
	ctx = llm.WithPurpose(ctx, "dialogue")

	req := llm.Request{
		System: buildSystemPrompt(topic, difficulty, 0),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildOpeningMessage(topic)},
		},
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: t.cfg.Temperature,
	}

	resp, err := t.provider.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("opening generation: %w", err)
	}
	return resp.Text(), nil
}

// Respond generates the next Socratic reply. The transcript already ends
// with the student's newest message; the current score shapes how deep the
// questioning goes.
func (t *Tutor) Respond(ctx context.Context, topic string, difficulty scoring.Difficulty, history []conversation.Turn, currentScore int) (string, error) {
	ctx = llm.WithPurpose(ctx, "dialogue")

	req := llm.Request{
		System:      buildSystemPrompt(topic, difficulty, currentScore),
		Messages:    toModelMessages(history),
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: t.cfg.Temperature,
	}

	resp, err := t.provider.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("dialogue generation: %w", err)
	}
	return resp.Text(), nil
}

// ValidateTopic asks the model whether a topic is appropriate for the
// target audience. Used to gate session creation.
func (t *Tutor) ValidateTopic(ctx context.Context, topic string, difficulty scoring.Difficulty) (bool, error) {
	ctx = llm.WithPurpose(ctx, "topic-validation")

	profile, err := scoring.ProfileFor(difficulty)
	if err != nil {
		return false, err
	}

	req := llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildTopicValidationMessage(topic, profile)},
		},
		MaxTokens:   10,
		Temperature: 0.1,
	}

	resp, err := t.provider.Generate(ctx, req)
	if err != nil {
		return false, fmt.Errorf("topic validation: %w", err)
	}
	return parseYesNo(resp.Text()), nil
}

func toModelMessages(history []conversation.Turn) []llm.Message {
	out := make([]llm.Message, len(history))
	for i, turn := range history {
		role := llm.RoleUser
		if turn.Role == conversation.RoleAssistant {
			role = llm.RoleAssistant
		}
		out[i] = llm.Message{Role: role, Content: turn.Content}
	}
	return out
}
