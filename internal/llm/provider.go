package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider is the outbound model-call abstraction. Both tutoring roles
// (dialogue generation and understanding assessment) go through it.
// Implementations must be safe for concurrent use: independent student
// turns share one provider.
type Provider interface {
	// Generate sends a prompt and returns the model output. When the
	// request carries a Schema the content is validated JSON conforming
	// to it; otherwise it is the raw text reply.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the configured model identifier.
	ModelID() string
}

// Request describes one model call.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Messages is the conversation fed to the model, oldest first.
	Messages []Message

	// Schema, when set, requests structured JSON output conforming to it.
	Schema *Schema

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature controls randomness, 0.0-1.0. Zero means deterministic.
	Temperature float64
}

// Message is a single turn in the prompt.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies the schema, kebab-case (tool name for Anthropic,
	// schema name for OpenAI).
	Name string

	// Description tells the model what the structure represents.
	Description string

	// Definition is the JSON Schema document as a map.
	Definition map[string]any
}

// Response holds the model output.
type Response struct {
	// Content is validated JSON when a Schema was requested, raw text
	// bytes otherwise.
	Content json.RawMessage

	// Usage reports token consumption.
	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Text returns the content as a trimmed plain string. Used by the dialogue
// path, which requests free-form text rather than structured output.
func (r *Response) Text() string {
	s := string(r.Content)
	// Some providers return plain-text replies wrapped as a JSON string.
	var unquoted string
	if err := json.Unmarshal(r.Content, &unquoted); err == nil {
		s = unquoted
	}
	return strings.TrimSpace(s)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
