package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

var testSchema = &Schema{
	Name:        "turn-evaluation-test",
	Description: "test schema",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"maximum": 100,
			},
			"comment": map[string]any{
				"type": "string",
			},
		},
		"required":             []any{"score", "comment"},
		"additionalProperties": false,
	},
}

func TestValidateResponse_Valid(t *testing.T) {
	raw := json.RawMessage(`{"score": 42, "comment": "solid basic grasp"}`)
	if err := validateResponse(testSchema, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateResponse_MissingRequired(t *testing.T) {
	raw := json.RawMessage(`{"score": 42}`)
	err := validateResponse(testSchema, raw)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestValidateResponse_OutOfRange(t *testing.T) {
	raw := json.RawMessage(`{"score": 120, "comment": "x"}`)
	err := validateResponse(testSchema, raw)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestValidateResponse_MalformedJSON(t *testing.T) {
	raw := json.RawMessage(`{score: 42`)
	err := validateResponse(testSchema, raw)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`not even json`)); err != nil {
		t.Fatalf("nil schema should skip validation, got %v", err)
	}
}
