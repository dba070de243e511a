package assess

import "github.com/hmkang/maieut/internal/llm"

// evaluationSchema constrains the assessment model to the exact structure
// the orchestrator consumes. Scores are integers 0-100; the model suggests,
// the adjuster decides.
var evaluationSchema = &llm.Schema{
	Name:        "understanding-evaluation",
	Description: "Evaluation of a student's understanding after one Socratic exchange",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"suggested_score": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     100,
				"description": "Overall understanding score suggested for the student",
			},
			"dimensions": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"depth":         dimensionProperty("Depth of conceptual understanding"),
					"breadth":       dimensionProperty("Breadth of connections to related ideas"),
					"application":   dimensionProperty("Ability to apply the concept to new situations"),
					"metacognition": dimensionProperty("Awareness of their own reasoning process"),
					"engagement":    dimensionProperty("Active participation and curiosity"),
				},
				"required":             []any{"depth", "breadth", "application", "metacognition", "engagement"},
				"additionalProperties": false,
			},
			"insights": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"maxItems":    3,
				"description": "Qualitative observations about the student's thinking",
			},
			"growth_indicators": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"maxItems":    3,
				"description": "Concrete signs of progress since earlier turns",
			},
			"next_focus": map[string]any{
				"type":        "string",
				"description": "Where the dialogue should go next",
			},
		},
		"required":             []any{"suggested_score", "dimensions", "insights", "growth_indicators", "next_focus"},
		"additionalProperties": false,
	},
}

func dimensionProperty(desc string) map[string]any {
	return map[string]any{
		"type":        "integer",
		"minimum":     0,
		"maximum":     100,
		"description": desc,
	}
}
