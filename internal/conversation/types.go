package conversation

import "github.com/hmkang/maieut/internal/scoring"

// Role identifies the speaker of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in the dialogue transcript. The transcript is
// append-only and its order is meaningful: it is fed back into both model
// calls every turn.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Dimensions holds the five independent axes of understanding, each 0-100.
// Each dimension keeps its own baseline across turns; the per-turn rate
// limits apply to each axis against its own prior value.
type Dimensions struct {
	Depth         int `json:"depth"`
	Breadth       int `json:"breadth"`
	Application   int `json:"application"`
	Metacognition int `json:"metacognition"`
	Engagement    int `json:"engagement"`
}

// Adjust applies the rate-limit profile to every axis independently,
// each bounded by its own prior value.
func (d Dimensions) Adjust(prior Dimensions, p scoring.Profile) Dimensions {
	return Dimensions{
		Depth:         scoring.Adjust(d.Depth, prior.Depth, p),
		Breadth:       scoring.Adjust(d.Breadth, prior.Breadth, p),
		Application:   scoring.Adjust(d.Application, prior.Application, p),
		Metacognition: scoring.Adjust(d.Metacognition, prior.Metacognition, p),
		Engagement:    scoring.Adjust(d.Engagement, prior.Engagement, p),
	}
}

// Valid reports whether every axis is within [0,100].
func (d Dimensions) Valid() bool {
	for _, v := range []int{d.Depth, d.Breadth, d.Application, d.Metacognition, d.Engagement} {
		if v < 0 || v > 100 {
			return false
		}
	}
	return true
}

// Phase is the lifecycle stage of one student's conversation.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseAwaitingFirstMessage
	PhaseInConversation
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseAwaitingFirstMessage:
		return "awaiting-first-message"
	case PhaseInConversation:
		return "in-conversation"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

// ParsePhase is the inverse of Phase.String. Unknown strings map to
// PhaseUninitialized so stale rows degrade to a fresh conversation rather
// than an error.
func ParsePhase(s string) Phase {
	switch s {
	case "awaiting-first-message":
		return PhaseAwaitingFirstMessage
	case "in-conversation":
		return PhaseInConversation
	case "completed":
		return PhaseCompleted
	}
	return PhaseUninitialized
}

// State is the per-student conversation record. It is owned and mutated
// exclusively by the Orchestrator; callers persist and reload it between
// turns but never modify it directly.
type State struct {
	Topic      string
	Difficulty scoring.Difficulty
	History    []Turn
	Score      int
	Dims       Dimensions
	Completed  bool
	Phase      Phase
}

// NewState creates a conversation state ready for its opening turn.
func NewState(topic string, difficulty scoring.Difficulty) *State {
	return &State{
		Topic:      topic,
		Difficulty: difficulty,
		Phase:      PhaseUninitialized,
	}
}

// Evaluation is the assessment model's judgement of the latest exchange.
type Evaluation struct {
	// SuggestedScore is the model's proposed overall understanding score.
	// It is a suggestion only: the score adjuster bounds it before it
	// touches the state.
	SuggestedScore int

	// Dims are the suggested per-dimension scores, bounded the same way.
	Dims Dimensions

	// Insights are qualitative observations about the learner's thinking.
	Insights []string

	// GrowthIndicators call out visible progress since earlier turns.
	GrowthIndicators []string

	// NextFocus suggests where the dialogue should go next.
	NextFocus string
}
