package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/hmkang/maieut/internal/scoring"
)

// FallbackUtterance is returned to the learner when the dialogue model is
// unavailable. The conversation must keep moving; a model outage is never
// surfaced as an error to the student.
const FallbackUtterance = "Hello! Shall we explore this together?"

// ErrInvalidScore is returned when a caller supplies a score outside
// [0,100]. Caller state is validated, never silently repaired: clamping is
// reserved for model-suggested values inside the score adjuster.
var ErrInvalidScore = errors.New("score out of range [0,100]")

// Dialoguer generates tutor utterances. Implemented by the tutor package;
// tests substitute deterministic fakes.
type Dialoguer interface {
	// Opening produces the greeting that starts a conversation.
	Opening(ctx context.Context, topic string, difficulty scoring.Difficulty) (string, error)

	// Respond produces the next Socratic reply given the transcript,
	// which already ends with the student's newest message.
	Respond(ctx context.Context, topic string, difficulty scoring.Difficulty, history []Turn, currentScore int) (string, error)
}

// Assessor judges the latest exchange. Implemented by the assess package.
type Assessor interface {
	Evaluate(ctx context.Context, in AssessmentInput) (*Evaluation, error)
}

// AssessmentInput is everything the assessment model sees for one turn.
type AssessmentInput struct {
	Topic         string
	Difficulty    scoring.Difficulty
	LastUserMsg   string
	TutorResponse string
	CurrentScore  int
	CurrentDims   Dimensions
	History       []Turn
}

// TurnResult is what one completed turn returns to the caller.
type TurnResult struct {
	TutorUtterance   string
	Score            int
	Dims             Dimensions
	Completed        bool
	JustCompleted    bool
	Insights         []string
	GrowthIndicators []string
	NextFocus        string
}

// Orchestrator drives the per-turn protocol for a single conversation.
// It owns all mutation of State. It holds no per-student bookkeeping
// itself, so one Orchestrator serves any number of conversations
// concurrently as long as each State is presented by one goroutine at a
// time (the session layer serializes per student).
type Orchestrator struct {
	dialoguer Dialoguer
	assessor  Assessor
}

// New wires the two model adapters into a turn coordinator.
func New(dialoguer Dialoguer, assessor Assessor) *Orchestrator {
	return &Orchestrator{dialoguer: dialoguer, assessor: assessor}
}

// Open performs the Uninitialized → AwaitingFirstMessage transition:
// it emits the opening greeting at score zero. There is nothing to assess
// yet, so the assessment model is not called.
func (o *Orchestrator) Open(ctx context.Context, state *State) (string, error) {
	if _, err := scoring.ProfileFor(state.Difficulty); err != nil {
		return "", err
	}

	greeting, err := o.dialoguer.Opening(ctx, state.Topic, state.Difficulty)
	if err != nil {
		greeting = FallbackUtterance
	}

	state.History = append(state.History, Turn{Role: RoleAssistant, Content: greeting})
	state.Phase = PhaseAwaitingFirstMessage
	return greeting, nil
}

// Step runs the full per-turn protocol for one student message:
//
//  1. append the user message to the transcript
//  2. dialogue call (fallback utterance on failure, turn continues)
//  3. append the tutor reply
//  4. assessment call (no-op evaluation on failure, turn continues)
//  5. bound the suggested scores with the difficulty profile
//  6. update state, latching Completed when the overall score reaches 100
//
// The two model calls are strictly sequential: the assessment reads the
// tutor's reply, so it cannot start until the dialogue call has resolved
// (or fallen back). No adapter failure aborts the turn; only invalid
// caller input produces an error here.
func (o *Orchestrator) Step(ctx context.Context, state *State, userMessage string) (*TurnResult, error) {
	profile, err := scoring.ProfileFor(state.Difficulty)
	if err != nil {
		return nil, err
	}
	if state.Score < 0 || state.Score > 100 {
		return nil, fmt.Errorf("current %w: %d", ErrInvalidScore, state.Score)
	}
	if !state.Dims.Valid() {
		return nil, fmt.Errorf("dimension %w: %+v", ErrInvalidScore, state.Dims)
	}

	wasCompleted := state.Completed

	state.History = append(state.History, Turn{Role: RoleUser, Content: userMessage})

	utterance, err := o.dialoguer.Respond(ctx, state.Topic, state.Difficulty, state.History, state.Score)
	if err != nil {
		utterance = FallbackUtterance
	}
	state.History = append(state.History, Turn{Role: RoleAssistant, Content: utterance})

	eval := o.evaluate(ctx, state, userMessage, utterance)

	newScore := scoring.Adjust(eval.SuggestedScore, state.Score, profile)
	newDims := eval.Dims.Adjust(state.Dims, profile)

	state.Score = newScore
	state.Dims = newDims
	if newScore == 100 {
		state.Completed = true
	}
	if state.Completed {
		state.Phase = PhaseCompleted
	} else {
		state.Phase = PhaseInConversation
	}

	return &TurnResult{
		TutorUtterance:   utterance,
		Score:            newScore,
		Dims:             newDims,
		Completed:        state.Completed,
		JustCompleted:    state.Completed && !wasCompleted,
		Insights:         eval.Insights,
		GrowthIndicators: eval.GrowthIndicators,
		NextFocus:        eval.NextFocus,
	}, nil
}

// evaluate runs the assessment call, substituting a zero-delta evaluation
// on failure so scoring outages never stall the dialogue.
func (o *Orchestrator) evaluate(ctx context.Context, state *State, userMessage, utterance string) *Evaluation {
	eval, err := o.assessor.Evaluate(ctx, AssessmentInput{
		Topic:         state.Topic,
		Difficulty:    state.Difficulty,
		LastUserMsg:   userMessage,
		TutorResponse: utterance,
		CurrentScore:  state.Score,
		CurrentDims:   state.Dims,
		History:       state.History,
	})
	if err != nil || eval == nil {
		return &Evaluation{
			SuggestedScore: state.Score,
			Dims:           state.Dims,
		}
	}
	return eval
}
