// Package session is the application layer: it owns session lifecycle,
// student identity, per-student turn serialization, and the mapping
// between persisted rows and live conversation state.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/metrics"
	"github.com/hmkang/maieut/internal/scoring"
	"github.com/hmkang/maieut/internal/store"
)

// Lifetime is the default time limit for a session.
const Lifetime = 2 * time.Hour

// DefaultMaxStudents caps how many learners a session admits unless the
// teacher chose otherwise.
const DefaultMaxStudents = 30

var (
	// ErrSessionNotFound covers unknown and checksum-invalid session IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionInactive is returned when the session has ended or expired.
	ErrSessionInactive = errors.New("session has ended or expired")

	// ErrStudentNotFound is returned for unknown student tokens.
	ErrStudentNotFound = errors.New("student not found")

	// ErrTopicRejected is returned when the topic fails validation.
	ErrTopicRejected = errors.New("topic not suitable for this audience")

	// ErrSessionFull is returned when a session hit its student cap.
	ErrSessionFull = errors.New("session is full")

	// ErrForbidden is returned when a teacher key does not own the session.
	ErrForbidden = errors.New("session belongs to a different teacher key")
)

// TopicValidator checks whether a topic suits Socratic exploration.
// The tutor package implements it.
type TopicValidator interface {
	ValidateTopic(ctx context.Context, topic string, difficulty scoring.Difficulty) (bool, error)
}

// Service coordinates the store, the orchestrator, and per-student locks.
type Service struct {
	store     *store.Store
	orch      *conversation.Orchestrator
	validator TopicValidator
	metrics   *metrics.Metrics
	locks     *keyedMutex
	now       func() time.Time
}

// New wires the application layer. validator and m may be nil; topic
// validation and instrumentation are then skipped.
func New(st *store.Store, orch *conversation.Orchestrator, validator TopicValidator, m *metrics.Metrics) *Service {
	return &Service{
		store:     st,
		orch:      orch,
		validator: validator,
		metrics:   m,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// CreateParams are the teacher-supplied session attributes. Zero values
// take defaults: Title falls back to the topic, TimeLimit to Lifetime,
// MaxStudents to DefaultMaxStudents, and a nil ShowScore leaves scores
// visible to learners.
type CreateParams struct {
	Topic       string
	Title       string
	Description string
	Difficulty  scoring.Difficulty
	ShowScore   *bool
	TimeLimit   time.Duration
	MaxStudents int
}

// Create opens a new session for a teacher. The topic is validated by the
// dialogue model; a validation outage fails open so a model outage never
// blocks teachers.
func (s *Service) Create(ctx context.Context, teacherKey string, p CreateParams) (*store.Session, error) {
	if _, err := scoring.ProfileFor(p.Difficulty); err != nil {
		return nil, err
	}
	if p.Topic == "" {
		return nil, fmt.Errorf("%w: empty topic", ErrTopicRejected)
	}

	if s.validator != nil {
		ok, err := s.validator.ValidateTopic(ctx, p.Topic, p.Difficulty)
		if err == nil && !ok {
			return nil, ErrTopicRejected
		}
	}

	title := p.Title
	if title == "" {
		title = p.Topic
	}
	timeLimit := p.TimeLimit
	if timeLimit <= 0 {
		timeLimit = Lifetime
	}
	maxStudents := p.MaxStudents
	if maxStudents <= 0 {
		maxStudents = DefaultMaxStudents
	}
	showScore := true
	if p.ShowScore != nil {
		showScore = *p.ShowScore
	}

	now := s.now().UTC()
	sess := &store.Session{
		ID:          NewSessionID(now),
		Title:       title,
		Description: p.Description,
		Topic:       p.Topic,
		Difficulty:  string(p.Difficulty),
		TeacherKey:  teacherKey,
		Status:      "active",
		ShowScore:   showScore,
		MaxStudents: maxStudents,
		CreatedAt:   now,
		ExpiresAt:   now.Add(timeLimit),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ValidateTopic exposes topic validation as its own operation, so the
// teacher UI can check before creating.
func (s *Service) ValidateTopic(ctx context.Context, topic string, difficulty scoring.Difficulty) (bool, error) {
	if _, err := scoring.ProfileFor(difficulty); err != nil {
		return false, err
	}
	if s.validator == nil {
		return true, nil
	}
	return s.validator.ValidateTopic(ctx, topic, difficulty)
}

// JoinResult is what a learner receives on entering a session.
type JoinResult struct {
	Token    string
	Greeting string
	Session  *store.Session
}

// Join registers a learner and opens their conversation with the tutor's
// greeting. Sessions at their student cap reject new learners.
func (s *Service) Join(ctx context.Context, sessionID, name string) (*JoinResult, error) {
	sess, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountStudents(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if count >= sess.MaxStudents {
		return nil, ErrSessionFull
	}

	now := s.now().UTC()
	st := &store.Student{
		Token:     NewStudentToken(),
		SessionID: sess.ID,
		Name:      name,
		Phase:     conversation.PhaseUninitialized.String(),
		JoinedAt:  now,
		UpdatedAt: now,
	}
	if err := s.store.AddStudent(ctx, st); err != nil {
		return nil, err
	}

	state := conversation.NewState(sess.Topic, scoring.Difficulty(sess.Difficulty))
	greeting, err := s.orch.Open(ctx, state)
	if err != nil {
		return nil, err
	}

	st.Phase = state.Phase.String()
	if err := s.store.SaveOpening(ctx, st, greeting, s.now().UTC()); err != nil {
		return nil, err
	}

	return &JoinResult{Token: st.Token, Greeting: greeting, Session: sess}, nil
}

// ChatResult is what a learner receives after one turn.
type ChatResult struct {
	Response         string
	Score            int
	Dims             conversation.Dimensions
	Completed        bool
	JustCompleted    bool
	Feedback         string
	Insights         []string
	GrowthIndicators []string
	NextFocus        string
}

// Chat runs one tutoring turn for the student behind the token. Turns for
// the same student are serialized; concurrent calls queue rather than
// interleave.
func (s *Service) Chat(ctx context.Context, token, message string) (*ChatResult, error) {
	unlock := s.locks.Lock(token)
	defer unlock()

	st, err := s.store.GetStudent(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}

	sess, err := s.activeSession(ctx, st.SessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.store.History(ctx, token)
	if err != nil {
		return nil, err
	}

	state := &conversation.State{
		Topic:      sess.Topic,
		Difficulty: scoring.Difficulty(sess.Difficulty),
		History:    history,
		Score:      st.Score,
		Dims:       st.Dims,
		Completed:  st.Completed,
		Phase:      conversation.ParsePhase(st.Phase),
	}

	start := s.now()
	res, err := s.orch.Step(ctx, state, message)
	if err != nil {
		return nil, err
	}

	st.Score = res.Score
	st.Dims = res.Dims
	st.Completed = res.Completed
	st.Phase = state.Phase.String()
	if err := s.store.SaveTurn(ctx, st, message, res.TutorUtterance, s.now().UTC()); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TurnsTotal.WithLabelValues(sess.Difficulty).Inc()
		s.metrics.TurnDuration.Observe(s.now().Sub(start).Seconds())
		if res.JustCompleted {
			s.metrics.CompletionsTotal.Inc()
		}
	}

	return &ChatResult{
		Response:         res.TutorUtterance,
		Score:            res.Score,
		Dims:             res.Dims,
		Completed:        res.Completed,
		JustCompleted:    res.JustCompleted,
		Feedback:         ProgressFeedback(res.Score),
		Insights:         res.Insights,
		GrowthIndicators: res.GrowthIndicators,
		NextFocus:        res.NextFocus,
	}, nil
}

// StudentStanding is one learner's live position for the teacher view.
type StudentStanding struct {
	Name      string
	Score     int
	Dims      conversation.Dimensions
	Completed bool
	Phase     string
	JoinedAt  time.Time
	UpdatedAt time.Time
}

// Stats is a session's live aggregate.
type Stats struct {
	Session      *store.Session
	StudentCount int
	Completed    int
	AverageScore float64
	Students     []StudentStanding
}

// Stats returns the live state of a session for its owning teacher.
func (s *Service) Stats(ctx context.Context, teacherKey, sessionID string) (*Stats, error) {
	sess, err := s.ownedSession(ctx, teacherKey, sessionID)
	if err != nil {
		return nil, err
	}

	students, err := s.store.ListStudents(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	out := &Stats{Session: sess, StudentCount: len(students)}
	var sum int
	for _, st := range students {
		sum += st.Score
		if st.Completed {
			out.Completed++
		}
		out.Students = append(out.Students, StudentStanding{
			Name:      st.Name,
			Score:     st.Score,
			Dims:      st.Dims,
			Completed: st.Completed,
			Phase:     st.Phase,
			JoinedAt:  st.JoinedAt,
			UpdatedAt: st.UpdatedAt,
		})
	}
	if len(students) > 0 {
		out.AverageScore = float64(sum) / float64(len(students))
	}
	return out, nil
}

// StudentScores is one learner's score trajectory for the teacher view.
type StudentScores struct {
	Name   string
	Points []store.ScorePoint
}

// Scores returns every learner's score history for the owning teacher,
// in join order.
func (s *Service) Scores(ctx context.Context, teacherKey, sessionID string) ([]StudentScores, error) {
	sess, err := s.ownedSession(ctx, teacherKey, sessionID)
	if err != nil {
		return nil, err
	}

	students, err := s.store.ListStudents(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	out := make([]StudentScores, 0, len(students))
	for _, st := range students {
		points, err := s.store.ScoreHistory(ctx, st.Token)
		if err != nil {
			return nil, err
		}
		out = append(out, StudentScores{Name: st.Name, Points: points})
	}
	return out, nil
}

// Transcript returns one learner's conversation, oldest first. The token
// must belong to the given session; tokens from other sessions read as
// unknown.
func (s *Service) Transcript(ctx context.Context, sessionID, token string) ([]conversation.Turn, error) {
	if !ValidSessionID(sessionID) {
		return nil, ErrSessionNotFound
	}
	st, err := s.store.GetStudent(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}
	if st.SessionID != sessionID {
		return nil, ErrStudentNotFound
	}
	return s.store.History(ctx, token)
}

// Info returns a session's public details for the join screen. Ended and
// expired sessions are still returned; the caller surfaces their state.
func (s *Service) Info(ctx context.Context, sessionID string) (*store.Session, error) {
	if !ValidSessionID(sessionID) {
		return nil, ErrSessionNotFound
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// List returns the teacher's sessions, newest first.
func (s *Service) List(ctx context.Context, teacherKey string) ([]*store.Session, error) {
	return s.store.ListSessions(ctx, teacherKey)
}

// End closes a session. Learners can no longer chat in it.
func (s *Service) End(ctx context.Context, teacherKey, sessionID string) error {
	sess, err := s.ownedSession(ctx, teacherKey, sessionID)
	if err != nil {
		return err
	}
	return s.store.EndSession(ctx, sess.ID, s.now().UTC())
}

// Delete removes a session and all its data.
func (s *Service) Delete(ctx context.Context, teacherKey, sessionID string) error {
	sess, err := s.ownedSession(ctx, teacherKey, sessionID)
	if err != nil {
		return err
	}
	return s.store.DeleteSession(ctx, sess.ID)
}

func (s *Service) activeSession(ctx context.Context, sessionID string) (*store.Session, error) {
	if !ValidSessionID(sessionID) {
		return nil, ErrSessionNotFound
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !sess.Active(s.now()) {
		return nil, ErrSessionInactive
	}
	return sess, nil
}

func (s *Service) ownedSession(ctx context.Context, teacherKey, sessionID string) (*store.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sess.TeacherKey != teacherKey {
		return nil, ErrForbidden
	}
	return sess, nil
}
