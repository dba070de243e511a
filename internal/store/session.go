package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Session is one teacher-created tutoring room.
type Session struct {
	ID          string
	Title       string
	Description string
	Topic       string
	Difficulty  string
	TeacherKey  string
	Status      string
	ShowScore   bool
	MaxStudents int
	CreatedAt   time.Time
	ExpiresAt   time.Time
	EndedAt     *time.Time
}

// TimeLimit is the session's configured duration, derived from its
// creation and expiry times.
func (s *Session) TimeLimit() time.Duration {
	return s.ExpiresAt.Sub(s.CreatedAt)
}

// Active reports whether the session accepts new activity at the given
// time.
func (s *Session) Active(now time.Time) bool {
	return s.Status == "active" && now.Before(s.ExpiresAt)
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, description, topic, difficulty, teacher_key, status, show_score, max_students, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.Description, sess.Topic, sess.Difficulty, sess.TeacherKey, sess.Status,
		boolToInt(sess.ShowScore), sess.MaxStudents, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession loads one session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, topic, difficulty, teacher_key, status, show_score, max_students, created_at, expires_at, ended_at
		 FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// ListSessions returns all sessions created under the given teacher key,
// newest first.
func (s *Store) ListSessions(ctx context.Context, teacherKey string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, topic, difficulty, teacher_key, status, show_score, max_students, created_at, expires_at, ended_at
		 FROM sessions WHERE teacher_key = ? ORDER BY created_at DESC`, teacherKey)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// EndSession marks a session ended. Idempotent.
func (s *Store) EndSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = 'ended', ended_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes a session and, via cascade, its students,
// messages, and score history.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*Session, error) {
	var sess Session
	var showScore int
	var endedAt sql.NullTime
	err := r.Scan(&sess.ID, &sess.Title, &sess.Description, &sess.Topic, &sess.Difficulty, &sess.TeacherKey,
		&sess.Status, &showScore, &sess.MaxStudents, &sess.CreatedAt, &sess.ExpiresAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.ShowScore = showScore != 0
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	return &sess, nil
}
