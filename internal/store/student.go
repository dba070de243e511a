package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hmkang/maieut/internal/conversation"
)

// Student is one learner's standing inside a session.
type Student struct {
	Token     string
	SessionID string
	Name      string
	Score     int
	Dims      conversation.Dimensions
	Completed bool
	Phase     string
	JoinedAt  time.Time
	UpdatedAt time.Time
}

// Message is one persisted transcript turn.
type Message struct {
	ID           int64
	SessionID    string
	StudentToken string
	Role         string
	Content      string
	CreatedAt    time.Time
}

// ScorePoint is one row of a student's score history.
type ScorePoint struct {
	Score     int
	Dims      conversation.Dimensions
	CreatedAt time.Time
}

// AddStudent inserts a learner joining a session.
func (s *Store) AddStudent(ctx context.Context, st *Student) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO students (token, session_id, name, score, depth, breadth, application, metacognition, engagement, completed, phase, joined_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.Token, st.SessionID, st.Name, st.Score,
		st.Dims.Depth, st.Dims.Breadth, st.Dims.Application, st.Dims.Metacognition, st.Dims.Engagement,
		boolToInt(st.Completed), st.Phase, st.JoinedAt, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// GetStudent loads one learner by join token.
func (s *Store) GetStudent(ctx context.Context, token string) (*Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT token, session_id, name, score, depth, breadth, application, metacognition, engagement, completed, phase, joined_at, updated_at
		 FROM students WHERE token = ?`, token)
	return scanStudent(row)
}

// ListStudents returns every learner in a session, join order.
func (s *Store) ListStudents(ctx context.Context, sessionID string) ([]*Student, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token, session_id, name, score, depth, breadth, application, metacognition, engagement, completed, phase, joined_at, updated_at
		 FROM students WHERE session_id = ? ORDER BY joined_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []*Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// CountStudents returns how many learners have joined a session.
func (s *Store) CountStudents(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM students WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

// History loads a student's full transcript, oldest first.
func (s *Store) History(ctx context.Context, token string) ([]conversation.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE student_token = ? ORDER BY id`, token)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []conversation.Turn
	for rows.Next() {
		var turn conversation.Turn
		if err := rows.Scan(&turn.Role, &turn.Content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, turn)
	}
	return out, rows.Err()
}

// ScoreHistory loads a student's score trajectory, oldest first.
func (s *Store) ScoreHistory(ctx context.Context, token string) ([]ScorePoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT score, depth, breadth, application, metacognition, engagement, created_at
		 FROM scores WHERE student_token = ? ORDER BY id`, token)
	if err != nil {
		return nil, fmt.Errorf("load score history: %w", err)
	}
	defer rows.Close()

	var out []ScorePoint
	for rows.Next() {
		var p ScorePoint
		if err := rows.Scan(&p.Score, &p.Dims.Depth, &p.Dims.Breadth, &p.Dims.Application,
			&p.Dims.Metacognition, &p.Dims.Engagement, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan score point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveOpening atomically records the opening greeting and the student's
// phase transition.
func (s *Store) SaveOpening(ctx context.Context, st *Student, greeting string, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, student_token, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			st.SessionID, st.Token, string(conversation.RoleAssistant), greeting, at); err != nil {
			return fmt.Errorf("insert greeting: %w", err)
		}
		return updateStudentTx(ctx, tx, st, at)
	})
}

// SaveTurn atomically records one completed turn: the student's message,
// the tutor's reply, a score history row, and the student's new standing.
// Partial turns never reach the database.
func (s *Store) SaveTurn(ctx context.Context, st *Student, userMsg, tutorMsg string, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, student_token, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			st.SessionID, st.Token, string(conversation.RoleUser), userMsg, at); err != nil {
			return fmt.Errorf("insert user message: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, student_token, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			st.SessionID, st.Token, string(conversation.RoleAssistant), tutorMsg, at); err != nil {
			return fmt.Errorf("insert tutor message: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scores (session_id, student_token, score, depth, breadth, application, metacognition, engagement, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			st.SessionID, st.Token, st.Score,
			st.Dims.Depth, st.Dims.Breadth, st.Dims.Application, st.Dims.Metacognition, st.Dims.Engagement,
			at); err != nil {
			return fmt.Errorf("insert score point: %w", err)
		}
		return updateStudentTx(ctx, tx, st, at)
	})
}

func updateStudentTx(ctx context.Context, tx *sql.Tx, st *Student, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE students SET score = ?, depth = ?, breadth = ?, application = ?, metacognition = ?, engagement = ?, completed = ?, phase = ?, updated_at = ?
		 WHERE token = ?`,
		st.Score, st.Dims.Depth, st.Dims.Breadth, st.Dims.Application, st.Dims.Metacognition, st.Dims.Engagement,
		boolToInt(st.Completed), st.Phase, at, st.Token)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func scanStudent(r rowScanner) (*Student, error) {
	var st Student
	var completed int
	err := r.Scan(&st.Token, &st.SessionID, &st.Name, &st.Score,
		&st.Dims.Depth, &st.Dims.Breadth, &st.Dims.Application, &st.Dims.Metacognition, &st.Dims.Engagement,
		&completed, &st.Phase, &st.JoinedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan student: %w", err)
	}
	st.Completed = completed != 0
	return &st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
