package store

import "database/sql"

// migrate creates the tables if they do not exist. The schema is small
// enough that idempotent DDL beats a migration framework.
func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL DEFAULT '',
			description  TEXT NOT NULL DEFAULT '',
			topic        TEXT NOT NULL,
			difficulty   TEXT NOT NULL,
			teacher_key  TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'active',
			show_score   INTEGER NOT NULL DEFAULT 1,
			max_students INTEGER NOT NULL DEFAULT 30,
			created_at   TIMESTAMP NOT NULL,
			expires_at   TIMESTAMP NOT NULL,
			ended_at     TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS students (
			token         TEXT PRIMARY KEY,
			session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			name          TEXT NOT NULL,
			score         INTEGER NOT NULL DEFAULT 0,
			depth         INTEGER NOT NULL DEFAULT 0,
			breadth       INTEGER NOT NULL DEFAULT 0,
			application   INTEGER NOT NULL DEFAULT 0,
			metacognition INTEGER NOT NULL DEFAULT 0,
			engagement    INTEGER NOT NULL DEFAULT 0,
			completed     INTEGER NOT NULL DEFAULT 0,
			phase         TEXT NOT NULL DEFAULT 'uninitialized',
			joined_at     TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_students_session ON students(session_id)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			student_token TEXT NOT NULL,
			role          TEXT NOT NULL,
			content       TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_student ON messages(student_token, id)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			student_token TEXT NOT NULL,
			score         INTEGER NOT NULL,
			depth         INTEGER NOT NULL,
			breadth       INTEGER NOT NULL,
			application   INTEGER NOT NULL,
			metacognition INTEGER NOT NULL,
			engagement    INTEGER NOT NULL,
			created_at    TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_student ON scores(student_token, id)`,
		`CREATE TABLE IF NOT EXISTS llm_events (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			provider      TEXT NOT NULL,
			model         TEXT NOT NULL,
			purpose       TEXT NOT NULL,
			input_tokens  INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			latency_ms    INTEGER NOT NULL,
			cost_usd      REAL NOT NULL,
			success       INTEGER NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
