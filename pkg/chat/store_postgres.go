package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore archives transcripts durably.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens dsn and ensures the schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS chat_messages (
    id BIGSERIAL PRIMARY KEY,
    session_id TEXT NOT NULL,
    role TEXT NOT NULL,
    text TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_messages_session_idx ON chat_messages (session_id, id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("ensure chat schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chat append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, msg := range msgs {
		at := msg.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (session_id, role, text, category, created_at) VALUES ($1, $2, $3, $4, $5)`,
			sessionID, string(msg.Role), msg.Text, string(msg.Category), at.UTC(),
		); err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, text, category, created_at FROM chat_messages WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chat session: %w", err)
	}
	defer rows.Close()

	sess := NewSession(sessionID)
	for rows.Next() {
		var (
			msg      Message
			role     string
			category string
		)
		if err := rows.Scan(&role, &msg.Text, &category, &msg.At); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msg.Role = Role(role)
		msg.Category = Category(category)
		sess.Append(msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sess.Messages) == 0 {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
