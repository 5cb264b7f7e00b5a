package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sessionQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps sessions in the chat_sessions table. The version column
// is authoritative; the JSON document carries everything else.
type PostgresStore struct {
	db  sessionQuerier
	now func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("conversation: pgx pool cannot be nil")
	}
	return newPostgresStoreWithQuerier(pool)
}

func newPostgresStoreWithQuerier(db sessionQuerier) *PostgresStore {
	if db == nil {
		panic("conversation: querier cannot be nil")
	}
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Find(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT data, version, created_at, updated_at
		FROM chat_sessions
		WHERE session_id = $1
	`, sessionID)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) Create(_ context.Context, sessionID string, initial State) (*Session, error) {
	return NewSession(sessionID, initial, s.now().UTC()), nil
}

func (s *PostgresStore) Save(ctx context.Context, session *Session) error {
	now := s.now().UTC()
	next := session.Clone()
	next.Version = session.Version + 1
	next.UpdatedAt = now

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("conversation: failed to encode session: %w", err)
	}

	var tag pgconn.CommandTag
	if session.Version == 0 {
		tag, err = s.db.Exec(ctx, `
			INSERT INTO chat_sessions (session_id, data, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (session_id) DO NOTHING
		`, session.ID, data, next.Version, session.CreatedAt, now)
	} else {
		tag, err = s.db.Exec(ctx, `
			UPDATE chat_sessions
			SET data = $1, version = $2, updated_at = $3
			WHERE session_id = $4 AND version = $5
		`, data, next.Version, now, session.ID, session.Version)
	}
	if err != nil {
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	session.Version = next.Version
	session.UpdatedAt = now
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT data, version, created_at, updated_at
		FROM chat_sessions
		ORDER BY created_at, session_id
	`)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("conversation: failed to scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: failed to list sessions: %w", err)
	}
	return out, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		data      []byte
		version   int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&data, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	sess.Version = version
	sess.CreatedAt = createdAt
	sess.UpdatedAt = updatedAt
	return &sess, nil
}
