package leads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRepository stores leads in a local SQLite file. Timestamps are kept
// as unix nanoseconds.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens (and creates if needed) the database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("leads: create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("leads: open database: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("leads: ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db, now: time.Now}
	if err := repo.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func newSQLiteRepositoryWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		property_interest TEXT NOT NULL DEFAULT '',
		budget TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leads_created ON leads(created_at);
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("leads: create schema: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lead := newLead(uuid.New().String(), req, r.now().UTC())

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leads (id, name, email, phone, property_interest, budget, location, message, source, session_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.PropertyInterest,
		lead.Budget, lead.Location, lead.Message, lead.Source, lead.SessionID, lead.Status,
		lead.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}
	return lead, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	lead, err := scanSQLiteLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*Lead, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteLead(row rowScanner) (*Lead, error) {
	var (
		lead      Lead
		createdAt int64
	)
	if err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.PropertyInterest,
		&lead.Budget, &lead.Location, &lead.Message, &lead.Source, &lead.SessionID, &lead.Status,
		&createdAt,
	); err != nil {
		return nil, err
	}
	lead.CreatedAt = time.Unix(0, createdAt).UTC()
	return &lead, nil
}
