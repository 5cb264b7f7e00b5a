package leads

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newSQLiteTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := newSQLiteTestRepo(t)
	ctx := context.Background()
	fixed := time.Date(2026, 5, 4, 10, 30, 0, 123, time.UTC)
	repo.now = func() time.Time { return fixed }

	created, err := repo.Create(ctx, &CreateLeadRequest{
		Name:             "Maya",
		Email:            "maya@example.com",
		Phone:            "555-000-1111",
		PropertyInterest: "townhouse",
		Budget:           "$450k",
		Location:         "midtown",
		Message:          "Ready in 3 months",
		Source:           DefaultSource,
		SessionID:        "chat-42",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.CreatedAt.Equal(fixed) {
		t.Fatalf("expected created_at %s, got %s", fixed, got.CreatedAt)
	}
	if got.SessionID != "chat-42" {
		t.Fatalf("expected session id to round trip, got %q", got.SessionID)
	}
	gotCopy, wantCopy := *got, *created
	gotCopy.CreatedAt, wantCopy.CreatedAt = time.Time{}, time.Time{}
	if gotCopy != wantCopy {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", gotCopy, wantCopy)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestSQLiteRepository_ListNewestFirst(t *testing.T) {
	repo := newSQLiteTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"old", "mid", "new"} {
		offset := time.Duration(i) * time.Hour
		repo.now = func() time.Time { return base.Add(offset) }
		if _, err := repo.Create(ctx, &CreateLeadRequest{Name: name, Email: name + "@example.com", Source: DefaultSource}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	leads, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != 3 || leads[0].Name != "new" || leads[2].Name != "old" {
		names := make([]string, 0, len(leads))
		for _, l := range leads {
			names = append(names, l.Name)
		}
		t.Fatalf("unexpected order %v", names)
	}
}

func TestSQLiteRepository_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "leads.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := repo.Create(context.Background(), &CreateLeadRequest{Name: "A", Email: "a@b.com", Source: DefaultSource}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = repo.Close()

	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	leads, err := reopened.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected persisted lead, got %d", len(leads))
	}
}

func TestSQLiteRepository_Errors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := newSQLiteRepositoryWithDB(db)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO leads").WillReturnError(errors.New("disk full"))
	if _, err := repo.Create(ctx, &CreateLeadRequest{Name: "A", Email: "a@b.com", Source: DefaultSource}); err == nil {
		t.Fatal("expected insert error")
	}

	mock.ExpectQuery("SELECT id, name").WillReturnError(errors.New("locked"))
	if _, err := repo.List(ctx); err == nil {
		t.Fatal("expected list error")
	}

	mock.ExpectQuery("SELECT id, name").
		WithArgs("abc").
		WillReturnError(errors.New("locked"))
	if _, err := repo.GetByID(ctx, "abc"); err == nil || errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected wrapped select error, got %v", err)
	}

	if _, err := repo.Create(ctx, &CreateLeadRequest{Email: "a@b.com"}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected validation before I/O, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
