package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/garagedoor/internal/infrastructure/database"
	_ "github.com/nerrad567/garagedoor/migrations" // registers audit_log schema
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreate_FillsDefaults(t *testing.T) {
	repo := newTestRepo(t)
	e := &Entry{Action: ActionPress, Door: "left", Subject: "panel"}

	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.ID == "" || e.Source != SourceAPI || e.CreatedAt.IsZero() {
		t.Errorf("Create() left defaults unset: %+v", e)
	}
}

func TestCreate_MissingAction(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Create(context.Background(), &Entry{}); !errors.Is(err, ErrMissingAction) {
		t.Errorf("Create() error = %v, want ErrMissingAction", err)
	}
}

func TestList_NewestFirstAndFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Action: ActionPress, Door: "left", CreatedAt: base},
		{Action: ActionRelease, Door: "left", CreatedAt: base.Add(100 * time.Millisecond)},
		{Action: ActionPress, Door: "right", CreatedAt: base.Add(120 * time.Millisecond)},
		{Action: ActionConnect, Source: SourceSignal, Details: map[string]any{"force": true}, CreatedAt: base.Add(time.Second)},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	tests := []struct {
		name       string
		filter     Filter
		wantTotal  int
		wantFirst  string
		wantLength int
	}{
		{"all", Filter{}, 4, ActionConnect, 4},
		{"presses", Filter{Action: ActionPress}, 2, ActionPress, 2},
		{"left door", Filter{Door: "left"}, 2, ActionRelease, 2},
		{"paged", Filter{Limit: 1, Offset: 1}, 4, ActionPress, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if page.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", page.Total, tt.wantTotal)
			}
			if len(page.Entries) != tt.wantLength {
				t.Fatalf("len(Entries) = %d, want %d", len(page.Entries), tt.wantLength)
			}
			if page.Entries[0].Action != tt.wantFirst {
				t.Errorf("first action = %q, want %q", page.Entries[0].Action, tt.wantFirst)
			}
		})
	}

	page, err := repo.List(ctx, Filter{Action: ActionConnect})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := page.Entries[0]
	if got.Source != SourceSignal || got.Details["force"] != true || got.Door != "" {
		t.Errorf("connect entry = %+v", got)
	}
	if !got.CreatedAt.Equal(base.Add(time.Second)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base.Add(time.Second))
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := newTestRepo(t)
	page, err := repo.List(context.Background(), Filter{Limit: 5000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Limit != maxLimit || page.Offset != 0 {
		t.Errorf("Limit/Offset = %d/%d, want %d/0", page.Limit, page.Offset, maxLimit)
	}
	if page.Entries == nil {
		t.Error("Entries should be empty, not nil")
	}
}
