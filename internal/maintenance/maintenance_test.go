package maintenance

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sydlexius/liner/internal/database"
)

func setupTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "liner.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return db, dbPath
}

func newTestService(t *testing.T, retention int) (*Service, *sql.DB) {
	t.Helper()
	db, dbPath := setupTestDB(t)
	backupDir := filepath.Join(filepath.Dir(dbPath), "backups")
	svc := NewService(db, dbPath, backupDir, retention, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, db
}

func TestStatus(t *testing.T) {
	svc, db := newTestService(t, 3)
	if _, err := db.Exec(`INSERT INTO artists (name) VALUES ('IU'), ('BoA')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.DBFileSize <= 0 {
		t.Error("expected positive DB file size")
	}
	if st.PageSize <= 0 {
		t.Error("expected positive page size")
	}
	if st.Artists != 2 {
		t.Errorf("Artists = %d, want 2", st.Artists)
	}
	if st.Snapshots != 0 {
		t.Errorf("Snapshots = %d, want 0", st.Snapshots)
	}
}

func TestOptimize(t *testing.T) {
	svc, _ := newTestService(t, 3)
	if err := svc.Optimize(context.Background()); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
}

func TestSnapshotAndPrune(t *testing.T) {
	svc, db := newTestService(t, 2)
	if _, err := db.Exec(`INSERT INTO artists (name) VALUES ('IU')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	base := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	for i := range 3 {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		if _, err := svc.Snapshot(context.Background()); err != nil {
			t.Fatalf("Snapshot %d: %v", i, err)
		}
	}

	snaps, err := svc.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("len(snaps) = %d, want 3", len(snaps))
	}
	if snaps[0].Filename != "liner-20261019-050000.db" {
		t.Errorf("newest = %q, want liner-20261019-050000.db", snaps[0].Filename)
	}

	removed, err := svc.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(filepath.Join(svc.backupDir, "liner-20261019-030000.db")); !os.IsNotExist(err) {
		t.Error("oldest snapshot should have been pruned")
	}

	// The snapshot is a usable database.
	copyDB, err := sql.Open("sqlite", filepath.Join(svc.backupDir, snaps[0].Filename))
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer copyDB.Close() //nolint:errcheck
	var n int
	if err := copyDB.QueryRow(`SELECT COUNT(*) FROM artists`).Scan(&n); err != nil {
		t.Fatalf("querying snapshot: %v", err)
	}
	if n != 1 {
		t.Errorf("snapshot artists = %d, want 1", n)
	}
}

func TestListSnapshots_IgnoresOtherFiles(t *testing.T) {
	svc, _ := newTestService(t, 3)
	if err := os.MkdirAll(svc.backupDir, 0o750); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"notes.txt", "liner-latest.db", "backup-20260101-000000.db"} {
		if err := os.WriteFile(filepath.Join(svc.backupDir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	snaps, err := svc.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("snaps = %v, want none", snaps)
	}
}

func TestListSnapshots_MissingDir(t *testing.T) {
	svc, _ := newTestService(t, 3)
	snaps, err := svc.ListSnapshots()
	if err != nil || snaps != nil {
		t.Errorf("ListSnapshots() = %v, %v; want nil, nil", snaps, err)
	}
}
