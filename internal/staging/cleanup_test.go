package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"dreamweave/internal/logging"
)

func mkRunDir(t *testing.T, parent string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(parent, uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("create run dir: %v", err)
	}
	if age > 0 {
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(dir, stamp, stamp); err != nil {
			t.Fatalf("set time: %v", err)
		}
	}
	return dir
}

func TestIsRunDir(t *testing.T) {
	if !IsRunDir(uuid.NewString()) {
		t.Fatal("expected uuid name to be a run dir")
	}
	for _, name := range []string{"", "frames", "notes-2024"} {
		if IsRunDir(name) {
			t.Fatalf("expected %q not to be a run dir", name)
		}
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldRunDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := mkRunDir(t, tmpDir, 2*time.Hour)
	recentDir := mkRunDir(t, tmpDir, 0)

	// Old but not a run directory; must survive.
	foreign := filepath.Join(tmpDir, "fonts")
	if err := os.Mkdir(foreign, 0o755); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(foreign, stamp, stamp); err != nil {
		t.Fatal(err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, nil)

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("non-run directory should still exist")
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, uuid.NewString())
	if err := os.WriteFile(oldFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for files, got %d", len(result.Removed))
	}
	if _, err := os.Stat(oldFile); err != nil {
		t.Error("file should not have been removed")
	}
}

func TestCleanStaleStopsWhenCancelled(t *testing.T) {
	tmpDir := t.TempDir()
	mkRunDir(t, tmpDir, 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := CleanStale(ctx, tmpDir, time.Hour, nil)
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals after cancellation, got %v", result.Removed)
	}
}

func TestListDirectoriesInvalidPaths(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/12345"} {
		dirs, err := ListDirectories(path)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", path, err)
		}
		if dirs != nil {
			t.Errorf("expected nil for path %q, got %v", path, dirs)
		}
	}
}

func TestListDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	older := mkRunDir(t, tmpDir, 3*time.Hour)
	newer := mkRunDir(t, tmpDir, time.Hour)
	if err := os.Mkdir(filepath.Join(tmpDir, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "not-a-dir.txt"), []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(older, "mix.wav"), []byte("12345"), 0o644); err != nil {
		t.Fatalf("create inner file: %v", err)
	}
	// Writing into older bumps its mtime; restore it.
	stamp := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(older, stamp, stamp); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 run directories, got %d", len(dirs))
	}
	if dirs[0].Path != newer || dirs[1].Path != older {
		t.Fatalf("expected newest first, got %s then %s", dirs[0].Name, dirs[1].Name)
	}
	if dirs[1].Size != 5 {
		t.Errorf("older size = %d, want 5", dirs[1].Size)
	}
	if dirs[0].ModTime.IsZero() {
		t.Error("ModTime should not be zero")
	}
}
