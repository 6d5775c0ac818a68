package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sydlexius/liner/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestConfigChangeIsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "logging:\n  level: info\n")

	changes := make(chan *config.Config, 4)
	svc := NewService(path, config.Load, func(c *config.Config) { changes <- c }, testLogger())
	svc.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)
	time.Sleep(200 * time.Millisecond) // let watcher initialize

	writeConfig(t, path, "logging:\n  level: debug\n")

	select {
	case c := <-changes:
		if c.Logging.Level != "debug" {
			t.Errorf("Logging.Level = %q, want %q", c.Logging.Level, "debug")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not applied")
	}
}

func TestOtherFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "logging:\n  level: info\n")

	changes := make(chan *config.Config, 4)
	svc := NewService(path, config.Load, func(c *config.Config) { changes <- c }, testLogger())
	svc.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)
	time.Sleep(200 * time.Millisecond)

	writeConfig(t, filepath.Join(dir, "notes.txt"), "hello")

	select {
	case <-changes:
		t.Error("unrelated file triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestReloadKeepsSettingsOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  port: 0\n")

	called := false
	svc := NewService(path, config.Load, func(*config.Config) { called = true }, testLogger())
	svc.reload()

	if called {
		t.Error("onChange called for an invalid config")
	}
}

func TestChangedOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "a: 1\n")

	svc := NewService(path, config.Load, func(*config.Config) {}, testLogger())
	svc.snap = readSnapshot(path)

	if svc.changedOnDisk() {
		t.Error("unchanged file reported as changed")
	}
	writeConfig(t, path, "a: 12345\n")
	if !svc.changedOnDisk() {
		t.Error("size change not detected")
	}
	if svc.changedOnDisk() {
		t.Error("change reported twice")
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if !svc.changedOnDisk() {
		t.Error("removal not detected")
	}
}
