package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, o Options) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	Use(zap.New(core), o)
	t.Cleanup(func() { Use(zap.NewNop(), Options{}) })
	return logs
}

func TestGet_NoopOutsideDebugMode(t *testing.T) {
	logs := observe(t, Options{DebugMode: false})

	Get(CategoryAPI).Info("should not appear")
	API("nor %s", "this")

	if logs.Len() != 0 {
		t.Fatalf("expected no entries in production mode, got %d", logs.Len())
	}
}

func TestGet_TagsCategory(t *testing.T) {
	logs := observe(t, Options{DebugMode: true})

	Lifecycle("submitted prompt of %d chars", 12)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["category"]; got != "lifecycle" {
		t.Fatalf("expected category=lifecycle, got %v", got)
	}
	if !strings.Contains(entries[0].Message, "12 chars") {
		t.Fatalf("unexpected message %q", entries[0].Message)
	}
}

func TestGet_CategoryFilter(t *testing.T) {
	logs := observe(t, Options{
		DebugMode:  true,
		Categories: map[string]bool{"api": false, "session": true},
	})

	API("dropped")
	Session("kept")
	Get(CategoryViewer).Info("unlisted is kept")

	if logs.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", logs.Len())
	}
	if logs.FilterField(zap.String("category", "api")).Len() != 0 {
		t.Fatal("disabled category leaked an entry")
	}
}

func TestGet_CachesPerCategory(t *testing.T) {
	observe(t, Options{DebugMode: true})

	if Get(CategoryUI) != Get(CategoryUI) {
		t.Fatal("expected cached logger for repeated Get")
	}
}

func TestInitialize_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	t.Cleanup(func() { Use(zap.NewNop(), Options{}) })

	if err := Initialize(Options{Dir: dir, DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	APIDebug("hello %s", "file")
	_ = Sync()

	data, err := os.ReadFile(filepath.Join(dir, "text2ppt.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestInitialize_ProductionCreatesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	t.Cleanup(func() { Use(zap.NewNop(), Options{}) })

	if err := Initialize(Options{Dir: dir}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected no logs dir in production mode")
	}
	if IsDebugMode() {
		t.Fatal("debug mode should be off")
	}
}
