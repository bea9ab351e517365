package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Enabled: true, Dir: dir, QueueSize: 16}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Log(Event{SessionID: "sess-1", Channel: "http", Direction: Inbound, Text: "hello"})
	logger.Log(Event{SessionID: "sess-1", Channel: "http", Direction: Outbound, Branch: "faq", Text: "hi", URLs: []string{"https://example.com"}})
	logger.Log(Event{SessionID: "sess-2", Channel: "ws", Direction: Inbound, Text: "other"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "sess-1.ndjson"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var got Event
	if err := json.Unmarshal([]byte(lines[1]), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.Direction != Outbound || got.Branch != "faq" || got.Text != "hi" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be populated")
	}
	if len(readLines(t, filepath.Join(dir, "sess-2.ndjson"))) != 1 {
		t.Fatal("expected one line for sess-2")
	}
}

func TestDisabledLoggerIsNil(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger != nil {
		t.Fatal("expected nil logger when disabled")
	}
	logger.Log(Event{SessionID: "x"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close on nil logger failed: %v", err)
	}
}

func TestLogAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{Enabled: true, Dir: t.TempDir(), QueueSize: 1}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_ = logger.Close()
	logger.Log(Event{SessionID: "late"})
	if _, err := os.Stat(logger.Path("late")); !os.IsNotExist(err) {
		t.Fatalf("expected no file for event logged after close, got %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestFileNameSanitizesSessionID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"abc-123":     "abc-123.ndjson",
		"../../etc":   ".._.._etc.ndjson",
		"a/b":         "a_b.ndjson",
		"":            "default.ndjson",
		"..":          "default.ndjson",
		"user:42.web": "user_42.web.ndjson",
	}
	for in, want := range tests {
		if got := fileName(in); got != want {
			t.Errorf("fileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}
