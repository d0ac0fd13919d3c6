package audit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMemoryLoggerRecent(t *testing.T) {
	l := NewMemoryLogger(3)
	for _, id := range []string{"DOC-1", "DOC-2", "DOC-3", "DOC-4"} {
		if err := l.Log(&Event{Action: "view_metadata", ResourceID: id, Status: StatusSuccess}); err != nil {
			t.Fatal(err)
		}
	}

	got := l.Recent(10)
	if len(got) != 3 {
		t.Fatalf("Recent() returned %d events, want 3", len(got))
	}
	want := []string{"DOC-4", "DOC-3", "DOC-2"}
	for i, e := range got {
		if e.ResourceID != want[i] {
			t.Errorf("event %d = %s, want %s", i, e.ResourceID, want[i])
		}
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Errorf("event %d was not stamped", i)
		}
	}
}

func TestFileLoggerChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "actions.jsonl")

	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, status := range []Status{StatusSuccess, StatusFailure} {
		err := l.Log(&Event{
			Timestamp:    time.Date(2026, 4, 1, 10, i, 0, 0, time.UTC),
			Action:       "download",
			ResourceType: "document",
			ResourceID:   "DOC-1",
			Status:       status,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	// reopening continues the chain
	l, err = NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Log(&Event{Action: "view_details", ResourceType: "order", ResourceID: "ORD-1", Status: StatusSuccess}); err != nil {
		t.Fatal(err)
	}
	l.Close()

	_, n, err := Verify(path)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Verify() counted %d events, want 3", n)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.jsonl")
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"DOC-1", "DOC-2"} {
		if err := l.Log(&Event{Action: "download", ResourceID: id, Status: StatusSuccess}); err != nil {
			t.Fatal(err)
		}
	}
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `"DOC-1"`, `"DOC-9"`, 1)
	if err := os.WriteFile(path, []byte(tampered), 0o600); err != nil {
		t.Fatal(err)
	}

	_, n, err := Verify(path)
	if !errors.Is(err, ErrChainBroken) {
		t.Fatalf("Verify() error = %v, want ErrChainBroken", err)
	}
	if n != 0 {
		t.Errorf("%d events verified before the tampered line, want 0", n)
	}

	if _, err := NewFileLogger(path); err == nil {
		t.Error("NewFileLogger() accepted a tampered log")
	}
}
