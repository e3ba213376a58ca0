package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.mai")
	if err := os.WriteFile(path, []byte("fun f() { return 1; }"), 0o644); err != nil {
		t.Fatal(err)
	}

	fw, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()

	done := make(chan Event, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go fw.Run(ctx, 50*time.Millisecond, func(ev Event) {
		select {
		case done <- ev:
		default:
		}
	})

	// Give the run loop a moment to start before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("fun f() { return 2; }"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-done:
		if filepath.Base(ev.Path) != "main.mai" {
			t.Fatalf("unexpected event path %q", ev.Path)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for change event")
	}
}
