package inbox

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/san-kum/punchcard/internal/codec"
	"github.com/san-kum/punchcard/internal/pipeline"
)

type fakeSubmitter struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSubmitter) Submit(_ context.Context, text string) (pipeline.Receipt, error) {
	if err := codec.Validate(text, 80); err != nil {
		return pipeline.Receipt{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return pipeline.Receipt{ID: uint64(len(f.texts)), Text: text}, nil
}

func (f *fakeSubmitter) got() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func eventually(t *testing.T, timeout time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error(msg)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestDrainExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{DoneDir, RejectedDir} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	_ = os.WriteFile(filepath.Join(dir, "a.txt"), []byte("FIRST\r\n\nSECOND\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.txt"), []byte("OK\nBAD~\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.md"), []byte("IGNORED"), 0o644)

	sub := &fakeSubmitter{}
	var results []Result
	Drain(context.Background(), dir, sub, quiet(), func(r Result) { results = append(results, r) })

	if got := sub.got(); strings.Join(got, ",") != "FIRST,SECOND,OK" {
		t.Errorf("submitted %v", got)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].OK() || results[1].OK() {
		t.Errorf("expected a.txt ok and b.txt rejected, got %+v", results)
	}
	if !errors.Is(results[1].Errors[0], codec.ErrUnsupportedCharacter) {
		t.Errorf("expected unsupported character, got %v", results[1].Errors[0])
	}

	if !exists(filepath.Join(dir, DoneDir, "a.txt")) {
		t.Error("a.txt should move to done/")
	}
	if !exists(filepath.Join(dir, RejectedDir, "b.txt")) {
		t.Error("b.txt should move to rejected/")
	}
	errFile, err := os.ReadFile(filepath.Join(dir, RejectedDir, "b.txt.err"))
	if err != nil {
		t.Fatalf("missing .err file: %v", err)
	}
	if !strings.HasPrefix(string(errFile), "line 2:") {
		t.Errorf("unexpected .err contents %q", errFile)
	}
	if !exists(filepath.Join(dir, "notes.md")) {
		t.Error("non-txt files must be left alone")
	}
}

func TestWatchPicksUpNewFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	sub := &fakeSubmitter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var files []string
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, sub, quiet(), func(r Result) {
			mu.Lock()
			files = append(files, r.File)
			mu.Unlock()
		})
	}()

	eventually(t, 2*time.Second, func() bool { return exists(filepath.Join(dir, DoneDir)) }, "spool dirs not created")
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "msg.txt"), []byte("HELLO WORLD\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, func() bool {
		return exists(filepath.Join(dir, DoneDir, "msg.txt"))
	}, "msg.txt not processed")

	if got := sub.got(); len(got) != 1 || got[0] != "HELLO WORLD" {
		t.Errorf("submitted %v", got)
	}
	mu.Lock()
	if len(files) != 1 || files[0] != "msg.txt" {
		t.Errorf("callback files %v", files)
	}
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop")
	}
}

// pacedSubmitter stays busy for a few Idle polls after every Submit.
type pacedSubmitter struct {
	fakeSubmitter
	busy     int
	overlaps int
}

func (p *pacedSubmitter) Submit(ctx context.Context, text string) (pipeline.Receipt, error) {
	p.mu.Lock()
	if p.busy > 0 {
		p.overlaps++
	}
	p.busy = 3
	p.mu.Unlock()
	return p.fakeSubmitter.Submit(ctx, text)
}

func (p *pacedSubmitter) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy > 0 {
		p.busy--
		return false
	}
	return true
}

func TestDrainWaitsForIdleBetweenLines(t *testing.T) {
	dir := t.TempDir()
	_ = os.MkdirAll(filepath.Join(dir, DoneDir), 0o755)
	_ = os.WriteFile(filepath.Join(dir, "a.txt"), []byte("ONE\nTWO\nTHREE\n"), 0o644)

	sub := &pacedSubmitter{}
	Drain(context.Background(), dir, sub, quiet(), nil)

	if got := sub.got(); strings.Join(got, ",") != "ONE,TWO,THREE" {
		t.Errorf("submitted %v", got)
	}
	if sub.overlaps != 0 {
		t.Errorf("%d lines were submitted while the previous one was still animating", sub.overlaps)
	}
	if !exists(filepath.Join(dir, DoneDir, "a.txt")) {
		t.Error("a.txt should move to done/")
	}
}

func TestDrainCancelledWhileWaitingKeepsFile(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.txt"), []byte("ONE\nTWO\n"), 0o644)

	sub := &pacedSubmitter{}
	sub.busy = 1 << 30

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	Drain(ctx, dir, sub, quiet(), nil)

	if got := sub.got(); len(got) != 0 {
		t.Errorf("nothing should be submitted while busy, got %v", got)
	}
	if !exists(filepath.Join(dir, "a.txt")) {
		t.Error("unfinished file must stay in the spool directory")
	}
}
