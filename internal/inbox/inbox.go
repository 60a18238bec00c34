// Package inbox submits messages dropped as *.txt files into a spool
// directory. Each non-empty line of a file is one message. Processed files
// move to done/, files with any rejected line move to rejected/ next to a
// .err file naming the failures.
//
// Under the cancel policy a burst of submissions would leave only the last
// line on the card, so when the submitter reports Idle each line waits for
// the previous animation to finish.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/san-kum/punchcard/internal/pipeline"
)

const (
	DoneDir     = "done"
	RejectedDir = "rejected"

	// settle is how long the directory must be quiet before files are
	// read, so half-written files are not picked up.
	settle = 100 * time.Millisecond

	idlePoll = 20 * time.Millisecond
)

// Submitter accepts messages.
type Submitter interface {
	Submit(ctx context.Context, text string) (pipeline.Receipt, error)
}

// Idler is implemented by submitters that can report a finished animation.
type Idler interface {
	Idle() bool
}

// Result reports one processed file.
type Result struct {
	File     string
	Accepted []pipeline.Receipt
	Errors   []error
}

// OK reports whether every line was accepted.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Callback is called after each processed file.
type Callback func(Result)

// Watch processes files already in dir, then watches it until ctx is
// cancelled.
func Watch(ctx context.Context, dir string, sub Submitter, logger *slog.Logger, cb Callback) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, d := range []string{dir, filepath.Join(dir, DoneDir), filepath.Join(dir, RejectedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("inbox: create %s: %w", d, err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", dir, err)
	}
	logger.Info("inbox: started", slog.String("dir", dir))

	Drain(ctx, dir, sub, logger, cb)

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(settle)
			fire = timer.C
		} else {
			timer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("inbox: stopped")
			return nil

		case <-fire:
			Drain(ctx, dir, sub, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".txt") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// Drain processes every *.txt file currently in dir, oldest name first.
func Drain(ctx context.Context, dir string, sub Submitter, logger *slog.Logger, cb Callback) {
	if logger == nil {
		logger = slog.Default()
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		logger.Warn("inbox: glob failed", slog.String("error", err.Error()))
		return
	}
	sort.Strings(matches)
	for _, path := range matches {
		if ctx.Err() != nil {
			return
		}
		res, err := process(ctx, dir, path, sub)
		if err != nil {
			logger.Warn("inbox: process failed", slog.String("file", path), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("inbox: processed",
			slog.String("file", res.File),
			slog.Int("accepted", len(res.Accepted)),
			slog.Int("rejected", len(res.Errors)))
		if cb != nil {
			cb(res)
		}
	}
}

func process(ctx context.Context, dir, path string, sub Submitter) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	res := Result{File: filepath.Base(path)}
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r \t")
		if line == "" {
			continue
		}
		if err := waitIdle(ctx, sub); err != nil {
			return res, err
		}
		r, err := sub.Submit(ctx, line)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", n+1, err))
			continue
		}
		res.Accepted = append(res.Accepted, r)
	}

	dest := filepath.Join(dir, DoneDir, res.File)
	if !res.OK() {
		dest = filepath.Join(dir, RejectedDir, res.File)
		var msg strings.Builder
		for _, e := range res.Errors {
			msg.WriteString(e.Error())
			msg.WriteByte('\n')
		}
		if err := os.WriteFile(dest+".err", []byte(msg.String()), 0o644); err != nil {
			return res, err
		}
	}
	return res, os.Rename(path, dest)
}

// waitIdle blocks until sub has nothing on screen in flight. Submitters
// without Idle never wait.
func waitIdle(ctx context.Context, sub Submitter) error {
	idler, ok := sub.(Idler)
	if !ok {
		return nil
	}
	t := time.NewTicker(idlePoll)
	defer t.Stop()
	for !idler.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}
