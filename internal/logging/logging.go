// Package logging builds the process-wide slog logger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

type Options struct {
	Level slog.Leveler
	// Format is "text" or "json".
	Format string
	// Writer receives the terminal handler. Nil disables it.
	Writer io.Writer
	// Journal adds a systemd journal handler when one can be opened.
	Journal bool
}

// New fans records out to the terminal writer and, when asked, the systemd
// journal. Under a systemd service the terminal handler is dropped since
// stdout already lands in the journal.
func New(opts Options) *slog.Logger {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	var handlers []slog.Handler

	var terminal slog.Handler
	if opts.Writer != nil && !(opts.Journal && underSystemd()) {
		hopts := &slog.HandlerOptions{Level: opts.Level}
		if opts.Format == "json" {
			terminal = slog.NewJSONHandler(opts.Writer, hopts)
		} else {
			terminal = slog.NewTextHandler(opts.Writer, hopts)
		}
		handlers = append(handlers, terminal)
	}

	if opts.Journal {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: opts.Level,
			ReplaceGroup: func(key string) string {
				return journalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = journalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if terminal != nil {
				r := slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable", 0)
				r.Add("error", err)
				_ = terminal.Handle(context.Background(), r)
			}
		} else {
			handlers = append(handlers, journal)
		}
	}

	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

// OpenFile appends to path, for modes where stderr belongs to a
// full-screen UI.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func journalKey(s string) string {
	s = strings.ToUpper(s)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, s)
}

func underSystemd() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}
