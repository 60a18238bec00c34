package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/punchcard/internal/api"
	"github.com/san-kum/punchcard/internal/gui"
	"github.com/san-kum/punchcard/internal/inbox"
	"github.com/san-kum/punchcard/internal/logging"
	"github.com/san-kum/punchcard/internal/render"
	"github.com/san-kum/punchcard/internal/tui"
)

const shutdownTimeout = 5 * time.Second

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func theme() (tui.Theme, error) {
	t, ok := tui.Themes[themeName]
	if !ok {
		names := make([]string, 0, len(tui.Themes))
		for n := range tui.Themes {
			names = append(names, n)
		}
		return tui.Theme{}, fmt.Errorf("unknown theme: %s (available: %v)", themeName, names)
	}
	return t, nil
}

// tuiLog opens the log file used while the terminal belongs to the UI.
func tuiLog() (*os.File, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return logging.OpenFile(filepath.Join(dataDir, "punchcard.log"))
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	th, err := theme()
	if err != nil {
		return err
	}
	logFile, err := tuiLog()
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	sink := render.NewLatest("tui")
	a, err := newApp(ctx, cfg, sink, logFile)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.pipeline.Run(ctx)

	return tui.Run(ctx, a.pipeline, sink, a.params, th)
}

// runShow animates one message to the terminal and hardware and exits
// when both have caught up.
func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	live := tui.NewLiveRenderer(os.Stdout, frameRate)
	a, err := newApp(ctx, cfg, live, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.pipeline.Run(runCtx)
	}()

	live.Start()
	defer live.Stop()

	if _, err := a.pipeline.Submit(ctx, strings.Join(args, " ")); err != nil {
		return err
	}

	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for !a.pipeline.Idle() {
		select {
		case <-ctx.Done():
			cancel()
			<-done
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := a.renderer.Wait(ctx); err != nil {
		return err
	}
	cancel()
	<-done

	fmt.Printf("\n%d frames drawn\n", live.Drawn())
	for _, s := range a.pipeline.Status().Sinks {
		fmt.Printf("  %-10s delivered=%d coalesced=%d failed=%d\n", s.Sink, s.Delivered, s.Coalesced, s.Failed)
	}
	return nil
}

// runServe runs the pipeline until interrupted, with the HTTP API, the
// spool directory and the terminal UI as configured.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if withHTTP {
		cfg.HTTP.Enabled = true
	}
	if inboxDir != "" {
		cfg.Inbox.Path = inboxDir
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	var th tui.Theme
	var logTo io.Writer
	if withTUI {
		if th, err = theme(); err != nil {
			return err
		}
		f, err := tuiLog()
		if err != nil {
			return err
		}
		defer f.Close()
		logTo = f
	}

	sink := render.NewLatest("tui")
	broker := api.NewBroker()
	a, err := newApp(ctx, cfg, sink, logTo, broker)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.pipeline.Run(gctx)
	})

	if cfg.HTTP.Enabled {
		var reader api.HistoryReader
		if a.history != nil {
			reader = a.history
		}
		handler := api.NewHandler(a.pipeline, reader, a.params, log)
		srv := &http.Server{
			Addr:              cfg.HTTP.Address(),
			Handler:           api.NewRouter(handler, broker),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info("http listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.Inbox.Path != "" {
		dir := cfg.Inbox.Path
		g.Go(func() error {
			return inbox.Watch(gctx, dir, a.pipeline, log, func(r inbox.Result) {
				if !r.OK() {
					log.Warn("inbox: file rejected", slog.String("file", r.File), slog.Int("errors", len(r.Errors)))
				}
			})
		})
	}

	if withTUI {
		g.Go(func() error {
			err := tui.Run(gctx, a.pipeline, sink, a.params, th)
			stop()
			return err
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("punchcard stopped")
	return nil
}

// runWindow keeps the raylib loop on the main goroutine and the pipeline
// in the background.
func runWindow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	sink := render.NewLatest("window")
	a, err := newApp(ctx, cfg, sink, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.pipeline.Run(ctx)

	gui.Run(ctx, a.pipeline, sink, a.params)
	return nil
}
