package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	logLevel   string
	preset     string
	kind       string
	durationMs int
	policy     string
	hwDriver   string

	jsonOut   bool
	cardID    string
	outFile   string
	progress  float64
	limit     int
	withTUI   bool
	withHTTP  bool
	inboxDir  string
	frameRate int
	themeName string
)

// main registers the punchcard commands. With no subcommand the
// interactive terminal UI starts.
func main() {
	rootCmd := &cobra.Command{
		Use:           "punchcard",
		Short:         "punch-card message display",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInteractive,
	}

	rootCmd.Flags().StringVar(&themeName, "theme", "manila", "terminal theme")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".punchcard", "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&preset, "preset", "", "animation preset")
	pf.StringVar(&kind, "kind", "", "animation kind (instant, slide, fade, typewriter)")
	pf.IntVar(&durationMs, "duration", 0, "animation duration in ms (default depends on kind)")
	pf.StringVar(&policy, "policy", "", "what a new message does to a running one (cancel, queue)")
	pf.StringVar(&hwDriver, "hardware", "", "hardware driver (none, panel, shiftreg)")

	showCmd := &cobra.Command{
		Use:   "show [text...]",
		Short: "animate a message in the terminal and on the hardware",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runShow,
	}
	showCmd.Flags().IntVar(&frameRate, "fps", 30, "terminal frame rate")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the pipeline with HTTP, inbox and optional terminal UI",
		RunE:  runServe,
	}
	serveCmd.Flags().BoolVar(&withTUI, "tui", false, "show the terminal UI")
	serveCmd.Flags().BoolVar(&withHTTP, "http", false, "enable the HTTP API regardless of config")
	serveCmd.Flags().StringVar(&inboxDir, "inbox", "", "spool directory to watch")
	serveCmd.Flags().StringVar(&themeName, "theme", "manila", "terminal theme")

	encodeCmd := &cobra.Command{
		Use:   "encode [text...]",
		Short: "print the punch pattern of a message",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEncode,
	}
	encodeCmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")

	decodeCmd := &cobra.Command{
		Use:   "decode [label...]",
		Short: "decode column punch labels (e.g. 12-8 12-9) or an archived card",
		RunE:  runDecode,
	}
	decodeCmd.Flags().StringVar(&cardID, "card", "", "archived card id")

	profileCmd := &cobra.Command{
		Use:   "profile [text...]",
		Short: "plot punched cells per frame of an animation",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runProfile,
	}

	svgCmd := &cobra.Command{
		Use:   "svg [text...]",
		Short: "render a card to SVG",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSVG,
	}
	svgCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	svgCmd.Flags().Float64Var(&progress, "progress", 1, "animation progress to render, 0..1")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "list completed messages",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "number of entries")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list animation presets",
		RunE:  runPresets,
	}

	windowCmd := &cobra.Command{
		Use:   "window",
		Short: "show the card in a native window",
		RunE:  runWindow,
	}

	rootCmd.AddCommand(showCmd, serveCmd, encodeCmd, decodeCmd, profileCmd, svgCmd, historyCmd, presetsCmd, windowCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
