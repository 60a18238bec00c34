package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
	"github.com/san-kum/punchcard/internal/codec"
	"github.com/san-kum/punchcard/internal/config"
	"github.com/san-kum/punchcard/internal/export"
	"github.com/san-kum/punchcard/internal/storage"
)

func cardFromArgs(cfg *config.Config, args []string) (*card.Grid, error) {
	text := strings.Join(args, " ")
	if cfg.Animation.FoldCase {
		text = codec.Fold(text)
	}
	return card.FromText(text, cfg.Layout(), 0)
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	g, err := cardFromArgs(cfg, args)
	if err != nil {
		return err
	}
	if jsonOut {
		return export.WriteJSON(os.Stdout, g)
	}

	fmt.Print(export.CardToASCII(g))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COL\tCHAR\tPUNCHES")
	for c, r := range []rune(g.Text()) {
		fmt.Fprintf(w, "%d\t%q\t%s\n", c+1, r, g.ColumnPattern(c).Label())
	}
	return w.Flush()
}

func runDecode(cmd *cobra.Command, args []string) error {
	if cardID != "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st := storage.New(filepath.Join(dataDir, "cards"), cfg.Layout())
		g, err := st.LoadGrid(cardID)
		if err != nil {
			return err
		}
		fmt.Print(export.CardToASCII(g))
		fmt.Println(g.Decode())
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("nothing to decode: pass column labels or --card")
	}
	patterns := make([]codec.Pattern, len(args))
	for i, a := range args {
		p, err := codec.ParseLabel(a)
		if err != nil {
			return err
		}
		patterns[i] = p
	}
	fmt.Println(codec.Decode(patterns))
	return nil
}

// sample computes the frames a session would produce at the configured
// frame interval, without a clock.
func sample(cfg *config.Config, target *card.Grid) ([]animate.Frame, animate.Params, error) {
	params, err := cfg.Params()
	if err != nil {
		return nil, params, err
	}
	engine := animate.NewEngine(cfg.Timing())
	d, err := engine.Validate(params)
	if err != nil {
		return nil, params, err
	}
	source := card.Blank(cfg.Layout())

	interval := time.Duration(cfg.Animation.FrameIntervalMs) * time.Millisecond
	n := 1
	if d > 0 {
		n = int((d + interval - 1) / interval)
	}
	frames := make([]animate.Frame, 0, n)
	for i := 1; i <= n; i++ {
		frames = append(frames, animate.Compose(source, target, params.Kind, ease(params, float64(i)/float64(n))))
	}
	return frames, params, nil
}

func ease(p animate.Params, t float64) float64 {
	if p.Easing == nil {
		return t
	}
	return p.Easing(t)
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	target, err := cardFromArgs(cfg, args)
	if err != nil {
		return err
	}
	frames, params, err := sample(cfg, target)
	if err != nil {
		return err
	}

	data := make([]float64, 0, len(frames)+1)
	data = append(data, 0)
	for _, f := range frames {
		var lit float64
		for r := 0; r < f.Layout().Rows; r++ {
			for c := 0; c < f.Layout().Cols; c++ {
				lit += f.Intensity(r, c)
			}
		}
		data = append(data, lit)
	}

	fmt.Printf("%s: %d frames, %d punches in target\n\n", params.Kind, len(frames), target.PunchCount())
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("punched cells per frame (%s)", params.Kind)),
	)
	fmt.Println(graph)
	return nil
}

func runSVG(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	target, err := cardFromArgs(cfg, args)
	if err != nil {
		return err
	}
	if progress < 0 || progress > 1 {
		return fmt.Errorf("progress must be within 0..1, got %v", progress)
	}

	opts := export.DefaultSVGOptions()
	var svg string
	if progress >= 1 {
		svg = export.CardToSVG(target, opts)
	} else {
		params, err := cfg.Params()
		if err != nil {
			return err
		}
		f := animate.Compose(card.Blank(cfg.Layout()), target, params.Kind, ease(params, progress))
		svg = export.FrameToSVG(f, opts)
	}

	if outFile == "" {
		_, err = fmt.Print(svg)
		return err
	}
	if err := os.WriteFile(outFile, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outFile)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.History.Driver == config.HistoryNone {
		fmt.Println("history is disabled")
		return nil
	}
	h, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if c, ok := h.(interface{ Close() error }); ok {
		defer c.Close()
	}

	entries, err := h.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no messages found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tKIND\tFRAMES\tELAPSED\tTEXT")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
			e.ID,
			e.At.Format("2006-01-02 15:04:05"),
			e.Kind,
			e.Frames,
			e.Elapsed.Round(time.Millisecond),
			e.Text,
		)
	}
	return w.Flush()
}

func runPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tDURATION\tEASING\tSUPERSEDE")
	for _, name := range config.PresetNames() {
		p := config.Presets[name]
		d := "default"
		if p.DurationMs != nil {
			d = fmt.Sprintf("%dms", *p.DurationMs)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, p.Kind, d, p.Easing, p.Supersede)
	}
	return w.Flush()
}
