// Package storage archives completed cards on disk, one directory per card
// holding metadata.json and card.csv.
package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/punchcard/internal/card"
	"github.com/san-kum/punchcard/internal/codec"
	"github.com/san-kum/punchcard/internal/pipeline"
)

var ErrMalformed = errors.New("storage: malformed card file")

type Store struct {
	baseDir string
	layout  card.Layout
}

var _ pipeline.History = (*Store)(nil)

func New(baseDir string, layout card.Layout) *Store {
	return &Store{baseDir: baseDir, layout: layout}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type CardMetadata struct {
	ID         string    `json:"id"`
	Session    uint64    `json:"session"`
	Text       string    `json:"text"`
	Kind       string    `json:"kind"`
	Outcome    string    `json:"outcome"`
	Generation uint64    `json:"generation"`
	Frames     int       `json:"frames"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	Timestamp  time.Time `json:"timestamp"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	Punches    int       `json:"punches"`
}

// Record re-encodes the entry's text onto the store layout and writes it.
func (s *Store) Record(_ context.Context, e pipeline.Entry) error {
	g, err := card.FromText(e.Text, s.layout, e.Generation)
	if err != nil {
		return fmt.Errorf("storage: encode %q: %w", e.Text, err)
	}
	_, err = s.Save(e, g)
	return err
}

// Save writes g with the entry's metadata and returns the card id.
func (s *Store) Save(e pipeline.Entry, g *card.Grid) (string, error) {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	id := fmt.Sprintf("%d_%06d", at.Unix(), e.ID)
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	meta := CardMetadata{
		ID:         id,
		Session:    e.ID,
		Text:       e.Text,
		Kind:       e.Kind,
		Outcome:    e.Outcome,
		Generation: e.Generation,
		Frames:     e.Frames,
		ElapsedMs:  e.Elapsed.Milliseconds(),
		Timestamp:  at,
		Rows:       g.Rows(),
		Cols:       g.Cols(),
		Punches:    g.PunchCount(),
	}
	if err := writeJSON(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(dir, "card.csv"), g); err != nil {
		return "", err
	}
	return id, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeCSV stores one record per column: index, character, punch label,
// then one 0/1 field per row.
func writeCSV(path string, g *card.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"col", "char", "punches"}
	for r := 0; r < g.Rows(); r++ {
		header = append(header, rowName(r))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	text := []rune(g.Text())
	for c := 0; c < g.Cols(); c++ {
		ch := " "
		if c < len(text) {
			ch = string(text[c])
		}
		rec := []string{strconv.Itoa(c), ch, g.ColumnPattern(c).Label()}
		for r := 0; r < g.Rows(); r++ {
			if g.Punched(r, c) {
				rec = append(rec, "1")
			} else {
				rec = append(rec, "0")
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// rowName labels row indices by their printed face value.
func rowName(r int) string {
	switch {
	case r == 0:
		return "12"
	case r == 1:
		return "11"
	case r < codec.Rows:
		return strconv.Itoa(r - 2)
	default:
		return "x" + strconv.Itoa(r)
	}
}

// List returns archived cards, oldest first.
func (s *Store) List() ([]CardMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []CardMetadata{}, nil
		}
		return nil, err
	}

	cards := make([]CardMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		cards = append(cards, *meta)
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Timestamp.Equal(cards[j].Timestamp) {
			return cards[i].Session < cards[j].Session
		}
		return cards[i].Timestamp.Before(cards[j].Timestamp)
	})
	return cards, nil
}

func (s *Store) Load(id string) (*CardMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta CardMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadGrid rebuilds the archived grid from card.csv.
func (s *Store) LoadGrid(id string) (*card.Grid, error) {
	meta, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	l := card.Layout{Rows: meta.Rows, Cols: meta.Cols}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	f, err := os.Open(filepath.Join(s.baseDir, id, "card.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) != l.Cols+1 {
		return nil, fmt.Errorf("%w: %d columns, want %d", ErrMalformed, len(records)-1, l.Cols)
	}

	cells := make([]bool, l.Cells())
	for c, rec := range records[1:] {
		if len(rec) != 3+l.Rows {
			return nil, fmt.Errorf("%w: column %d has %d fields", ErrMalformed, c, len(rec))
		}
		for r := 0; r < l.Rows; r++ {
			cells[r*l.Cols+c] = rec[3+r] == "1"
		}
	}
	return card.Build(l, meta.Text, meta.Generation, func(r, c int) bool {
		return cells[r*l.Cols+c]
	}), nil
}

// Recent returns the newest archived cards first, as history entries.
func (s *Store) Recent(_ context.Context, limit int) ([]pipeline.Entry, error) {
	cards, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make([]pipeline.Entry, 0, len(cards))
	for i := len(cards) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		m := cards[i]
		out = append(out, pipeline.Entry{
			ID:         m.Session,
			Text:       m.Text,
			At:         m.Timestamp,
			Kind:       m.Kind,
			Outcome:    m.Outcome,
			Generation: m.Generation,
			Frames:     m.Frames,
			Elapsed:    time.Duration(m.ElapsedMs) * time.Millisecond,
		})
	}
	return out, nil
}
