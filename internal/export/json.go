package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/punchcard/internal/card"
)

// CardData is the JSON form of a card: one entry per column.
type CardData struct {
	Text       string       `json:"text"`
	Generation uint64       `json:"generation"`
	Rows       int          `json:"rows"`
	Cols       int          `json:"cols"`
	Columns    []ColumnData `json:"columns"`
}

type ColumnData struct {
	Index   int    `json:"index"`
	Punches string `json:"punches"`
	Rows    []int  `json:"rows,omitempty"`
}

func NewCardData(g *card.Grid) CardData {
	data := CardData{
		Text:       g.Text(),
		Generation: g.Generation(),
		Rows:       g.Rows(),
		Cols:       g.Cols(),
		Columns:    make([]ColumnData, g.Cols()),
	}
	for c := 0; c < g.Cols(); c++ {
		p := g.ColumnPattern(c)
		data.Columns[c] = ColumnData{Index: c, Punches: p.Label(), Rows: p.Rows()}
	}
	return data
}

func WriteJSON(w io.Writer, g *card.Grid) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewCardData(g))
}

func ExportJSON(path string, g *card.Grid) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, g)
}
