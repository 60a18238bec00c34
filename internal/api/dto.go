package api

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/pipeline"
)

// MessageRequest is the body of POST /api/messages. Animation fields are
// optional and fall back to the configured defaults. Choosing another
// animation without duration_ms uses that animation's default duration.
type MessageRequest struct {
	Text       string `json:"text"`
	Animation  string `json:"animation,omitempty"`
	DurationMs *int   `json:"duration_ms,omitempty"`
	Easing     string `json:"easing,omitempty"`
}

func (r MessageRequest) Validate() error {
	kinds := make([]any, 0, 4)
	for _, k := range animate.Kinds() {
		kinds = append(kinds, k.String())
	}
	easings := make([]any, 0, 3)
	for _, e := range animate.EasingNames() {
		easings = append(easings, e)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
		validation.Field(&r.Animation, validation.In(kinds...)),
		validation.Field(&r.DurationMs, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&r.Easing, validation.In(easings...)),
	)
}

// params overlays the request onto defaults. A changed kind without
// duration_ms comes back with Duration unset, for the caller to resolve.
func (r MessageRequest) params(defaults animate.Params) (animate.Params, error) {
	p := defaults
	if r.Animation != "" {
		k, err := animate.ParseKind(strings.ToLower(r.Animation))
		if err != nil {
			return p, err
		}
		if k != p.Kind {
			p.Kind = k
			p.Duration = 0
		}
	}
	if r.DurationMs != nil {
		p.Duration = time.Duration(*r.DurationMs) * time.Millisecond
	}
	if r.Easing != "" {
		e, err := animate.ParseEasing(r.Easing)
		if err != nil {
			return p, err
		}
		p.Easing = e
	}
	return p, nil
}

// CardResponse is the JSON view of a card.
type CardResponse struct {
	Text       string   `json:"text"`
	Generation uint64   `json:"generation"`
	Rows       int      `json:"rows"`
	Cols       int      `json:"cols"`
	Punches    int      `json:"punches"`
	Columns    []string `json:"columns"`
}

type HistoryResponse struct {
	Entries []pipeline.Entry `json:"entries"`
}
