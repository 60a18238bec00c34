package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
	"github.com/san-kum/punchcard/internal/codec"
	"github.com/san-kum/punchcard/internal/export"
	"github.com/san-kum/punchcard/internal/pipeline"
)

const maxBody = 64 << 10

// Service is the pipeline surface the API needs.
type Service interface {
	SubmitWith(ctx context.Context, text string, params animate.Params) (pipeline.Receipt, error)
	Resolve(params animate.Params) animate.Params
	Status() pipeline.Status
	Canonical() *card.Grid
	Displayed() *card.Grid
}

// HistoryReader lists completed messages, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]pipeline.Entry, error)
}

type Handler struct {
	svc      Service
	history  HistoryReader
	defaults animate.Params
	log      *slog.Logger
}

func NewHandler(svc Service, history HistoryReader, defaults animate.Params, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, history: history, defaults: defaults, log: log}
}

// PostMessage handles POST /api/messages.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large", "body_too_large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json body", "bad_request"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error(), "invalid_request"))
		return
	}
	params, err := req.params(h.defaults)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error(), "invalid_request"))
		return
	}

	receipt, err := h.svc.SubmitWith(r.Context(), req.Text, h.svc.Resolve(params))
	if err != nil {
		status, code := classify(err)
		if status >= 500 {
			h.log.Warn("submit failed", slog.String("error", err.Error()))
		}
		writeJSON(w, status, errorBody(err.Error(), code))
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

// classify maps submission errors onto HTTP statuses.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, codec.ErrMessageTooLong):
		return http.StatusRequestEntityTooLarge, "message_too_long"
	case errors.Is(err, codec.ErrUnsupportedCharacter):
		return http.StatusUnprocessableEntity, "unsupported_character"
	case errors.Is(err, animate.ErrInvalidParameters):
		return http.StatusUnprocessableEntity, "invalid_parameters"
	case errors.Is(err, pipeline.ErrQueueFull):
		return http.StatusConflict, "queue_full"
	case errors.Is(err, pipeline.ErrClosed):
		return http.StatusServiceUnavailable, "closed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// GetStatus handles GET /api/status.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// GetCard handles GET /api/card. Query: view=canonical|displayed,
// format=json|ascii|svg.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var g *card.Grid
	switch q.Get("view") {
	case "", "canonical":
		g = h.svc.Canonical()
	case "displayed":
		g = h.svc.Displayed()
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("view must be canonical or displayed", "bad_request"))
		return
	}

	switch q.Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, cardResponse(g))
	case "ascii":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(export.CardToASCII(g)))
	case "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write([]byte(export.CardToSVG(g, export.DefaultSVGOptions())))
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("format must be json, ascii or svg", "bad_request"))
	}
}

func cardResponse(g *card.Grid) CardResponse {
	cols := make([]string, g.Cols())
	for c := range cols {
		cols[c] = g.ColumnPattern(c).Label()
	}
	return CardResponse{
		Text:       g.Text(),
		Generation: g.Generation(),
		Rows:       g.Rows(),
		Cols:       g.Cols(),
		Punches:    g.PunchCount(),
		Columns:    cols,
	}
}

// GetHistory handles GET /api/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, HistoryResponse{Entries: []pipeline.Entry{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error", "internal"))
		return
	}
	if entries == nil {
		entries = []pipeline.Entry{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}
