package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/san-kum/punchcard/internal/pipeline"
)

// EventJSON is the wire form of a pipeline event.
type EventJSON struct {
	Type  string    `json:"type"`
	ID    uint64    `json:"id,omitempty"`
	Text  string    `json:"text,omitempty"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// Broker streams pipeline events to Server-Sent Events clients. Slow
// clients miss events rather than stall the pipeline.
type Broker struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

var _ pipeline.Observer = (*Broker)(nil)

func NewBroker() *Broker {
	return &Broker{clients: make(map[chan []byte]struct{})}
}

func (b *Broker) OnEvent(e pipeline.Event) {
	ev := EventJSON{Type: e.Type.String(), ID: e.ID, Text: e.Text, At: e.At}
	if e.Err != nil {
		ev.Error = e.Err.Error()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload))

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- raw:
		default:
		}
	}
}

func (b *Broker) subscribe() chan []byte {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
}

// Clients reports the number of connected clients.
func (b *Broker) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// ServeHTTP handles GET /api/events.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody("streaming unsupported", "internal"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.subscribe()
	defer b.unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
