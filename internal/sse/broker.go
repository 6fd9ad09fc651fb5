// Package sse broadcasts local patch changes to connected clients as
// Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Event types emitted by the broker.
const (
	EventPatchSaved     = "patch.saved"
	EventPatchDeleted   = "patch.deleted"
	EventCatalogChanged = "catalog.changed"
)

// Patch change kinds accepted by PublishPatchEvent.
const (
	KindSaved   = "saved"
	KindDeleted = "deleted"
)

var eventForKind = map[string]string{
	KindSaved:   EventPatchSaved,
	KindDeleted: EventPatchDeleted,
}

// clientBuffer is the number of frames a slow client may fall behind before
// frames are dropped for it.
const clientBuffer = 64

// PatchEvent is the payload of patch.saved and patch.deleted.
type PatchEvent struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

// Broker fans patch changes out to SSE clients. A patch change is followed by
// catalog.changed, at most once per throttle window, so list views can refresh
// without reacting to every single save.
type Broker struct {
	throttle time.Duration
	now      func() time.Time

	mu          sync.Mutex
	clients     map[chan []byte]struct{}
	seq         uint64
	lastCatalog time.Time
	closed      bool
}

// NewBroker creates a broker that emits catalog.changed at most once per
// catalogThrottle.
func NewBroker(catalogThrottle time.Duration) *Broker {
	if catalogThrottle <= 0 {
		catalogThrottle = 2 * time.Second
	}
	return &Broker{
		throttle: catalogThrottle,
		now:      time.Now,
		clients:  make(map[chan []byte]struct{}),
	}
}

// PublishPatchEvent announces that the patch for id was saved or deleted.
// Unknown kinds are dropped. It never blocks on slow clients.
func (b *Broker) PublishPatchEvent(kind, id string) {
	eventType, ok := eventForKind[kind]
	if !ok {
		return
	}
	at := b.now().UTC()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.broadcastLocked(eventType, PatchEvent{ID: id, At: at})
	if at.Sub(b.lastCatalog) >= b.throttle {
		b.lastCatalog = at
		b.broadcastLocked(EventCatalogChanged, struct{}{})
	}
}

func (b *Broker) broadcastLocked(eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	b.seq++

	var buf bytes.Buffer
	buf.WriteString("id: " + strconv.FormatUint(b.seq, 10) + "\n")
	fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", eventType, payload)
	frame := buf.Bytes()

	for ch := range b.clients {
		select {
		case ch <- frame:
		default:
		}
	}
}

// Subscribe registers a client. The channel is closed by Unsubscribe or Close;
// after Close it is returned already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.clients[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every client. Later publishes are no-ops.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
