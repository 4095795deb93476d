// Package sse implements a Server-Sent Events broker that pushes index
// rebuild notifications to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeIndexRebuilt = "index.rebuilt"
	TypeIndexFailed  = "index.failed"
	TypeGraphUpdated = "graph.updated"
)

const (
	clientBuffer = 64
	queueSize    = 256
	retryAfter   = 2 * time.Second
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// RebuiltData is the payload of index.rebuilt.
type RebuiltData struct {
	Notes    int    `json:"notes"`
	Links    int    `json:"links"`
	Checksum string `json:"checksum"`
}

// FailedData is the payload of index.failed.
type FailedData struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// hub is the state owned by the broker loop.
type hub struct {
	clients   map[chan []byte]struct{}
	lastGraph time.Time
	graphMin  time.Duration
}

func (h *hub) broadcast(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	frame := fmt.Appendf(nil, "event: %s\ndata: %s\n\n", ev.Type, payload)
	for ch := range h.clients {
		select {
		case ch <- frame:
		default:
			// Slow client; drop rather than stall everyone else.
		}
	}
}

// graphChanged emits graph.updated unless one went out within graphMin.
func (h *hub) graphChanged(now time.Time) {
	if now.Sub(h.lastGraph) < h.graphMin {
		return
	}
	h.lastGraph = now
	h.broadcast(Event{Type: TypeGraphUpdated, Data: struct{}{}})
}

// Broker manages SSE client connections and broadcasts events.
//
// Every operation is a command run in order by one loop goroutine, which
// owns the hub.
type Broker struct {
	keepAlive time.Duration

	cmds    chan func(*hub)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits graph.updated at most once per
// graphThrottle and writes a keep-alive comment to idle clients every
// keepAlive. Non-positive values select the defaults.
func NewBroker(graphThrottle, keepAlive time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}

	b := &Broker{
		keepAlive: keepAlive,
		cmds:      make(chan func(*hub), queueSize),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	h := &hub{clients: make(map[chan []byte]struct{}), graphMin: graphThrottle}
	go b.loop(h)
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.stopped)
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return
		case cmd := <-b.cmds:
			cmd(h)
		}
	}
}

// exec queues cmd for the loop. It reports false once the broker is closed.
func (b *Broker) exec(cmd func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.cmds <- cmd:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or
// Close, and immediately when the broker is already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	registered := make(chan struct{})
	if !b.exec(func(h *hub) {
		h.clients[ch] = struct{}{}
		close(registered)
	}) {
		close(ch)
		return ch
	}

	select {
	case <-registered:
	case <-b.stopped:
		select {
		case <-registered:
			// The loop registered ch and closed it on shutdown.
		default:
			close(ch)
		}
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.exec(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.exec(func(h *hub) { resp <- len(h.clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(ev Event) {
	b.exec(func(h *hub) { h.broadcast(ev) })
}

// PublishRebuilt announces a successful rebuild, followed by a throttled
// graph.updated.
func (b *Broker) PublishRebuilt(data RebuiltData) {
	b.exec(func(h *hub) {
		h.broadcast(Event{Type: TypeIndexRebuilt, Data: data})
		h.graphChanged(time.Now())
	})
}

// PublishFailed announces a rejected rebuild. The graph is unchanged.
func (b *Broker) PublishFailed(data FailedData) {
	b.Publish(Event{Type: TypeIndexFailed, Data: data})
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
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryAfter.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
