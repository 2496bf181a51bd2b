package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event types published by the gateway.
const (
	TypeReady       = "ready"
	TypeCommand     = "command"
	TypeCalibration = "calibration"
	TypeSession     = "session"
	TypeHeartbeat   = "heartbeat"
)

// Event is one SSE message.
type Event struct {
	ID   int64                  `json:"id,omitempty"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Config holds the hub settings.
type Config struct {
	BufferSize        int
	HeartbeatInterval time.Duration
}

// SnapshotFunc returns the payload of the ready event.
type SnapshotFunc func() interface{}

// Client is a connected SSE subscriber.
type Client struct {
	ID     string
	Writer http.ResponseWriter
	Cancel context.CancelFunc
	Events chan Event

	ctx context.Context
	// replayedUpTo is the highest event ID already sent by Last-Event-ID replay.
	replayedUpTo int64
	once         sync.Once
	mu           sync.Mutex // guards Writer
}

// Hub fans events out to SSE clients.
//
// Lock order: h.mu before Buffer.mu before Client.mu.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	buffer   *Buffer
	nextID   int64
	snapshot SnapshotFunc
	config   Config

	heartbeatTicker *time.Ticker
	stopHeartbeat   chan struct{}

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHub creates a hub. snapshot may be nil.
func NewHub(cfg Config, snapshot SnapshotFunc) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 50
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}

	return &Hub{
		clients:  make(map[string]*Client),
		buffer:   NewBuffer(cfg.BufferSize),
		snapshot: snapshot,
		config:   cfg,
		done:     make(chan struct{}),
	}
}

// Subscribe streams events to w until ctx is done or the hub stops.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientCtx, cancel := context.WithCancel(ctx)

	lastEventID := int64(0)
	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if id, err := strconv.ParseInt(lastIDStr, 10, 64); err == nil {
			lastEventID = id
		}
	}

	client := &Client{
		ID:     uuid.NewString(),
		Writer: w,
		Cancel: cancel,
		Events: make(chan Event, 100),
		ctx:    clientCtx,
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	if h.heartbeatTicker == nil {
		h.startHeartbeat()
	}
	h.mu.Unlock()

	if err := h.sendReadyEvent(client); err != nil {
		h.unregisterClient(client.ID)
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	if lastEventID > 0 {
		for _, event := range h.buffer.After(lastEventID) {
			if err := h.sendEventToClient(client, event); err != nil {
				h.unregisterClient(client.ID)
				return fmt.Errorf("failed to replay events: %w", err)
			}
			client.replayedUpTo = event.ID
		}
	}

	h.handleClient(client)
	return nil
}

// Publish assigns an ID, buffers the event and delivers it to all clients.
// Slow clients miss the event rather than block the publisher.
func (h *Hub) Publish(event Event) error {
	select {
	case <-h.done:
		return nil
	default:
	}

	if event.ID == 0 {
		event.ID = atomic.AddInt64(&h.nextID, 1)
	}
	if event.Data == nil {
		event.Data = map[string]interface{}{}
	}
	if event.Type != TypeHeartbeat {
		h.buffer.Add(event)
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case <-client.ctx.Done():
		case <-h.done:
			return nil
		case client.Events <- event:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Recent returns the buffered events.
func (h *Hub) Recent() []Event {
	return h.buffer.After(0)
}

func (h *Hub) sendReadyEvent(client *Client) error {
	data := map[string]interface{}{}
	if h.snapshot != nil {
		data["snapshot"] = h.snapshot()
	}

	return h.sendEventToClient(client, Event{
		ID:   atomic.AddInt64(&h.nextID, 1),
		Type: TypeReady,
		Data: data,
	})
}

func (h *Hub) sendEventToClient(client *Client, event Event) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(client.Writer, "id: %d\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	if flusher, ok := client.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func (h *Hub) handleClient(client *Client) {
	defer h.unregisterClient(client.ID)

	for {
		select {
		case <-client.ctx.Done():
			return
		case <-h.done:
			return
		case event := <-client.Events:
			if client.replayed(event) {
				continue
			}
			if err := h.sendEventToClient(client, event); err != nil {
				return
			}
		}
	}
}

// replayed reports whether event was published while the client was being
// registered and has already gone out in the replay.
func (c *Client) replayed(event Event) bool {
	return event.ID != 0 && event.ID <= c.replayedUpTo
}

func (h *Hub) unregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, exists := h.clients[clientID]
	if !exists {
		return
	}
	client.Cancel()
	delete(h.clients, clientID)

	if len(h.clients) == 0 && h.heartbeatTicker != nil {
		h.heartbeatTicker.Stop()
		h.heartbeatTicker = nil
		close(h.stopHeartbeat)
		h.stopHeartbeat = nil
	}
}

// startHeartbeat starts the heartbeat loop. Caller holds h.mu.
func (h *Hub) startHeartbeat() {
	h.heartbeatTicker = time.NewTicker(h.config.HeartbeatInterval)
	h.stopHeartbeat = make(chan struct{})

	ticker := h.heartbeatTicker
	stop := h.stopHeartbeat

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ticker.C:
				h.Publish(Event{
					Type: TypeHeartbeat,
					Data: map[string]interface{}{"ts": time.Now().UTC().Format(time.RFC3339)},
				})
			case <-stop:
				return
			case <-h.done:
				return
			}
		}
	}()
}

// Stop disconnects all clients and stops the heartbeat.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for _, client := range h.clients {
			client.Cancel()
		}
		if h.heartbeatTicker != nil {
			h.heartbeatTicker.Stop()
			h.heartbeatTicker = nil
		}
		h.mu.Unlock()

		waited := make(chan struct{})
		go func() {
			h.wg.Wait()
			close(waited)
		}()

		select {
		case <-waited:
		case <-time.After(5 * time.Second):
		}
	})
}

// Buffer is a fixed-capacity ring of recent events.
type Buffer struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// NewBuffer creates a buffer holding at most capacity events.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}
}

// Add appends an event, dropping the oldest when full.
func (b *Buffer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)
	if len(b.events) > b.capacity {
		b.events = b.events[1:]
	}
}

// After returns the events with an ID greater than lastID.
func (b *Buffer) After(lastID int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, event := range b.events {
		if event.ID > lastID {
			result = append(result, event)
		}
	}
	return result
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}
