package events

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseMessage struct {
	ID    string
	Event string
	Data  map[string]interface{}
}

// readMessage reads one SSE message from the stream.
func readMessage(t *testing.T, r *bufio.Reader) sseMessage {
	t.Helper()

	var msg sseMessage
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case line == "":
			return msg
		case strings.HasPrefix(line, "id: "):
			msg.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			msg.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg.Data))
		}
	}
}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Subscribe(r.Context(), w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func subscribe(t *testing.T, url string, lastEventID string) (*bufio.Reader, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream; charset=utf-8", resp.Header.Get("Content-Type"))

	return bufio.NewReader(resp.Body), func() {
		cancel()
		resp.Body.Close()
	}
}

func TestSubscribeReceivesReadyAndPublished(t *testing.T) {
	hub := NewHub(Config{BufferSize: 10, HeartbeatInterval: time.Hour}, func() interface{} {
		return map[string]interface{}{"connected": true}
	})
	defer hub.Stop()

	srv := newTestServer(t, hub)
	r, closeFn := subscribe(t, srv.URL, "")
	defer closeFn()

	ready := readMessage(t, r)
	assert.Equal(t, TypeReady, ready.Event)
	snap, ok := ready.Data["snapshot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, snap["connected"])

	require.NoError(t, hub.Publish(Event{
		Type: TypeCommand,
		Data: map[string]interface{}{"verb": "openEDF", "status": "success"},
	}))

	msg := readMessage(t, r)
	assert.Equal(t, TypeCommand, msg.Event)
	assert.Equal(t, "openEDF", msg.Data["verb"])
	assert.NotEmpty(t, msg.ID)
}

func TestReplayAfterLastEventID(t *testing.T) {
	hub := NewHub(Config{BufferSize: 10, HeartbeatInterval: time.Hour}, nil)
	defer hub.Stop()

	for _, verb := range []string{"openEDF", "startRecording", "stopRecording"} {
		require.NoError(t, hub.Publish(Event{Type: TypeCommand, Data: map[string]interface{}{"verb": verb}}))
	}
	recent := hub.Recent()
	require.Len(t, recent, 3)

	srv := newTestServer(t, hub)
	r, closeFn := subscribe(t, srv.URL, "1")
	defer closeFn()

	assert.Equal(t, TypeReady, readMessage(t, r).Event)
	assert.Equal(t, "startRecording", readMessage(t, r).Data["verb"])
	assert.Equal(t, "stopRecording", readMessage(t, r).Data["verb"])
}

func TestReplayedEventsAreNotDeliveredTwice(t *testing.T) {
	hub := NewHub(Config{BufferSize: 10, HeartbeatInterval: time.Hour}, nil)
	defer hub.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	rec := httptest.NewRecorder()
	client := &Client{
		ID:           "c1",
		Writer:       rec,
		Cancel:       cancel,
		Events:       make(chan Event, 10),
		ctx:          ctx,
		replayedUpTo: 3,
	}
	// IDs 2 and 3 were published after registration and already replayed.
	for _, id := range []int64{2, 3, 4} {
		client.Events <- Event{ID: id, Type: TypeCommand, Data: map[string]interface{}{}}
	}

	done := make(chan struct{})
	go func() {
		hub.handleClient(client)
		close(done)
	}()

	body := func() string {
		client.mu.Lock()
		defer client.mu.Unlock()
		return rec.Body.String()
	}
	require.Eventually(t, func() bool {
		return strings.Contains(body(), "id: 4\n")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.NotContains(t, body(), "id: 2\n")
	assert.NotContains(t, body(), "id: 3\n")
}

func TestHeartbeat(t *testing.T) {
	hub := NewHub(Config{BufferSize: 10, HeartbeatInterval: 20 * time.Millisecond}, nil)
	defer hub.Stop()

	srv := newTestServer(t, hub)
	r, closeFn := subscribe(t, srv.URL, "")
	defer closeFn()

	assert.Equal(t, TypeReady, readMessage(t, r).Event)
	hb := readMessage(t, r)
	assert.Equal(t, TypeHeartbeat, hb.Event)
	assert.NotEmpty(t, hb.Data["ts"])

	// Heartbeats are not buffered for replay
	assert.Empty(t, hub.Recent())
}

func TestBufferCapacity(t *testing.T) {
	b := NewBuffer(3)
	for i := int64(1); i <= 5; i++ {
		b.Add(Event{ID: i, Type: TypeCommand})
	}

	assert.Equal(t, 3, b.Len())
	events := b.After(0)
	require.Len(t, events, 3)
	assert.Equal(t, int64(3), events[0].ID)
	assert.Len(t, b.After(4), 1)
}

func TestStopDisconnectsClients(t *testing.T) {
	hub := NewHub(Config{}, nil)
	srv := newTestServer(t, hub)
	r, closeFn := subscribe(t, srv.URL, "")
	defer closeFn()

	assert.Equal(t, TypeReady, readMessage(t, r).Event)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Stop()
	hub.Stop()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.NoError(t, hub.Publish(Event{Type: TypeCommand}))
}
