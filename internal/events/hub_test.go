package events

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"narration-timeline-service/internal/models"
)

// sliceReader serves queued messages, then blocks until ctx is done.
type sliceReader struct {
	msgs []kafka.Message
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		return m, nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func connect(t *testing.T, ctx context.Context) (*Hub, *websocket.Conn) {
	t.Helper()
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	return hub, conn
}

func TestHub_BroadcastsToClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub, conn := connect(t, ctx)

	hub.Broadcast(models.Event{EventID: "e1", EventType: models.EventPlanCreated, RunID: "run-1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got models.Event
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, models.EventPlanCreated, got.EventType)
}

func TestConsume_SkipsUndecodable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub, conn := connect(t, ctx)

	good, err := json.Marshal(models.Event{EventType: models.EventSlidesSplit, RunID: "run-2"})
	require.NoError(t, err)
	reader := &sliceReader{msgs: []kafka.Message{
		{Topic: "timeline.content", Value: []byte("not json")},
		{Topic: "timeline.content", Value: good},
	}}

	done := make(chan struct{})
	go func() {
		Consume(ctx, reader, hub)
		close(done)
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got models.Event
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "run-2", got.RunID)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Consume did not stop after cancel")
	}
}
