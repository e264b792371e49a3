package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgate/trendgate/internal/market"
)

func TestStream_DeliversMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}
	served := []Message{
		{Type: MessageBar, Bar: &market.Bar{
			Timestamp: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
			Open:      1.1, High: 1.101, Low: 1.099, Close: 1.1005,
		}},
		{Type: MessageQuote, Quote: &market.Quote{
			Bid: 1.1004, Ask: 1.1006,
			Time: time.Date(2024, 3, 4, 9, 0, 30, 0, time.UTC),
		}},
		{Type: MessagePositions, Positions: []market.Position{
			{ID: "pos-1", Symbol: "EURUSD", Side: market.Buy, EntryPrice: 1.0990, Volume: 50000},
		}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		// An unknown message type must be skipped, not delivered.
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)))
		for _, msg := range served {
			payload, err := json.Marshal(msg)
			require.NoError(t, err)
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
		}
		// Keep the connection open until the client goes away.
		conn.ReadMessage()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := NewStream(StreamConfig{
		URL: "ws" + strings.TrimPrefix(server.URL, "http"),
	}, zerolog.Nop())

	out := make(chan Message, 8)
	done := make(chan struct{})
	go func() {
		stream.Run(ctx, out)
		close(done)
	}()

	var got []Message
	for len(got) < len(served) {
		select {
		case msg := <-out:
			got = append(got, msg)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for messages")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}

	require.Equal(t, MessageBar, got[0].Type)
	require.NotNil(t, got[0].Bar)
	assert.True(t, got[0].Bar.Timestamp.Equal(served[0].Bar.Timestamp))

	require.Equal(t, MessageQuote, got[1].Type)
	require.NotNil(t, got[1].Quote)
	assert.Equal(t, 1.1004, got[1].Quote.Bid)

	require.Equal(t, MessagePositions, got[2].Type)
	require.Len(t, got[2].Positions, 1)
	assert.Equal(t, "pos-1", got[2].Positions[0].ID)
}

func TestStream_RunReturnsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := NewStream(StreamConfig{URL: "ws://127.0.0.1:1/feed"}, zerolog.Nop())
	err := stream.Run(ctx, make(chan Message))
	require.ErrorIs(t, err, context.Canceled)
}
