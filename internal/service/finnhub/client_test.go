package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeFinnhub(t *testing.T, subs chan<- string) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("token"))
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var sub map[string]string
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subs <- sub["symbol"]
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"trade","data":[{"s":"AAPL","p":189.5,"v":10,"t":1700000000123}]}`))
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientStreamsTrades(t *testing.T) {
	subs := make(chan string, 1)
	srv := fakeFinnhub(t, subs)
	c := New(Config{
		APIKey:       "k",
		WebsocketURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		Symbols:      []string{"AAPL"},
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Subscribe(ctx))
	assert.True(t, c.IsConnected())
	assert.Equal(t, "AAPL", <-subs)

	trades, _ := c.Read(ctx)
	select {
	case tr := <-trades:
		require.NotNil(t, tr)
		assert.Equal(t, "AAPL", tr.Symbol)
		assert.Equal(t, int64(1700000000), tr.Timestamp)
		assert.InDelta(t, 189.5, tr.Price, 1e-9)
	case <-ctx.Done():
		t.Fatal("no trade received")
	}

	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
}

func TestSubscribeRequiresConnection(t *testing.T) {
	c := New(Config{Symbols: []string{"AAPL"}}, nil)
	require.Error(t, c.Subscribe(context.Background()))
}
