package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListenKeys struct {
	keepAlives atomic.Int64
}

func (f *fakeListenKeys) CreateListenKey(_ context.Context) (string, error) {
	return "test-listen-key", nil
}

func (f *fakeListenKeys) KeepAliveListenKey(_ context.Context, _ string) error {
	f.keepAlives.Add(1)
	return nil
}

// wsTestServer accepts the user and market stream connections and lets the
// test push raw messages down each.
type wsTestServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu         sync.Mutex
	userConn   *websocket.Conn
	marketConn *websocket.Conn
	connected  chan string
}

func newWsTestServer(t *testing.T) *wsTestServer {
	t.Helper()

	//nolint:exhaustruct
	ts := &wsTestServer{
		upgrader:  websocket.Upgrader{},
		connected: make(chan string, 4),
	}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ts.upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		ts.mu.Lock()
		if strings.HasPrefix(r.URL.Path, "/ws/") {
			ts.userConn = conn
			ts.connected <- "user"
		} else {
			ts.marketConn = conn
			ts.connected <- "market"
		}
		ts.mu.Unlock()
	}))
	t.Cleanup(ts.server.Close)

	return ts
}

func (ts *wsTestServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.server.URL, "http")
}

func (ts *wsTestServer) awaitConnections(t *testing.T, n int) {
	t.Helper()

	for range n {
		select {
		case <-ts.connected:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stream connection")
		}
	}
}

func (ts *wsTestServer) pushUser(t *testing.T, message string) {
	t.Helper()

	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NoError(t, ts.userConn.WriteMessage(websocket.TextMessage, []byte(message)))
}

func (ts *wsTestServer) pushMarket(t *testing.T, message string) {
	t.Helper()

	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NoError(t, ts.marketConn.WriteMessage(websocket.TextMessage, []byte(message)))
}

func newTestStreamer(t *testing.T, ts *wsTestServer, cache *Cache, keys ListenKeyService) *Streamer {
	t.Helper()

	return NewStreamer(StreamerConfig{
		BaseURL:           ts.wsURL(),
		Symbols:           []string{"BTCUSDT"},
		KlineInterval:     "1m",
		KeepAliveInterval: 25 * time.Millisecond,
		ReconnectDelay:    10 * time.Millisecond,
	}, cache, keys, logger.NewNopLogger())
}

func TestStreamer_FeedsCache(t *testing.T) {
	ts := newWsTestServer(t)
	cache := NewCache(100)
	streamer := newTestStreamer(t, ts, cache, &fakeListenKeys{})

	require.NoError(t, streamer.Start(context.Background()))
	defer streamer.Stop()
	ts.awaitConnections(t, 2)

	ts.pushUser(t, `{
		"e": "ACCOUNT_UPDATE",
		"E": 1700000000000,
		"a": {
			"B": [{"a": "USDT", "wb": "1000", "cw": "1000"}],
			"P": [{"s": "BTCUSDT", "pa": "0.5", "ep": "42000", "up": "0", "ps": "BOTH"}]
		}
	}`)

	ts.pushMarket(t, `{
		"stream": "btcusdt@markPrice@1s",
		"data": {"e": "markPriceUpdate", "E": 1700000000000, "s": "BTCUSDT", "p": "42100.5"}
	}`)

	ts.pushMarket(t, `{
		"stream": "btcusdt@kline_1m",
		"data": {"e": "kline", "s": "BTCUSDT", "k": {
			"t": 1700000000000, "T": 1700000059999, "s": "BTCUSDT", "i": "1m",
			"o": "42000", "h": "42200", "l": "41900", "c": "42100", "v": "12.5", "x": true
		}}
	}`)

	require.Eventually(t, func() bool {
		return cache.Ready() &&
			cache.MarkPrice("BTCUSDT").IsSome() &&
			len(cache.Candles("BTCUSDT")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, positions := cache.Account()
	require.Len(t, positions, 1)
	assert.InDelta(t, 0.5, positions[0].Quantity, 1e-9)
	assert.InDelta(t, 42100.5, cache.MarkPrice("BTCUSDT").Unwrap().Price, 1e-9)
	assert.InDelta(t, 42100, cache.Candles("BTCUSDT")[0].Close, 1e-9)
}

func TestDecodeEvent_TagsMalformedPayloads(t *testing.T) {
	var envelope streamEnvelope

	err := decodeEvent([]byte(`{"e": `), &envelope)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeStreamParseFailed))

	require.NoError(t, decodeEvent([]byte(`{"e": "kline"}`), &envelope))
	assert.Equal(t, "kline", envelope.EventType)
}

func TestStreamer_DropsMalformedMessages(t *testing.T) {
	cache := NewCache(100)
	streamer := NewStreamer(StreamerConfig{
		BaseURL:           "ws://unused",
		Symbols:           []string{"BTCUSDT"},
		KlineInterval:     "1m",
		KeepAliveInterval: time.Minute,
		ReconnectDelay:    time.Second,
	}, cache, &fakeListenKeys{}, logger.NewNopLogger())

	streamer.handleUserMessage([]byte(`{"e": "ACCOUNT_UPDATE", "a": `))
	streamer.handleMarketMessage([]byte(`not json`))

	assert.False(t, cache.Ready())
	assert.Empty(t, cache.Candles("BTCUSDT"))
}

func TestStreamer_KeepAliveRenewsListenKey(t *testing.T) {
	ts := newWsTestServer(t)
	keys := &fakeListenKeys{}
	streamer := newTestStreamer(t, ts, NewCache(100), keys)

	require.NoError(t, streamer.Start(context.Background()))
	defer streamer.Stop()
	ts.awaitConnections(t, 2)

	require.Eventually(t, func() bool {
		return keys.keepAlives.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamer_ReconnectsOnceAfterDrop(t *testing.T) {
	ts := newWsTestServer(t)
	cache := NewCache(100)
	streamer := newTestStreamer(t, ts, cache, &fakeListenKeys{})

	require.NoError(t, streamer.Start(context.Background()))
	defer streamer.Stop()
	ts.awaitConnections(t, 2)

	// Drop the user stream; the streamer should dial back in once.
	ts.mu.Lock()
	require.NoError(t, ts.userConn.Close())
	ts.mu.Unlock()

	ts.awaitConnections(t, 1)

	ts.pushUser(t, `{
		"e": "ACCOUNT_UPDATE",
		"E": 1700000000000,
		"a": {"B": [{"a": "USDT", "wb": "500", "cw": "500"}], "P": []}
	}`)

	require.Eventually(t, cache.Ready, 2*time.Second, 10*time.Millisecond)
}

func TestStreamer_StopIsClean(t *testing.T) {
	ts := newWsTestServer(t)
	streamer := newTestStreamer(t, ts, NewCache(100), &fakeListenKeys{})

	require.NoError(t, streamer.Start(context.Background()))
	ts.awaitConnections(t, 2)

	done := make(chan struct{})
	go func() {
		streamer.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
