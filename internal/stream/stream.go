package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// ListenKeyService issues and renews the session token for the private user
// data stream. The live gateway implements it.
type ListenKeyService interface {
	CreateListenKey(ctx context.Context) (string, error)
	KeepAliveListenKey(ctx context.Context, listenKey string) error
}

// StreamerConfig configures the websocket streamer.
type StreamerConfig struct {
	// BaseURL of the websocket endpoint, e.g. wss://fstream.binance.com.
	BaseURL       string
	Symbols       []string
	KlineInterval string
	// KeepAliveInterval is how often the listen key is renewed.
	KeepAliveInterval time.Duration
	// ReconnectDelay is waited before the single reconnect attempt after
	// an unexpected disconnect.
	ReconnectDelay time.Duration
}

// Streamer maintains the private user data stream and the combined public
// market stream, feeding every event into the cache.
//
// On unexpected disconnect each stream reconnects once after ReconnectDelay
// and then gives up; it does not retry in a loop.
type Streamer struct {
	cfg   StreamerConfig
	cache *Cache
	keys  ListenKeyService
	log   *logger.Logger

	listenKey string

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewStreamer creates a streamer feeding cache.
func NewStreamer(cfg StreamerConfig, cache *Cache, keys ListenKeyService, log *logger.Logger) *Streamer {
	//nolint:exhaustruct
	return &Streamer{
		cfg:    cfg,
		cache:  cache,
		keys:   keys,
		log:    log,
		stopCh: make(chan struct{}),
	}
}

// Start obtains a listen key, connects both streams and launches the read
// and keep-alive loops. It returns once the connections are established.
func (s *Streamer) Start(ctx context.Context) error {
	listenKey, err := s.keys.CreateListenKey(ctx)
	if err != nil {
		return err
	}
	s.listenKey = listenKey

	userConn, err := s.dial(ctx, s.userStreamURL())
	if err != nil {
		return err
	}

	marketConn, err := s.dial(ctx, s.marketStreamURL())
	if err != nil {
		_ = userConn.Close()
		return err
	}

	s.wg.Add(3)
	go s.readLoop("user", userConn, s.userStreamURL(), s.handleUserMessage)
	go s.readLoop("market", marketConn, s.marketStreamURL(), s.handleMarketMessage)
	go s.keepAliveLoop(ctx)

	s.log.Info("Streams connected",
		zap.Strings("symbols", s.cfg.Symbols),
		zap.String("interval", s.cfg.KlineInterval))

	return nil
}

// Stop closes both streams and waits for the loops to finish.
func (s *Streamer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Streamer) userStreamURL() string {
	return s.cfg.BaseURL + "/ws/" + s.listenKey
}

func (s *Streamer) marketStreamURL() string {
	streams := make([]string, 0, len(s.cfg.Symbols)*2)
	for _, symbol := range s.cfg.Symbols {
		lower := strings.ToLower(symbol)
		streams = append(streams,
			lower+"@markPrice@1s",
			lower+"@kline_"+s.cfg.KlineInterval)
	}

	return s.cfg.BaseURL + "/stream?streams=" + strings.Join(streams, "/")
}

func (s *Streamer) dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStreamClosed, err, "failed to dial %s", url)
	}

	return conn, nil
}

func (s *Streamer) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Streamer) readLoop(name string, conn *websocket.Conn, redial string, handle func([]byte)) {
	defer s.wg.Done()

	reconnected := false
	watchDone := s.watchStop(conn)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			close(watchDone)
			_ = conn.Close()

			if s.stopped() {
				return
			}

			if reconnected {
				s.log.Error("Stream closed again after reconnect, giving up",
					zap.String("stream", name), zap.Error(err))
				return
			}

			s.log.Warn("Stream closed unexpectedly, reconnecting once",
				zap.String("stream", name),
				zap.Duration("delay", s.cfg.ReconnectDelay),
				zap.Error(err))

			select {
			case <-s.stopCh:
				return
			case <-time.After(s.cfg.ReconnectDelay):
			}

			newConn, dialErr := s.dial(context.Background(), redial)
			if dialErr != nil {
				s.log.Error("Stream reconnect failed, giving up",
					zap.String("stream", name), zap.Error(dialErr))
				return
			}

			conn = newConn
			reconnected = true
			watchDone = s.watchStop(conn)

			continue
		}

		handle(message)
	}
}

// watchStop closes conn when the streamer stops, unblocking ReadMessage.
func (s *Streamer) watchStop(conn *websocket.Conn) chan struct{} {
	done := make(chan struct{})

	go func() {
		select {
		case <-s.stopCh:
			_ = conn.Close()
		case <-done:
		}
	}()

	return done
}

// keepAliveLoop renews the listen key on a fixed schedule. Renewal failures
// are logged and retried on the next cycle; the stream is never torn down
// preemptively.
func (s *Streamer) keepAliveLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.keys.KeepAliveListenKey(ctx, s.listenKey); err != nil {
				s.log.Warn("Listen key keep-alive failed, will retry next cycle", zap.Error(err))
			}
		}
	}
}

// decodeEvent unmarshals a stream payload, tagging failures so a dropped
// message is attributable in the logs.
func decodeEvent(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.Wrap(errors.ErrCodeStreamParseFailed, "failed to decode stream payload", err)
	}

	return nil
}

func (s *Streamer) handleUserMessage(message []byte) {
	var envelope streamEnvelope
	if err := decodeEvent(message, &envelope); err != nil {
		s.log.Warn("Unparseable user stream message", zap.Error(err))
		return
	}

	switch envelope.EventType {
	case "ACCOUNT_UPDATE":
		var event accountUpdateEvent
		if err := decodeEvent(message, &event); err != nil {
			s.log.Warn("Unparseable account update", zap.Error(err))
			return
		}

		s.cache.applyAccountUpdate(event)
	case "listenKeyExpired":
		s.log.Warn("Listen key expired")
	default:
		s.log.Debug("Ignoring user stream event", zap.String("event", envelope.EventType))
	}
}

func (s *Streamer) handleMarketMessage(message []byte) {
	var combined combinedEnvelope
	if err := decodeEvent(message, &combined); err != nil {
		s.log.Warn("Unparseable market stream message", zap.Error(err))
		return
	}

	payload := combined.Data
	if payload == nil {
		// Raw (non-combined) stream message.
		payload = message
	}

	var envelope streamEnvelope
	if err := decodeEvent(payload, &envelope); err != nil {
		s.log.Warn("Unparseable market event", zap.Error(err))
		return
	}

	switch envelope.EventType {
	case "markPriceUpdate":
		var event markPriceEvent
		if err := decodeEvent(payload, &event); err != nil {
			s.log.Warn("Unparseable mark price event", zap.Error(err))
			return
		}

		s.cache.applyMarkPrice(event)
	case "kline":
		var event klineEvent
		if err := decodeEvent(payload, &event); err != nil {
			s.log.Warn("Unparseable kline event", zap.Error(err))
			return
		}

		s.cache.applyKline(event)
	default:
		s.log.Debug("Ignoring market stream event", zap.String("event", envelope.EventType))
	}
}
