// Package mockserver provides an in-process futures exchange for end-to-end
// tests: signed REST endpoints backed by mutable fixture state, failure
// injection, request counting, and websocket user/market streams that tests
// push events through.
package mockserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Position is the exchange-side view of an open position.
type Position struct {
	Symbol       string
	Quantity     float64
	EntryPrice   float64
	PositionSide string
}

type injectedFailure struct {
	remaining int
	status    int
	body      string
}

// MockExchange is a fake USDT-M futures exchange.
type MockExchange struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	apiKey    string
	secretKey string

	mu            sync.Mutex
	walletBalance float64
	positions     []Position
	markPrices    map[string]float64
	precisions    map[string]int
	leverages     map[string]int
	marginModes   map[string]string
	listenKey     string
	nextOrderID   int64

	requestCounts map[string]int
	failures      map[string]*injectedFailure

	userConns   []*websocket.Conn
	marketConns []*websocket.Conn
}

// New starts a mock exchange accepting the given credentials.
func New(apiKey string, secretKey string) *MockExchange {
	//nolint:exhaustruct
	m := &MockExchange{
		upgrader:      websocket.Upgrader{},
		apiKey:        apiKey,
		secretKey:     secretKey,
		walletBalance: 10000,
		markPrices:    make(map[string]float64),
		precisions:    map[string]int{"BTCUSDT": 3, "ETHUSDT": 2},
		leverages:     make(map[string]int),
		marginModes:   make(map[string]string),
		listenKey:     uuid.New().String(),
		nextOrderID:   1,
		requestCounts: make(map[string]int),
		failures:      make(map[string]*injectedFailure),
	}

	router := mux.NewRouter()
	router.HandleFunc("/fapi/v1/time", m.handleTime).Methods(http.MethodGet)
	router.HandleFunc("/fapi/v1/exchangeInfo", m.handleExchangeInfo).Methods(http.MethodGet)
	router.HandleFunc("/fapi/v2/account", m.signed(m.handleAccount)).Methods(http.MethodGet)
	router.HandleFunc("/fapi/v2/positionRisk", m.signed(m.handlePositionRisk)).Methods(http.MethodGet)
	router.HandleFunc("/fapi/v1/premiumIndex", m.handlePremiumIndex).Methods(http.MethodGet)
	router.HandleFunc("/fapi/v1/klines", m.handleKlines).Methods(http.MethodGet)
	router.HandleFunc("/fapi/v1/order", m.signed(m.handleOrder)).Methods(http.MethodPost)
	router.HandleFunc("/fapi/v1/leverage", m.signed(m.handleLeverage)).Methods(http.MethodPost)
	router.HandleFunc("/fapi/v1/marginType", m.signed(m.handleMarginType)).Methods(http.MethodPost)
	router.HandleFunc("/fapi/v1/income", m.signed(m.handleIncome)).Methods(http.MethodGet)
	router.HandleFunc("/fapi/v1/listenKey", m.handleListenKey).Methods(http.MethodPost, http.MethodPut)
	router.HandleFunc("/ws/{listenKey}", m.handleUserStream)
	router.HandleFunc("/stream", m.handleMarketStream)

	m.server = httptest.NewServer(m.countRequests(m.injectFailures(router)))

	return m
}

// Close shuts the exchange down.
func (m *MockExchange) Close() {
	m.mu.Lock()
	conns := append(append([]*websocket.Conn(nil), m.userConns...), m.marketConns...)
	m.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}

	m.server.Close()
}

// URL is the REST base URL.
func (m *MockExchange) URL() string {
	return m.server.URL
}

// WsURL is the websocket base URL.
func (m *MockExchange) WsURL() string {
	return "ws" + strings.TrimPrefix(m.server.URL, "http")
}

// SetPosition replaces the exchange-side position for a symbol.
func (m *MockExchange) SetPosition(pos Position) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.positions {
		if m.positions[i].Symbol == pos.Symbol {
			m.positions[i] = pos
			return
		}
	}

	m.positions = append(m.positions, pos)
}

// ClearPositions removes all positions.
func (m *MockExchange) ClearPositions() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.positions = nil
}

// SetMarkPrice sets the mark price served for a symbol.
func (m *MockExchange) SetMarkPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.markPrices[symbol] = price
}

// FailNext makes the next n requests to path fail with the given status and
// body.
func (m *MockExchange) FailNext(path string, n int, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures[path] = &injectedFailure{remaining: n, status: status, body: body}
}

// RequestCount returns how many requests hit path.
func (m *MockExchange) RequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.requestCounts[path]
}

// Leverage returns the leverage applied for a symbol.
func (m *MockExchange) Leverage(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.leverages[symbol]
}

// MarginMode returns the margin mode applied for a symbol.
func (m *MockExchange) MarginMode(symbol string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.marginModes[symbol]
}

// PushUserEvent sends a raw event to every connected user stream client.
func (m *MockExchange) PushUserEvent(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, conn := range m.userConns {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(event))
	}
}

// PushMarketEvent sends a raw event to every connected market stream client.
func (m *MockExchange) PushMarketEvent(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, conn := range m.marketConns {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(event))
	}
}

func (m *MockExchange) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requestCounts[r.URL.Path]++
		m.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (m *MockExchange) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		failure, ok := m.failures[r.URL.Path]
		if ok && failure.remaining > 0 {
			failure.remaining--
			status := failure.status
			body := failure.body
			m.mu.Unlock()

			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))

			return
		}
		m.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// signed verifies the API key header and the HMAC signature of the query
// string before delegating.
func (m *MockExchange) signed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") != m.apiKey {
			writeAPIError(w, http.StatusUnauthorized, -2015, "Invalid API-key, IP, or permissions for action.")
			return
		}

		query := r.URL.Query()
		signature := query.Get("signature")
		query.Del("signature")

		mac := hmac.New(sha256.New, []byte(m.secretKey))
		mac.Write([]byte(query.Encode()))

		if signature != hex.EncodeToString(mac.Sum(nil)) {
			writeAPIError(w, http.StatusUnauthorized, -1022, "Signature for this request is not valid.")
			return
		}

		next(w, r)
	}
}

func (m *MockExchange) handleTime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]int64{"serverTime": time.Now().UnixMilli()})
}

func (m *MockExchange) handleExchangeInfo(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbols := make([]map[string]any, 0, len(m.precisions))
	for symbol, precision := range m.precisions {
		symbols = append(symbols, map[string]any{
			"symbol":            symbol,
			"quantityPrecision": precision,
			"pricePrecision":    2,
		})
	}

	writeJSON(w, map[string]any{"symbols": symbols})
}

func (m *MockExchange) handleAccount(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	writeJSON(w, map[string]any{
		"totalWalletBalance":    formatFloat(m.walletBalance),
		"totalMarginBalance":    formatFloat(m.walletBalance),
		"availableBalance":      formatFloat(m.walletBalance),
		"totalUnrealizedProfit": "0",
		"assets": []map[string]any{
			{"asset": "USDT", "walletBalance": formatFloat(m.walletBalance), "availableBalance": formatFloat(m.walletBalance)},
		},
	})
}

func (m *MockExchange) handlePositionRisk(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbol := r.URL.Query().Get("symbol")
	rows := make([]map[string]any, 0, len(m.positions))

	for _, pos := range m.positions {
		if symbol != "" && pos.Symbol != symbol {
			continue
		}

		rows = append(rows, map[string]any{
			"symbol":           pos.Symbol,
			"positionAmt":      formatFloat(pos.Quantity),
			"entryPrice":       formatFloat(pos.EntryPrice),
			"unRealizedProfit": "0",
			"positionSide":     pos.PositionSide,
			"updateTime":       time.Now().UnixMilli(),
		})
	}

	writeJSON(w, rows)
}

func (m *MockExchange) handlePremiumIndex(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbol := r.URL.Query().Get("symbol")
	price, ok := m.markPrices[symbol]
	if !ok {
		writeAPIError(w, http.StatusBadRequest, -1121, "Invalid symbol.")
		return
	}

	writeJSON(w, map[string]any{"symbol": symbol, "markPrice": formatFloat(price)})
}

func (m *MockExchange) handleKlines(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	base := time.Now().Add(-time.Duration(limit) * time.Minute).Truncate(time.Minute)
	rows := make([][]any, 0, limit)

	for i := range limit {
		openTime := base.Add(time.Duration(i) * time.Minute)
		rows = append(rows, []any{
			openTime.UnixMilli(),
			"100.0", "101.0", "99.0", "100.5", "10.0",
			openTime.Add(time.Minute).UnixMilli() - 1,
			"1000.0", 100, "5.0", "500.0", "0",
		})
	}

	writeJSON(w, rows)
}

// handleOrder fills market orders immediately at the mark price and updates
// the exchange-side position, honoring reduceOnly.
func (m *MockExchange) handleOrder(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query := r.URL.Query()
	symbol := query.Get("symbol")
	side := query.Get("side")
	quantity, _ := strconv.ParseFloat(query.Get("quantity"), 64)
	reduceOnly := query.Get("reduceOnly") == "true"

	price, ok := m.markPrices[symbol]
	if !ok {
		writeAPIError(w, http.StatusBadRequest, -1121, "Invalid symbol.")
		return
	}

	if quantity <= 0 {
		writeAPIError(w, http.StatusBadRequest, -1100, "Illegal characters found in parameter 'quantity'.")
		return
	}

	signedQty := quantity
	if side == "SELL" {
		signedQty = -quantity
	}

	if reduceOnly {
		m.reducePositionLocked(symbol, signedQty)
	} else {
		m.addPositionLocked(symbol, signedQty, price)
	}

	orderID := m.nextOrderID
	m.nextOrderID++

	writeJSON(w, map[string]any{
		"orderId":     orderID,
		"symbol":      symbol,
		"status":      "FILLED",
		"side":        side,
		"executedQty": formatFloat(quantity),
		"avgPrice":    formatFloat(price),
	})
}

func (m *MockExchange) addPositionLocked(symbol string, signedQty float64, price float64) {
	for i := range m.positions {
		if m.positions[i].Symbol == symbol {
			m.positions[i].Quantity += signedQty
			return
		}
	}

	m.positions = append(m.positions, Position{
		Symbol:       symbol,
		Quantity:     signedQty,
		EntryPrice:   price,
		PositionSide: "BOTH",
	})
}

func (m *MockExchange) reducePositionLocked(symbol string, signedQty float64) {
	for i := range m.positions {
		if m.positions[i].Symbol != symbol {
			continue
		}

		m.positions[i].Quantity += signedQty
		if m.positions[i].Quantity == 0 {
			m.positions = append(m.positions[:i], m.positions[i+1:]...)
		}

		return
	}
}

func (m *MockExchange) handleLeverage(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbol := r.URL.Query().Get("symbol")
	leverage, _ := strconv.Atoi(r.URL.Query().Get("leverage"))
	m.leverages[symbol] = leverage

	writeJSON(w, map[string]any{"symbol": symbol, "leverage": leverage, "maxNotionalValue": "1000000"})
}

func (m *MockExchange) handleMarginType(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbol := r.URL.Query().Get("symbol")
	marginType := r.URL.Query().Get("marginType")

	if m.marginModes[symbol] == marginType {
		writeAPIError(w, http.StatusBadRequest, -4046, "No need to change margin type.")
		return
	}

	m.marginModes[symbol] = marginType
	writeJSON(w, map[string]any{"code": 200, "msg": "success"})
}

func (m *MockExchange) handleIncome(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	writeJSON(w, []map[string]any{
		{
			"symbol":     symbol,
			"incomeType": "REALIZED_PNL",
			"income":     "9.89",
			"asset":      "USDT",
			"time":       time.Now().UnixMilli(),
		},
	})
}

func (m *MockExchange) handleListenKey(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-MBX-APIKEY") != m.apiKey {
		writeAPIError(w, http.StatusUnauthorized, -2015, "Invalid API-key, IP, or permissions for action.")
		return
	}

	if r.Method == http.MethodPut {
		writeJSON(w, map[string]any{})
		return
	}

	m.mu.Lock()
	key := m.listenKey
	m.mu.Unlock()

	writeJSON(w, map[string]string{"listenKey": key})
}

func (m *MockExchange) handleUserStream(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	expected := m.listenKey
	m.mu.Unlock()

	if mux.Vars(r)["listenKey"] != expected {
		http.Error(w, "unknown listen key", http.StatusNotFound)
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m.mu.Lock()
	m.userConns = append(m.userConns, conn)
	m.mu.Unlock()
}

func (m *MockExchange) handleMarketStream(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m.mu.Lock()
	m.marketConns = append(m.marketConns, conn)
	m.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

func writeAPIError(w http.ResponseWriter, status int, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"code": %d, "msg": %q}`, code, msg)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
