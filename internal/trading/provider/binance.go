package tradingprovider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/resilience"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	binanceBaseURL        = "https://fapi.binance.com"
	binanceTestnetBaseURL = "https://testnet.binancefuture.com"

	defaultRecvWindow = 5000
	// defaultPrecision is the conservative quantity precision used for
	// symbols missing from the exchange rule table.
	defaultPrecision = 3

	httpTimeout = 10 * time.Second
)

// BinanceGateway is the live USDT-margined futures gateway. Every signed call
// goes through the resilience pipeline; unsigned market data reads share the
// same pipeline so the whole process respects one request budget.
type BinanceGateway struct {
	cfg        BinanceGatewayConfig
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	pipeline   *resilience.Pipeline
	log        *logger.Logger

	// timeOffset is serverTime - localTime in milliseconds.
	timeOffset atomic.Int64

	precisionMu sync.RWMutex
	precision   map[string]int
}

// NewBinanceGateway creates a live gateway. Call Initialize before trading to
// sync server time and load the exchange rule table.
func NewBinanceGateway(cfg BinanceGatewayConfig, pipeline *resilience.Pipeline, log *logger.Logger) (*BinanceGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = defaultRecvWindow
	}

	baseURL := binanceBaseURL
	if cfg.Testnet {
		baseURL = binanceTestnetBaseURL
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	//nolint:exhaustruct
	return &BinanceGateway{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: httpTimeout},
		signer:     NewSigner(cfg.SecretKey),
		pipeline:   pipeline,
		log:        log,
		precision:  make(map[string]int),
	}, nil
}

// Initialize syncs server time and loads symbol precision rules. Failures are
// logged and tolerated: time falls back to the local clock and precision to
// the conservative default.
func (g *BinanceGateway) Initialize(ctx context.Context) {
	if err := g.syncServerTime(ctx); err != nil {
		g.log.Warn("Server time sync failed, using local clock", zap.Error(err))
	}

	if err := g.loadExchangeInfo(ctx); err != nil {
		g.log.Warn("Exchange info load failed, using default precision", zap.Error(err))
	}
}

// GetAccountSnapshot returns current balances. On failure the zero snapshot
// is returned alongside the error so callers that must keep running can use
// the default and treat it as not-ready.
func (g *BinanceGateway) GetAccountSnapshot(ctx context.Context) (types.AccountSnapshot, error) {
	params := url.Values{}

	body, err := resilience.Execute(ctx, g.pipeline, func() ([]byte, error) {
		return g.doSigned(ctx, http.MethodGet, "/fapi/v2/account", params)
	})
	if err != nil {
		g.log.Error("Account snapshot fetch failed", zap.Error(err))
		return types.AccountSnapshot{}, err //nolint:exhaustruct
	}

	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.AccountSnapshot{}, errors.Wrap(errors.ErrCodeExchangeRejected, "failed to decode account response", err) //nolint:exhaustruct
	}

	assets := make([]types.AssetBalance, 0, len(resp.Assets))
	for _, asset := range resp.Assets {
		balance := parseFloat(asset.WalletBalance)
		if balance == 0 {
			continue
		}

		assets = append(assets, types.AssetBalance{
			Asset:            asset.Asset,
			WalletBalance:    balance,
			AvailableBalance: parseFloat(asset.AvailableBalance),
		})
	}

	return types.AccountSnapshot{
		WalletBalance:    parseFloat(resp.TotalWalletBalance),
		MarginBalance:    parseFloat(resp.TotalMarginBalance),
		AvailableBalance: parseFloat(resp.AvailableBalance),
		Assets:           assets,
		UpdatedAt:        g.now(),
	}, nil
}

// GetPositions returns open (nonzero) positions, optionally filtered to one
// symbol. Empty slice on failure.
func (g *BinanceGateway) GetPositions(ctx context.Context, symbol string) ([]types.Position, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	body, err := resilience.Execute(ctx, g.pipeline, func() ([]byte, error) {
		return g.doSigned(ctx, http.MethodGet, "/fapi/v2/positionRisk", params)
	})
	if err != nil {
		g.log.Error("Position fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return []types.Position{}, err
	}

	var resp []positionRiskResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return []types.Position{}, errors.Wrap(errors.ErrCodeExchangeRejected, "failed to decode position response", err)
	}

	positions := make([]types.Position, 0, len(resp))
	for _, pos := range resp {
		quantity := parseFloat(pos.PositionAmt)
		if quantity == 0 {
			continue
		}

		positions = append(positions, types.Position{
			Symbol:        pos.Symbol,
			Quantity:      quantity,
			EntryPrice:    parseFloat(pos.EntryPrice),
			PositionSide:  pos.PositionSide,
			UnrealizedPnL: parseFloat(pos.UnRealizedProfit),
			OpenedAt:      time.UnixMilli(pos.UpdateTime),
		})
	}

	return positions, nil
}

// GetCandles returns up to limit most recent candles.
func (g *BinanceGateway) GetCandles(ctx context.Context, symbol string, interval string, limit int) ([]types.Kline, error) {
	return g.getCandles(ctx, symbol, interval, limit, time.Time{}, time.Time{})
}

// GetCandlesRange returns candles inside [start, end] for historical
// backfill.
func (g *BinanceGateway) GetCandlesRange(ctx context.Context, symbol string, interval string, start time.Time, end time.Time, limit int) ([]types.Kline, error) {
	return g.getCandles(ctx, symbol, interval, limit, start, end)
}

func (g *BinanceGateway) getCandles(ctx context.Context, symbol string, interval string, limit int, start time.Time, end time.Time) ([]types.Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if !start.IsZero() {
		params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	}
	if !end.IsZero() {
		params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	}

	body, err := resilience.Execute(ctx, g.pipeline, func() ([]byte, error) {
		return g.doUnsigned(ctx, http.MethodGet, "/fapi/v1/klines", params)
	})
	if err != nil {
		g.log.Error("Kline fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return []types.Kline{}, err
	}

	return parseKlineRows(body, symbol, interval)
}

// GetMarkPrice returns the current mark price, or 0 on failure. Callers must
// treat 0 as unknown.
func (g *BinanceGateway) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := resilience.Execute(ctx, g.pipeline, func() ([]byte, error) {
		return g.doUnsigned(ctx, http.MethodGet, "/fapi/v1/premiumIndex", params)
	})
	if err != nil {
		g.log.Error("Mark price fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return 0, err
	}

	var resp premiumIndexResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, errors.Wrap(errors.ErrCodeExchangeRejected, "failed to decode mark price response", err)
	}

	return parseFloat(resp.MarkPrice), nil
}

// PlaceMarketOrder places a market order. In dry-run mode the order is not
// sent; a synthetic fill at the current mark price is returned instead.
func (g *BinanceGateway) PlaceMarketOrder(ctx context.Context, order types.MarketOrderRequest) (types.OrderResult, error) {
	//nolint:exhaustruct
	zero := types.OrderResult{}

	if err := order.Validate(); err != nil {
		return zero, err
	}

	if g.cfg.DryRun {
		return g.placeDryRunOrder(ctx, order)
	}

	params := url.Values{}
	params.Set("symbol", order.Symbol)
	params.Set("side", string(order.Side))
	params.Set("type", "MARKET")
	params.Set("quantity", formatQuantity(order.Quantity, g.GetSymbolPrecision(order.Symbol)))
	params.Set("newOrderRespType", "RESULT")
	if order.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if order.PositionSide != "" {
		params.Set("positionSide", order.PositionSide)
	}

	clientOrderID := order.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.New().String()
	}
	params.Set("newClientOrderId", clientOrderID)

	body, err := resilience.Execute(ctx, g.pipeline, func() ([]byte, error) {
		return g.doSigned(ctx, http.MethodPost, "/fapi/v1/order", cloneValues(params))
	})
	if err != nil {
		g.log.Error("Order placement failed",
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.Float64("quantity", order.Quantity),
			zap.Error(err))

		return zero, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return zero, errors.Wrap(errors.ErrCodeOrderFailed, "failed to decode order response", err)
	}

	result := types.OrderResult{
		OrderID:     resp.OrderID,
		Symbol:      resp.Symbol,
		Side:        types.Side(resp.Side),
		Status:      types.OrderStatus(resp.Status),
		ExecutedQty: parseFloat(resp.ExecutedQty),
		AvgPrice:    parseFloat(resp.AvgPrice),
		DryRun:      false,
	}

	g.log.Info("Order placed",
		zap.Int64("orderId", result.OrderID),
		zap.String("symbol", result.Symbol),
		zap.String("side", string(result.Side)),
		zap.String("status", string(result.Status)),
		zap.Float64("executedQty", result.ExecutedQty),
		zap.Float64("avgPrice", result.AvgPrice))

	return result, nil
}

func (g *BinanceGateway) placeDryRunOrder(ctx context.Context, order types.MarketOrderRequest) (types.OrderResult, error) {
	price, _ := g.GetMarkPrice(ctx, order.Symbol)

	g.log.Info("Dry-run order simulated",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("quantity", order.Quantity),
		zap.Float64("markPrice", price))

	return types.OrderResult{
		OrderID:     g.now().UnixMilli(),
		Symbol:      order.Symbol,
		Side:        order.Side,
		Status:      types.OrderStatusFilled,
		ExecutedQty: order.Quantity,
		AvgPrice:    price,
		DryRun:      true,
	}, nil
}

// ClosePosition flattens the open position with an opposite reduce-only
// market order. With multiple position-mode entries the first nonzero one is
// used. A missing position reports OrderStatusSkipped.
func (g *BinanceGateway) ClosePosition(ctx context.Context, symbol string) (types.OrderResult, error) {
	return g.closePosition(ctx, symbol, 1)
}

// ClosePositionPartial closes |quantity| * fraction of the open position,
// floored to the symbol precision. Fractions of 1 or more close fully.
func (g *BinanceGateway) ClosePositionPartial(ctx context.Context, symbol string, fraction float64) (types.OrderResult, error) {
	if fraction <= 0 {
		//nolint:exhaustruct
		return types.OrderResult{}, errors.New(errors.ErrCodeInvalidParameter, "close fraction must be positive")
	}
	if fraction > 1 {
		fraction = 1
	}

	return g.closePosition(ctx, symbol, fraction)
}

func (g *BinanceGateway) closePosition(ctx context.Context, symbol string, fraction float64) (types.OrderResult, error) {
	//nolint:exhaustruct
	zero := types.OrderResult{}

	positions, err := g.GetPositions(ctx, symbol)
	if err != nil {
		return zero, err
	}

	var open *types.Position
	for i := range positions {
		if positions[i].Quantity != 0 {
			open = &positions[i]
			break
		}
	}

	if open == nil {
		g.log.Info("No open position to close", zap.String("symbol", symbol))

		return types.OrderResult{
			OrderID:     0,
			Symbol:      symbol,
			Side:        "",
			Status:      types.OrderStatusSkipped,
			ExecutedQty: 0,
			AvgPrice:    0,
			DryRun:      g.cfg.DryRun,
		}, nil
	}

	precision := g.GetSymbolPrecision(symbol)
	quantity := floorQuantity(open.AbsQuantity()*fraction, precision)
	if quantity <= 0 {
		return zero, errors.Newf(errors.ErrCodeQuantityTooSmall,
			"partial close of %s rounds to zero at precision %d", symbol, precision)
	}

	side := types.SideSell
	if open.Quantity < 0 {
		side = types.SideBuy
	}

	return g.PlaceMarketOrder(ctx, types.MarketOrderRequest{
		Symbol:       symbol,
		Side:         side,
		Quantity:     quantity,
		ReduceOnly:   true,
		PositionSide: open.PositionSide,
	})
}

// SetLeverage applies the leverage for a symbol.
func (g *BinanceGateway) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))

	_, err := resilience.Execute(ctx, g.pipeline, func() ([]byte, error) {
		return g.doSigned(ctx, http.MethodPost, "/fapi/v1/leverage", cloneValues(params))
	})

	return err
}

// SetMarginMode applies the margin mode for a symbol. The exchange rejects
// the call when the mode is already set; that rejection is translated to
// success here since the desired state holds.
func (g *BinanceGateway) SetMarginMode(ctx context.Context, symbol string, mode types.MarginMode) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("marginType", string(mode))

	_, err := resilience.Execute(ctx, g.pipeline, func() ([]byte, error) {
		return g.doSigned(ctx, http.MethodPost, "/fapi/v1/marginType", cloneValues(params))
	})
	if err != nil && isNoNeedToChange(err) {
		g.log.Debug("Margin mode already set", zap.String("symbol", symbol), zap.String("mode", string(mode)))
		return nil
	}

	return err
}

// GetSymbolPrecision returns the cached quantity precision for a symbol, or a
// conservative default for unknown symbols.
func (g *BinanceGateway) GetSymbolPrecision(symbol string) int {
	g.precisionMu.RLock()
	defer g.precisionMu.RUnlock()

	if precision, ok := g.precision[symbol]; ok {
		return precision
	}

	return defaultPrecision
}

// GetIncomeHistory returns recent income records for a symbol (all symbols
// when empty).
func (g *BinanceGateway) GetIncomeHistory(ctx context.Context, symbol string, limit int) ([]types.IncomeEntry, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := resilience.Execute(ctx, g.pipeline, func() ([]byte, error) {
		return g.doSigned(ctx, http.MethodGet, "/fapi/v1/income", cloneValues(params))
	})
	if err != nil {
		g.log.Error("Income history fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return []types.IncomeEntry{}, err
	}

	var resp []incomeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return []types.IncomeEntry{}, errors.Wrap(errors.ErrCodeExchangeRejected, "failed to decode income response", err)
	}

	entries := make([]types.IncomeEntry, 0, len(resp))
	for _, income := range resp {
		entries = append(entries, types.IncomeEntry{
			Symbol:     income.Symbol,
			IncomeType: income.IncomeType,
			Income:     parseFloat(income.Income),
			Asset:      income.Asset,
			Time:       time.UnixMilli(income.Time),
		})
	}

	return entries, nil
}

// CreateListenKey opens a user data stream session and returns its token.
func (g *BinanceGateway) CreateListenKey(ctx context.Context) (string, error) {
	body, err := resilience.Execute(ctx, g.pipeline, func() ([]byte, error) {
		return g.doAPIKeyOnly(ctx, http.MethodPost, "/fapi/v1/listenKey", url.Values{})
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeListenKeyFailed, "failed to create listen key", err)
	}

	var resp listenKeyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(errors.ErrCodeListenKeyFailed, "failed to decode listen key response", err)
	}

	return resp.ListenKey, nil
}

// KeepAliveListenKey extends the user data stream session.
func (g *BinanceGateway) KeepAliveListenKey(ctx context.Context, listenKey string) error {
	params := url.Values{}
	params.Set("listenKey", listenKey)

	_, err := resilience.Execute(ctx, g.pipeline, func() ([]byte, error) {
		return g.doAPIKeyOnly(ctx, http.MethodPut, "/fapi/v1/listenKey", cloneValues(params))
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeListenKeyFailed, "failed to keep listen key alive", err)
	}

	return nil
}

func (g *BinanceGateway) syncServerTime(ctx context.Context) error {
	body, err := g.doUnsigned(ctx, http.MethodGet, "/fapi/v1/time", url.Values{})
	if err != nil {
		return err
	}

	var resp serverTimeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errors.Wrap(errors.ErrCodeExchangeRejected, "failed to decode server time", err)
	}

	g.timeOffset.Store(resp.ServerTime - time.Now().UnixMilli())

	return nil
}

func (g *BinanceGateway) loadExchangeInfo(ctx context.Context) error {
	body, err := g.doUnsigned(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", url.Values{})
	if err != nil {
		return err
	}

	var resp exchangeInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errors.Wrap(errors.ErrCodeExchangeRejected, "failed to decode exchange info", err)
	}

	g.precisionMu.Lock()
	defer g.precisionMu.Unlock()

	for _, symbol := range resp.Symbols {
		g.precision[symbol.Symbol] = symbol.QuantityPrecision
	}

	return nil
}

func (g *BinanceGateway) now() time.Time {
	return time.Now().Add(time.Duration(g.timeOffset.Load()) * time.Millisecond)
}

func (g *BinanceGateway) doSigned(ctx context.Context, method string, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(g.now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.FormatInt(g.cfg.RecvWindow, 10))

	// url.Values.Encode sorts keys, giving the canonical ordered payload
	// the signature is computed over.
	payload := params.Encode()
	query := payload + "&signature=" + g.signer.Sign(payload)

	return g.do(ctx, method, path, query, true)
}

func (g *BinanceGateway) doUnsigned(ctx context.Context, method string, path string, params url.Values) ([]byte, error) {
	return g.do(ctx, method, path, params.Encode(), false)
}

func (g *BinanceGateway) doAPIKeyOnly(ctx context.Context, method string, path string, params url.Values) ([]byte, error) {
	return g.do(ctx, method, path, params.Encode(), true)
}

func (g *BinanceGateway) do(ctx context.Context, method string, path string, query string, withKey bool) ([]byte, error) {
	endpoint := g.baseURL + path
	if query != "" {
		endpoint += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to build request", err)
	}

	if withKey {
		req.Header.Set("X-MBX-APIKEY", g.cfg.ApiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeTransient, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeTransient, "failed to read response body", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, mapAPIError(resp.StatusCode, body)
	}

	return body, nil
}

// mapAPIError translates an HTTP failure into the error taxonomy: 429/418 and
// 5xx are transient and eligible for retry, everything else is a persistent
// exchange rejection.
func mapAPIError(status int, body []byte) error {
	var exchangeErr apiError
	_ = json.Unmarshal(body, &exchangeErr)

	message := exchangeErr.Msg
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusTooManyRequests || status == 418:
		return errors.Newf(errors.ErrCodeThrottled, "exchange rate limit hit (%d): %s", status, message)
	case status >= http.StatusInternalServerError:
		return errors.Newf(errors.ErrCodeExchangeTransient, "exchange server error (%d): %s", status, message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Newf(errors.ErrCodeAuthFailed, "authentication failed (%d): %s", status, message)
	}

	switch exchangeErr.Code {
	case -2019:
		return errors.Newf(errors.ErrCodeInsufficientMargin, "insufficient margin: %s", message)
	case -1121:
		return errors.Newf(errors.ErrCodeInvalidSymbol, "invalid symbol: %s", message)
	case -2015, -1022:
		return errors.Newf(errors.ErrCodeAuthFailed, "authentication failed: %s", message)
	}

	return errors.Newf(errors.ErrCodeExchangeRejected, "exchange rejected request (%d, code %d): %s",
		status, exchangeErr.Code, message)
}

// isNoNeedToChange reports whether the error is the exchange telling us the
// requested setting already holds (code -4046).
func isNoNeedToChange(err error) bool {
	if err == nil {
		return false
	}

	message := err.Error()

	return strings.Contains(message, "-4046") || strings.Contains(message, "No need to change")
}

func parseKlineRows(body []byte, symbol string, interval string) ([]types.Kline, error) {
	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return []types.Kline{}, errors.Wrap(errors.ErrCodeExchangeRejected, "failed to decode kline response", err)
	}

	klines := make([]types.Kline, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}

		klines = append(klines, types.Kline{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  time.UnixMilli(asInt64(row[0])),
			Open:      asFloat(row[1]),
			High:      asFloat(row[2]),
			Low:       asFloat(row[3]),
			Close:     asFloat(row[4]),
			Volume:    asFloat(row[5]),
			CloseTime: time.UnixMilli(asInt64(row[6])),
		})
	}

	return klines, nil
}

func asInt64(value any) int64 {
	number, ok := value.(float64)
	if !ok {
		return 0
	}

	return int64(number)
}

func asFloat(value any) float64 {
	text, ok := value.(string)
	if !ok {
		return 0
	}

	return parseFloat(text)
}

func parseFloat(text string) float64 {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}

	return value
}

// formatQuantity floors a quantity to the given decimal precision and renders
// it without a float round-trip.
func formatQuantity(quantity float64, precision int) string {
	return decimal.NewFromFloat(quantity).RoundFloor(int32(precision)).String()
}

func floorQuantity(quantity float64, precision int) float64 {
	value, _ := decimal.NewFromFloat(quantity).RoundFloor(int32(precision)).Float64()

	return value
}

func cloneValues(params url.Values) url.Values {
	clone := make(url.Values, len(params))
	for key, values := range params {
		clone[key] = append([]string(nil), values...)
	}

	return clone
}
