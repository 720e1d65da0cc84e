package tradingprovider

// Wire representations of the futures REST responses this gateway consumes.
// Binance encodes most numeric fields as JSON strings.

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type accountResponse struct {
	TotalWalletBalance    string                 `json:"totalWalletBalance"`
	TotalMarginBalance    string                 `json:"totalMarginBalance"`
	AvailableBalance      string                 `json:"availableBalance"`
	TotalUnrealizedProfit string                 `json:"totalUnrealizedProfit"`
	Assets                []accountAssetResponse `json:"assets"`
}

type accountAssetResponse struct {
	Asset            string `json:"asset"`
	WalletBalance    string `json:"walletBalance"`
	AvailableBalance string `json:"availableBalance"`
}

type positionRiskResponse struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	PositionSide     string `json:"positionSide"`
	UpdateTime       int64  `json:"updateTime"`
}

type premiumIndexResponse struct {
	Symbol    string `json:"symbol"`
	MarkPrice string `json:"markPrice"`
}

type orderResponse struct {
	OrderID     int64  `json:"orderId"`
	Symbol      string `json:"symbol"`
	Status      string `json:"status"`
	Side        string `json:"side"`
	ExecutedQty string `json:"executedQty"`
	AvgPrice    string `json:"avgPrice"`
}

type exchangeInfoResponse struct {
	Symbols []exchangeSymbolResponse `json:"symbols"`
}

type exchangeSymbolResponse struct {
	Symbol            string `json:"symbol"`
	QuantityPrecision int    `json:"quantityPrecision"`
	PricePrecision    int    `json:"pricePrecision"`
}

type incomeResponse struct {
	Symbol     string `json:"symbol"`
	IncomeType string `json:"incomeType"`
	Income     string `json:"income"`
	Asset      string `json:"asset"`
	Time       int64  `json:"time"`
}

type listenKeyResponse struct {
	ListenKey string `json:"listenKey"`
}

type serverTimeResponse struct {
	ServerTime int64 `json:"serverTime"`
}
