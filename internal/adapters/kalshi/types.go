package kalshi

// types.go — DTOs crudos de la API de Kalshi.
// El mapping a tipos de dominio vive en mapping.go.

type marketsResponse struct {
	Markets []apiMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

type apiMarket struct {
	Ticker       string  `json:"ticker"`
	EventTicker  string  `json:"event_ticker"`
	SeriesTicker string  `json:"series_ticker"`
	Title        string  `json:"title"`
	Subtitle     string  `json:"subtitle"`
	Status       string  `json:"status"`
	CloseTime    string  `json:"close_time"`
	Liquidity    float64 `json:"liquidity"`
	Volume24h    float64 `json:"volume_24h"`
}

type orderbookResponse struct {
	Orderbook apiOrderbook `json:"orderbook"`
}

// apiOrderbook lleva los niveles como pares [price_cents, qty].
type apiOrderbook struct {
	Yes [][]int `json:"yes"`
	No  [][]int `json:"no"`
}

type balanceResponse struct {
	// Balance disponible en cents (contrato fijado a cents — ver DESIGN.md).
	BalanceCents int64 `json:"balance"`
}

type positionsResponse struct {
	MarketPositions []apiMarketPosition `json:"market_positions"`
}

type apiMarketPosition struct {
	Ticker string `json:"ticker"`
	// Position es positiva para YES, negativa para NO.
	Position       int   `json:"position"`
	MarketExposure int64 `json:"market_exposure"`
	TotalTraded    int64 `json:"total_traded"`
}

type exchangeStatusResponse struct {
	ExchangeActive bool `json:"exchange_active"`
	TradingActive  bool `json:"trading_active"`
}

type createOrderRequest struct {
	Ticker        string `json:"ticker"`
	Side          string `json:"side"`
	Action        string `json:"action"`
	Type          string `json:"type"`
	Count         int    `json:"count"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id"`
	YesPrice      int    `json:"yes_price,omitempty"`
	NoPrice       int    `json:"no_price,omitempty"`
	BuyMaxCost    int64  `json:"buy_max_cost,omitempty"`
}

type createOrderResponse struct {
	Order apiOrder `json:"order"`
}

type apiOrder struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	FillCount     int    `json:"fill_count"`
	TakerFillCost *int64 `json:"taker_fill_cost"`
	MakerFillCost *int64 `json:"maker_fill_cost"`
	TakerFees     *int64 `json:"taker_fees"`
	MakerFees     *int64 `json:"maker_fees"`
}
