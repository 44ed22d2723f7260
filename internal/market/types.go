// Package market defines the domain types and gateway interfaces the engine
// consumes. The engine never talks to an exchange directly; it sees the
// market only through MarketDataGateway and OrderGateway.
package market

import (
	"context"
	"time"
)

// Candle represents one OHLCV candlestick. Sequences are ordered by
// strictly increasing OpenTime and are immutable once fetched.
type Candle struct {
	OpenTime    time.Time `json:"open_time"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	QuoteVolume float64   `json:"quote_volume"`
}

// TickerSnapshot represents 24hr ticker statistics for one symbol.
// A snapshot is superseded entirely each fetch cycle, never merged.
type TickerSnapshot struct {
	Symbol             string  `json:"symbol"`
	LastPrice          float64 `json:"last_price"`
	PriceChangePercent float64 `json:"price_change_percent"`
	QuoteVolume        float64 `json:"quote_volume"`
	High24h            float64 `json:"high_24h"`
	Low24h             float64 `json:"low_24h"`
}

// OrderSide is the exchange-facing side of a market order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderResult reports the outcome of a market order submission.
type OrderResult struct {
	Accepted       bool
	FilledQuantity float64
	AvgPrice       float64
}

// MarketDataGateway provides read-only market state.
//
// Implementations must return TransientError for network and rate-limit
// failures and MalformedDataError when the exchange response cannot be
// decoded for a symbol.
type MarketDataGateway interface {
	// TickerUniverse returns a 24hr snapshot for every tradeable symbol.
	TickerUniverse(ctx context.Context) ([]TickerSnapshot, error)

	// Candles returns up to limit most recent candles for the symbol.
	Candles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	// CurrentPrice returns the latest trade price for the symbol.
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// OrderGateway places orders and reports the venue's quantity precision.
type OrderGateway interface {
	// PlaceMarketOrder submits a market order. Quantity must already be
	// rounded to the precision reported by QuantityPrecision.
	PlaceMarketOrder(ctx context.Context, symbol string, side OrderSide, quantity float64) (OrderResult, error)

	// QuantityPrecision returns the number of decimal places the venue
	// accepts for the symbol's order quantity.
	QuantityPrecision(ctx context.Context, symbol string) (int, error)
}
