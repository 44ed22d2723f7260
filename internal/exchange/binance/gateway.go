// Package binance implements the market-data and order gateways against
// Binance spot using the adshao/go-binance client.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"

	"spot-rotation-bot/internal/market"
)

// Gateway adapts the Binance spot REST API to the engine's gateway
// interfaces. Quantity precision is read from exchange info and cached.
type Gateway struct {
	client *binance.Client
	logger zerolog.Logger

	mu         sync.RWMutex
	precisions map[string]int
}

func New(apiKey, secretKey string, testnet bool, logger zerolog.Logger) *Gateway {
	binance.UseTestnet = testnet
	return &Gateway{
		client:     binance.NewClient(apiKey, secretKey),
		logger:     logger.With().Str("component", "binance").Logger(),
		precisions: make(map[string]int),
	}
}

// TickerUniverse fetches 24hr stats for every symbol. A symbol with an
// undecodable payload is skipped, not allowed to fail the fetch.
func (g *Gateway) TickerUniverse(ctx context.Context) ([]market.TickerSnapshot, error) {
	stats, err := g.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, market.NewTransientError("ticker universe", err)
	}

	snapshots := make([]market.TickerSnapshot, 0, len(stats))
	for _, s := range stats {
		snap, err := convertTicker(s)
		if err != nil {
			g.logger.Debug().Err(err).Str("symbol", s.Symbol).Msg("ticker skipped")
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// Candles fetches up to limit most recent klines for the symbol.
func (g *Gateway) Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	klines, err := g.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, market.NewTransientError("candles "+symbol, err)
	}

	candles := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := convertKline(symbol, k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// CurrentPrice returns the latest trade price for the symbol.
func (g *Gateway) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := g.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, market.NewTransientError("price "+symbol, err)
	}
	if len(prices) == 0 {
		return 0, &market.MalformedDataError{Symbol: symbol, Reason: "empty price response"}
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, &market.MalformedDataError{Symbol: symbol, Reason: "unparseable price " + prices[0].Price}
	}
	return price, nil
}

// PlaceMarketOrder submits a spot market order. The quantity must already
// be rounded to the precision reported by QuantityPrecision.
func (g *Gateway) PlaceMarketOrder(ctx context.Context, symbol string, side market.OrderSide, quantity float64) (market.OrderResult, error) {
	precision, err := g.QuantityPrecision(ctx, symbol)
	if err != nil {
		precision = 8
	}
	qtyStr := strconv.FormatFloat(quantity, 'f', precision, 64)

	res, err := g.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeMarket).
		Quantity(qtyStr).
		Do(ctx)
	if err != nil {
		return market.OrderResult{}, &market.OrderRejectedError{Symbol: symbol, Side: side, Reason: err.Error()}
	}

	filled, err := strconv.ParseFloat(res.ExecutedQuantity, 64)
	if err != nil {
		filled = quantity
	}

	g.logger.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Str("quantity", qtyStr).
		Str("status", string(res.Status)).
		Int64("order_id", res.OrderID).
		Msg("market order placed")

	return market.OrderResult{
		Accepted:       true,
		FilledQuantity: filled,
		AvgPrice:       averageFillPrice(res),
	}, nil
}

// QuantityPrecision derives the symbol's quantity precision from the lot
// size step in exchange info, caching the whole table on first use.
func (g *Gateway) QuantityPrecision(ctx context.Context, symbol string) (int, error) {
	g.mu.RLock()
	p, ok := g.precisions[symbol]
	g.mu.RUnlock()
	if ok {
		return p, nil
	}

	info, err := g.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return 0, market.NewTransientError("exchange info", err)
	}

	g.mu.Lock()
	for _, s := range info.Symbols {
		if f := s.LotSizeFilter(); f != nil {
			g.precisions[s.Symbol] = stepPrecision(f.StepSize)
		} else {
			g.precisions[s.Symbol] = s.BaseAssetPrecision
		}
	}
	p, ok = g.precisions[symbol]
	g.mu.Unlock()

	if !ok {
		return 0, &market.MalformedDataError{Symbol: symbol, Reason: "symbol missing from exchange info"}
	}
	return p, nil
}

func convertTicker(s *binance.PriceChangeStats) (market.TickerSnapshot, error) {
	fields := []struct {
		name  string
		raw   string
		value *float64
	}{
		{"lastPrice", s.LastPrice, nil},
		{"priceChangePercent", s.PriceChangePercent, nil},
		{"quoteVolume", s.QuoteVolume, nil},
		{"highPrice", s.HighPrice, nil},
		{"lowPrice", s.LowPrice, nil},
	}

	parsed := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return market.TickerSnapshot{}, &market.MalformedDataError{
				Symbol: s.Symbol,
				Reason: fmt.Sprintf("unparseable %s %q", f.name, f.raw),
			}
		}
		parsed[i] = v
	}

	return market.TickerSnapshot{
		Symbol:             s.Symbol,
		LastPrice:          parsed[0],
		PriceChangePercent: parsed[1],
		QuoteVolume:        parsed[2],
		High24h:            parsed[3],
		Low24h:             parsed[4],
	}, nil
}

func convertKline(symbol string, k *binance.Kline) (market.Candle, error) {
	open, err1 := strconv.ParseFloat(k.Open, 64)
	high, err2 := strconv.ParseFloat(k.High, 64)
	low, err3 := strconv.ParseFloat(k.Low, 64)
	closePrice, err4 := strconv.ParseFloat(k.Close, 64)
	volume, err5 := strconv.ParseFloat(k.Volume, 64)
	quoteVolume, err6 := strconv.ParseFloat(k.QuoteAssetVolume, 64)
	for _, err := range []error{err1, err2, err3, err4, err5, err6} {
		if err != nil {
			return market.Candle{}, &market.MalformedDataError{Symbol: symbol, Reason: "unparseable kline field"}
		}
	}

	return market.Candle{
		OpenTime:    time.UnixMilli(k.OpenTime),
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closePrice,
		Volume:      volume,
		QuoteVolume: quoteVolume,
	}, nil
}

func averageFillPrice(res *binance.CreateOrderResponse) float64 {
	totalQty := 0.0
	totalQuote := 0.0
	for _, fill := range res.Fills {
		qty, err1 := strconv.ParseFloat(fill.Quantity, 64)
		price, err2 := strconv.ParseFloat(fill.Price, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		totalQty += qty
		totalQuote += qty * price
	}
	if totalQty == 0 {
		return 0
	}
	return totalQuote / totalQty
}

// stepPrecision counts the decimals of a lot step like "0.00100000".
func stepPrecision(step string) int {
	dot := strings.IndexByte(step, '.')
	if dot < 0 {
		return 0
	}
	for i := dot + 1; i < len(step); i++ {
		if step[i] == '1' {
			return i - dot
		}
	}
	return 0
}
