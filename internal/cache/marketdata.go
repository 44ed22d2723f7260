// Package cache provides a Redis-backed read-through cache for market
// data. Degradation is graceful: when Redis is down every call falls
// through to the underlying gateway.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"spot-rotation-bot/internal/market"
)

// Config holds the Redis connection and TTL settings.
type Config struct {
	Address   string
	Password  string
	DB        int
	TickerTTL time.Duration
	CandleTTL time.Duration
}

// MarketData wraps a MarketDataGateway with caching. Current prices are
// never cached: risk checks must see live values.
type MarketData struct {
	next   market.MarketDataGateway
	client *redis.Client
	cfg    Config
	logger zerolog.Logger
}

func NewMarketData(next market.MarketDataGateway, cfg Config, logger zerolog.Logger) (*MarketData, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if cfg.TickerTTL <= 0 {
		cfg.TickerTTL = 30 * time.Second
	}
	if cfg.CandleTTL <= 0 {
		cfg.CandleTTL = time.Minute
	}

	return &MarketData{
		next:   next,
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "cache").Logger(),
	}, nil
}

// Close releases the Redis connection.
func (m *MarketData) Close() error { return m.client.Close() }

func (m *MarketData) TickerUniverse(ctx context.Context) ([]market.TickerSnapshot, error) {
	const key = "md:tickers"

	var cached []market.TickerSnapshot
	if m.get(ctx, key, &cached) {
		return cached, nil
	}

	tickers, err := m.next.TickerUniverse(ctx)
	if err != nil {
		return nil, err
	}
	m.set(ctx, key, tickers, m.cfg.TickerTTL)
	return tickers, nil
}

func (m *MarketData) Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	key := fmt.Sprintf("md:candles:%s:%s:%d", symbol, interval, limit)

	var cached []market.Candle
	if m.get(ctx, key, &cached) {
		return cached, nil
	}

	candles, err := m.next.Candles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	m.set(ctx, key, candles, m.cfg.CandleTTL)
	return candles, nil
}

func (m *MarketData) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return m.next.CurrentPrice(ctx, symbol)
}

func (m *MarketData) get(ctx context.Context, key string, out interface{}) bool {
	raw, err := m.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			m.logger.Debug().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		m.logger.Debug().Err(err).Str("key", key).Msg("cache entry undecodable")
		return false
	}
	return true
}

func (m *MarketData) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := m.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		m.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}
