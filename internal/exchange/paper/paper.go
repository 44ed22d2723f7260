// Package paper provides a dry-run order gateway that accepts every order
// without touching the exchange. Market data still comes from the real
// gateway, so strategies run against live prices.
package paper

import (
	"context"

	"github.com/rs/zerolog"

	"spot-rotation-bot/internal/market"
)

// OrderGateway logs orders instead of submitting them.
type OrderGateway struct {
	precision int
	logger    zerolog.Logger
}

func New(precision int, logger zerolog.Logger) *OrderGateway {
	if precision <= 0 {
		precision = 6
	}
	return &OrderGateway{
		precision: precision,
		logger:    logger.With().Str("component", "paper").Logger(),
	}
}

func (g *OrderGateway) PlaceMarketOrder(ctx context.Context, symbol string, side market.OrderSide, quantity float64) (market.OrderResult, error) {
	g.logger.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Float64("quantity", quantity).
		Msg("dry-run order accepted")
	return market.OrderResult{Accepted: true, FilledQuantity: quantity}, nil
}

func (g *OrderGateway) QuantityPrecision(ctx context.Context, symbol string) (int, error) {
	return g.precision, nil
}
