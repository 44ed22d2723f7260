// Package bot runs the cyclical decision loop: fetch the universe, filter,
// score, select holdings, reconcile the ledger against them, risk-check
// what is still held, sleep, repeat.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"spot-rotation-bot/internal/events"
	"spot-rotation-bot/internal/ledger"
	"spot-rotation-bot/internal/market"
	"spot-rotation-bot/internal/risk"
	"spot-rotation-bot/internal/scanner"
	"spot-rotation-bot/internal/screener"
	"spot-rotation-bot/internal/strategy"
)

// Config controls the loop cadence and order sizing.
type Config struct {
	// Symbols restricts directional variants to a configured pair list.
	// Empty means the whole filtered universe is scored.
	Symbols []string
	// TopN caps the desired-holdings set for ranking variants.
	TopN int
	// MaxOpenPositions caps concurrent open positions across all variants.
	// Zero means no cap beyond TopN.
	MaxOpenPositions int
	// PollInterval is the sleep between successful cycles.
	PollInterval time.Duration
	// ErrorBackoff is the initial sleep after a failed cycle; subsequent
	// failures back off exponentially up to MaxBackoff.
	ErrorBackoff time.Duration
	MaxBackoff   time.Duration
	// CallTimeout bounds every single gateway call.
	CallTimeout time.Duration
	// TradeCapital is the quote capital split equally across TopN slots.
	TradeCapital float64
	// TradeQuantity, when positive, overrides capital-based sizing with a
	// fixed base-asset quantity (directional variants).
	TradeQuantity float64
	// FallbackPrecision is used when the gateway cannot report a symbol's
	// quantity precision.
	FallbackPrecision int
}

// TradeSink receives executed trades and cycle-end position snapshots.
// Implementations must tolerate being called from the loop goroutine only.
type TradeSink interface {
	RecordTrade(ctx context.Context, t Trade) error
	SaveSnapshot(ctx context.Context, cycleID string, positions []ledger.Position) error
}

// Notifier pushes human-facing trade notifications.
type Notifier interface {
	TradeOpened(symbol, side string, price, quantity float64)
	TradeClosed(symbol, reason string, price, pnlPct float64)
}

// Trade is one executed order with its context.
type Trade struct {
	CycleID    string    `json:"cycle_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Reason     string    `json:"reason"`
	PnLPct     float64   `json:"pnl_pct"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Trade close reasons beyond the risk exits.
const (
	ReasonEntry    = "ENTRY"
	ReasonRotation = "ROTATION"
)

// Status is a read-only snapshot of the loop for the operator API.
type Status struct {
	Variant       string                `json:"variant"`
	Running       bool                  `json:"running"`
	CycleCount    int                   `json:"cycle_count"`
	LastCycleID   string                `json:"last_cycle_id"`
	LastCycleAt   time.Time             `json:"last_cycle_at"`
	LastDuration  time.Duration         `json:"last_duration"`
	LastError     string                `json:"last_error,omitempty"`
	Evaluations   []strategy.Evaluation `json:"evaluations"`
	OpenPositions []ledger.Position     `json:"open_positions"`
}

// Bot owns the PositionLedger and drives one strategy variant. All ledger
// mutation happens on the loop goroutine; the scanner workers never see it.
type Bot struct {
	data     market.MarketDataGateway
	orders   market.OrderGateway
	screener *screener.Screener
	scanner  *scanner.Scanner
	scorer   strategy.Scorer
	ledger   *ledger.Ledger
	risk     *risk.Manager
	bus      *events.Bus
	sink     TradeSink
	notifier Notifier
	cfg      Config
	logger   zerolog.Logger

	mu     sync.RWMutex
	status Status
}

func New(
	data market.MarketDataGateway,
	orders market.OrderGateway,
	scr *screener.Screener,
	scan *scanner.Scanner,
	scorer strategy.Scorer,
	riskMgr *risk.Manager,
	bus *events.Bus,
	cfg Config,
	logger zerolog.Logger,
) *Bot {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Minute
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 15 * time.Minute
	}
	if cfg.FallbackPrecision <= 0 {
		cfg.FallbackPrecision = 6
	}
	return &Bot{
		data:     data,
		orders:   orders,
		screener: scr,
		scanner:  scan,
		scorer:   scorer,
		ledger:   ledger.New(),
		risk:     riskMgr,
		bus:      bus,
		cfg:      cfg,
		logger:   logger.With().Str("component", "bot").Str("variant", scorer.Name()).Logger(),
		status:   Status{Variant: scorer.Name()},
	}
}

// SetTradeSink attaches an optional persistence sink.
func (b *Bot) SetTradeSink(sink TradeSink) { b.sink = sink }

// SetNotifier attaches an optional notifier.
func (b *Bot) SetNotifier(n Notifier) { b.notifier = n }

// Ledger exposes the position ledger for read-only consumers.
func (b *Bot) Ledger() *ledger.Ledger { return b.ledger }

// Status returns a copy of the current loop status.
func (b *Bot) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := b.status
	st.OpenPositions = b.ledger.Open()
	return st
}

// Run drives the loop until ctx is cancelled or an invariant violation
// makes continuing unsafe. Recoverable errors only abort the current cycle.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info().
		Dur("poll_interval", b.cfg.PollInterval).
		Int("top_n", b.cfg.TopN).
		Msg("execution loop started")
	b.bus.Publish(events.Event{Type: events.EventBotStarted, Data: map[string]interface{}{
		"variant": b.scorer.Name(),
	}})
	b.setRunning(true)
	defer func() {
		b.setRunning(false)
		b.bus.Publish(events.Event{Type: events.EventBotStopped, Data: nil})
	}()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = b.cfg.ErrorBackoff
	retry.MaxInterval = b.cfg.MaxBackoff
	retry.MaxElapsedTime = 0 // the loop never gives up on its own

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("shutdown signal received")
			return nil
		default:
		}

		err := b.cycle(ctx)

		var sleep time.Duration
		switch {
		case err == nil:
			retry.Reset()
			sleep = b.cfg.PollInterval
		case ctx.Err() != nil:
			b.logger.Info().Msg("shutdown signal received")
			return nil
		case isInvariantViolation(err):
			// Ledger misuse is a programming error; running on would
			// trade against corrupted state.
			b.logger.Error().Err(err).Msg("invariant violation, halting")
			return err
		default:
			sleep = retry.NextBackOff()
			b.logger.Warn().Err(err).Dur("backoff", sleep).Msg("cycle failed")
			b.bus.Publish(events.Event{Type: events.EventCycleFailed, Data: map[string]interface{}{
				"error": err.Error(),
			}})
		}

		select {
		case <-ctx.Done():
			b.logger.Info().Msg("shutdown signal received")
			return nil
		case <-time.After(sleep):
		}
	}
}

// RunOnce executes a single cycle, mainly for tests and manual triggers.
func (b *Bot) RunOnce(ctx context.Context) error {
	return b.cycle(ctx)
}

func (b *Bot) cycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	started := time.Now()
	logger := b.logger.With().Str("cycle_id", cycleID).Logger()

	// FETCHING
	fetchCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	universe, err := b.data.TickerUniverse(fetchCtx)
	cancel()
	if err != nil {
		b.finishCycle(cycleID, started, nil, err)
		return fmt.Errorf("universe fetch: %w", err)
	}

	// FILTERING
	candidates := b.screener.Filter(universe)
	if len(b.cfg.Symbols) > 0 {
		candidates = restrictToSymbols(candidates, b.cfg.Symbols)
	}
	logger.Debug().Int("universe", len(universe)).Int("candidates", len(candidates)).Msg("universe filtered")

	// SCORING
	evals := b.scanner.Evaluate(ctx, candidates)

	// SELECTING
	var desired []strategy.Desired
	if b.scorer.Mode() == strategy.ModeRanking {
		desired = strategy.SelectTop(evals, b.cfg.TopN)
	} else {
		desired = strategy.SelectDirectional(evals, b.ledger.Held())
	}
	for _, d := range desired {
		if b.ledger.Get(d.Symbol).Side != ledger.SideFlat {
			continue // already held, not a fresh signal
		}
		b.bus.Publish(events.Event{Type: events.EventSignalGenerated, Data: map[string]interface{}{
			"cycle_id":  cycleID,
			"symbol":    d.Symbol,
			"direction": string(d.Direction),
			"variant":   b.scorer.Name(),
		}})
	}

	// RECONCILING
	plan := b.ledger.Reconcile(desired)
	touched := make(map[string]bool)
	closed := 0
	for _, pos := range plan.ToClose {
		touched[pos.Symbol] = true
		if err := b.closePosition(ctx, logger, cycleID, pos, ReasonRotation); err != nil {
			if isInvariantViolation(err) {
				return err
			}
			logger.Warn().Err(err).Str("symbol", pos.Symbol).Msg("close skipped")
			continue
		}
		closed++
	}
	opened := 0
	for _, d := range plan.ToOpen {
		touched[d.Symbol] = true
		if b.cfg.MaxOpenPositions > 0 && len(b.ledger.Open()) >= b.cfg.MaxOpenPositions {
			logger.Debug().Str("symbol", d.Symbol).Int("cap", b.cfg.MaxOpenPositions).
				Msg("position cap reached, open skipped")
			continue
		}
		if err := b.openPosition(ctx, logger, cycleID, d); err != nil {
			if isInvariantViolation(err) {
				return err
			}
			logger.Warn().Err(err).Str("symbol", d.Symbol).Msg("open skipped")
			continue
		}
		opened++
	}

	// RISK_CHECKING covers positions kept because they remain selected.
	for _, pos := range b.ledger.Open() {
		if touched[pos.Symbol] {
			continue
		}
		priceCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
		price, err := b.data.CurrentPrice(priceCtx, pos.Symbol)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("symbol", pos.Symbol).Msg("risk check skipped, price unavailable")
			continue
		}
		exit := b.risk.Assess(pos, price)
		if exit == nil {
			continue
		}
		logger.Info().Str("symbol", pos.Symbol).Str("reason", string(exit.Reason)).
			Float64("pnl_pct", exit.PnLPct).Msg("risk exit triggered")
		b.bus.Publish(events.Event{Type: events.EventRiskExit, Data: map[string]interface{}{
			"symbol":      exit.Symbol,
			"reason":      string(exit.Reason),
			"pnl_percent": exit.PnLPct * 100,
		}})
		if err := b.closePosition(ctx, logger, cycleID, pos, string(exit.Reason)); err != nil {
			if isInvariantViolation(err) {
				return err
			}
			logger.Warn().Err(err).Str("symbol", pos.Symbol).Msg("risk exit close skipped")
			continue
		}
		closed++
	}

	if b.sink != nil {
		snapCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
		if err := b.sink.SaveSnapshot(snapCtx, cycleID, b.ledger.Open()); err != nil {
			logger.Warn().Err(err).Msg("snapshot persist failed")
		}
		cancel()
	}

	b.finishCycle(cycleID, started, evals, nil)
	b.bus.PublishCycleCompleted(cycleID, len(candidates), len(evals), opened, closed, time.Since(started))
	logger.Info().
		Int("candidates", len(candidates)).
		Int("scored", len(evals)).
		Int("desired", len(desired)).
		Int("opened", opened).
		Int("closed", closed).
		Dur("took", time.Since(started)).
		Msg("cycle completed")
	return nil
}

// openPosition places the opening order and records the entry only after
// the gateway accepts it. On spot, SHORT is simulated with a market sell.
func (b *Bot) openPosition(ctx context.Context, logger zerolog.Logger, cycleID string, d strategy.Desired) error {
	priceCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	price, err := b.data.CurrentPrice(priceCtx, d.Symbol)
	cancel()
	if err != nil {
		return fmt.Errorf("price fetch: %w", err)
	}
	if price <= 0 {
		return &market.MalformedDataError{Symbol: d.Symbol, Reason: "non-positive price"}
	}

	quantity := b.sizeOrder(price)
	quantity = b.roundQuantity(ctx, d.Symbol, quantity)
	if quantity <= 0 {
		return fmt.Errorf("quantity rounds to zero at price %.8f", price)
	}

	side := market.SideBuy
	posSide := ledger.SideLong
	if d.Direction == strategy.DirectionShort {
		side = market.SideSell
		posSide = ledger.SideShort
	}

	res, err := b.placeOrder(ctx, logger, d.Symbol, side, quantity)
	if err != nil {
		return err
	}
	if res.AvgPrice > 0 {
		price = res.AvgPrice
	}

	if err := b.ledger.RecordOpen(d.Symbol, posSide, price, quantity); err != nil {
		return err
	}

	logger.Info().Str("symbol", d.Symbol).Str("side", string(posSide)).
		Float64("entry_price", price).Float64("quantity", quantity).Msg("position opened")
	b.bus.PublishTradeOpened(d.Symbol, string(posSide), price, quantity)
	if b.notifier != nil {
		b.notifier.TradeOpened(d.Symbol, string(posSide), price, quantity)
	}
	b.recordTrade(ctx, Trade{
		CycleID: cycleID, Symbol: d.Symbol, Side: string(side),
		Quantity: quantity, Price: price, Reason: ReasonEntry, ExecutedAt: time.Now().UTC(),
	})
	return nil
}

// closePosition places the closing order for the full tracked quantity and
// resets the ledger entry only after acceptance.
func (b *Bot) closePosition(ctx context.Context, logger zerolog.Logger, cycleID string, pos ledger.Position, reason string) error {
	priceCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	price, err := b.data.CurrentPrice(priceCtx, pos.Symbol)
	cancel()
	if err != nil {
		return fmt.Errorf("price fetch: %w", err)
	}

	side := market.SideSell
	if pos.Side == ledger.SideShort {
		side = market.SideBuy
	}

	res, err := b.placeOrder(ctx, logger, pos.Symbol, side, pos.Quantity)
	if err != nil {
		return err
	}
	if res.AvgPrice > 0 {
		price = res.AvgPrice
	}

	if err := b.ledger.RecordClose(pos.Symbol); err != nil {
		return err
	}

	pnl := risk.PnLPct(pos, price)
	logger.Info().Str("symbol", pos.Symbol).Str("reason", reason).
		Float64("exit_price", price).Float64("pnl_pct", pnl).Msg("position closed")
	b.bus.PublishTradeClosed(pos.Symbol, reason, price, pos.Quantity, pnl)
	if b.notifier != nil {
		b.notifier.TradeClosed(pos.Symbol, reason, price, pnl)
	}
	b.recordTrade(ctx, Trade{
		CycleID: cycleID, Symbol: pos.Symbol, Side: string(side),
		Quantity: pos.Quantity, Price: price, Reason: reason, PnLPct: pnl,
		ExecutedAt: time.Now().UTC(),
	})
	return nil
}

// placeOrder submits a market order. A rejection leaves the ledger
// untouched and is not retried within the cycle to avoid duplicate fills.
func (b *Bot) placeOrder(ctx context.Context, logger zerolog.Logger, symbol string, side market.OrderSide, quantity float64) (market.OrderResult, error) {
	orderCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	res, err := b.orders.PlaceMarketOrder(orderCtx, symbol, side, quantity)
	if err != nil {
		b.bus.Publish(events.Event{Type: events.EventOrderRejected, Data: map[string]interface{}{
			"symbol": symbol, "side": string(side), "error": err.Error(),
		}})
		return res, fmt.Errorf("order %s %s: %w", side, symbol, err)
	}
	if !res.Accepted {
		b.bus.Publish(events.Event{Type: events.EventOrderRejected, Data: map[string]interface{}{
			"symbol": symbol, "side": string(side),
		}})
		return res, &market.OrderRejectedError{Symbol: symbol, Side: side, Reason: "gateway declined"}
	}
	logger.Debug().Str("symbol", symbol).Str("side", string(side)).
		Float64("quantity", quantity).Float64("filled", res.FilledQuantity).Msg("order accepted")
	return res, nil
}

func (b *Bot) sizeOrder(price float64) float64 {
	if b.cfg.TradeQuantity > 0 {
		return b.cfg.TradeQuantity
	}
	slots := b.cfg.TopN
	if slots <= 0 {
		slots = 1
	}
	return b.cfg.TradeCapital / float64(slots) / price
}

// roundQuantity floors the quantity to the venue's declared precision,
// falling back to the configured default when the venue cannot be asked.
func (b *Bot) roundQuantity(ctx context.Context, symbol string, quantity float64) float64 {
	precision := b.cfg.FallbackPrecision
	precCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	if p, err := b.orders.QuantityPrecision(precCtx, symbol); err == nil && p >= 0 {
		precision = p
	}
	cancel()

	factor := math.Pow(10, float64(precision))
	return math.Floor(quantity*factor) / factor
}

func (b *Bot) recordTrade(ctx context.Context, t Trade) {
	if b.sink == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()
	if err := b.sink.RecordTrade(saveCtx, t); err != nil {
		b.logger.Warn().Err(err).Str("symbol", t.Symbol).Msg("trade persist failed")
	}
}

func (b *Bot) setRunning(running bool) {
	b.mu.Lock()
	b.status.Running = running
	b.mu.Unlock()
}

func (b *Bot) finishCycle(cycleID string, started time.Time, evals []strategy.Evaluation, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.CycleCount++
	b.status.LastCycleID = cycleID
	b.status.LastCycleAt = started
	b.status.LastDuration = time.Since(started)
	if err != nil {
		b.status.LastError = err.Error()
	} else {
		b.status.LastError = ""
		b.status.Evaluations = evals
	}
}

func isInvariantViolation(err error) bool {
	var ite *ledger.InvalidTransitionError
	return errors.As(err, &ite)
}

func restrictToSymbols(candidates []market.TickerSnapshot, symbols []string) []market.TickerSnapshot {
	allowed := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		allowed[s] = true
	}
	kept := candidates[:0:0]
	for _, c := range candidates {
		if allowed[c.Symbol] {
			kept = append(kept, c)
		}
	}
	return kept
}
