package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"spot-rotation-bot/config"
	"spot-rotation-bot/internal/api"
	"spot-rotation-bot/internal/bot"
	"spot-rotation-bot/internal/cache"
	"spot-rotation-bot/internal/database"
	"spot-rotation-bot/internal/events"
	"spot-rotation-bot/internal/exchange/binance"
	"spot-rotation-bot/internal/exchange/paper"
	"spot-rotation-bot/internal/indicator"
	"spot-rotation-bot/internal/logging"
	"spot-rotation-bot/internal/market"
	"spot-rotation-bot/internal/notification"
	"spot-rotation-bot/internal/risk"
	"spot-rotation-bot/internal/scanner"
	"spot-rotation-bot/internal/screener"
	"spot-rotation-bot/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.json", "path to configuration file")
	genConfig := flag.Bool("gen-config", false, "write a sample config file and exit")
	flag.Parse()

	if *genConfig {
		if err := config.GenerateSampleConfig(*configPath); err != nil {
			log.Fatalf("Failed to write sample config: %v", err)
		}
		log.Printf("Sample config written to %s", *configPath)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logger.Info().Str("variant", cfg.StrategyConfig.Variant).Bool("dry_run", cfg.TradingConfig.DryRun).
		Msg("starting spot rotation bot")

	eventBus := events.NewBus()

	// Exchange gateways. Market data always comes from Binance; orders go
	// to the paper gateway in dry-run mode.
	gateway := binance.New(cfg.BinanceConfig.APIKey, cfg.BinanceConfig.SecretKey, cfg.BinanceConfig.TestNet, logger)

	var data market.MarketDataGateway = gateway
	if cfg.RedisConfig.Enabled {
		cached, err := cache.NewMarketData(gateway, cache.Config{
			Address:  cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, market data will not be cached")
		} else {
			data = cached
			logger.Info().Str("address", cfg.RedisConfig.Address).Msg("market data cache enabled")
		}
	}

	var orders market.OrderGateway = gateway
	if cfg.TradingConfig.DryRun {
		orders = paper.New(cfg.TradingConfig.FallbackPrecision, logger)
		logger.Info().Msg("dry run enabled, orders routed to paper gateway")
	}

	scorer, err := buildScorer(cfg.StrategyConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid strategy configuration")
	}

	scr := screener.New(screener.Config{
		QuoteAsset:            cfg.ScreenerConfig.QuoteAsset,
		MinQuoteVolume:        cfg.ScreenerConfig.MinQuoteVolume,
		ExcludedBases:         cfg.ScreenerConfig.ExcludeBases,
		RequirePositiveChange: cfg.ScreenerConfig.RequirePositiveChange,
	}.ForMode(scorer.Mode()))

	scan := scanner.New(data, scorer, scanner.Config{
		Interval:     cfg.ScannerConfig.Interval,
		CandleLimit:  cfg.ScannerConfig.CandleLimit,
		Workers:      cfg.ScannerConfig.WorkerCount,
		FetchTimeout: cfg.CallTimeout(),
		Indicator: indicator.Config{
			ShortWindow: cfg.StrategyConfig.ShortWindow,
			LongWindow:  cfg.StrategyConfig.LongWindow,
			RSIPeriod:   cfg.StrategyConfig.RSIPeriod,
		},
	}, logger)

	riskMgr := risk.NewManager(risk.Config{
		TakeProfitPct: cfg.TradingConfig.TakeProfitPct,
		StopLossPct:   cfg.TradingConfig.StopLossPct,
	})

	engine := bot.New(data, orders, scr, scan, scorer, riskMgr, eventBus, bot.Config{
		Symbols:           cfg.TradingConfig.Symbols,
		TopN:              cfg.StrategyConfig.TopN,
		MaxOpenPositions:  cfg.RiskConfig.MaxOpenPositions,
		PollInterval:      cfg.PollInterval(),
		ErrorBackoff:      cfg.ErrorBackoff(),
		MaxBackoff:        cfg.MaxBackoff(),
		CallTimeout:       cfg.CallTimeout(),
		TradeCapital:      cfg.TradingConfig.TradeCapital,
		TradeQuantity:     cfg.TradingConfig.TradeQuantity,
		FallbackPrecision: cfg.TradingConfig.FallbackPrecision,
	}, logger)

	if cfg.NotificationConfig.Enabled {
		manager := notification.NewManager(logger)
		if cfg.NotificationConfig.Telegram.Enabled {
			manager.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
				BotToken: cfg.NotificationConfig.Telegram.BotToken,
				ChatID:   cfg.NotificationConfig.Telegram.ChatID,
				Enabled:  true,
			}))
			logger.Info().Msg("telegram notifications enabled")
		}
		if cfg.NotificationConfig.Discord.Enabled {
			manager.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
				WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
				Enabled:    true,
			}))
			logger.Info().Msg("discord notifications enabled")
		}
		engine.SetNotifier(manager)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Pool.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal().Err(err).Msg("database migrations failed")
		}
		repo = database.NewRepository(db)
		engine.SetTradeSink(repo)
		logger.Info().Msg("trade persistence enabled")
	}

	var server *api.Server
	if cfg.ServerConfig.Enabled {
		server = api.NewServer(api.Config{
			Enabled: true,
			Port:    cfg.ServerConfig.Port,
		}, engine, repo, eventBus, logger)
		server.Start()
		logger.Info().Int("port", cfg.ServerConfig.Port).Msg("api server started")
	}

	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("trading loop halted")
		stop()
		shutdown(server, logger)
		os.Exit(1)
	}

	shutdown(server, logger)
	logger.Info().Msg("shutdown complete")
}

func buildScorer(cfg config.StrategyConfig) (strategy.Scorer, error) {
	switch cfg.Variant {
	case "beauty":
		return strategy.NewBeautyScorer(cfg.Alpha), nil
	case "mania":
		return strategy.NewManiaScorer(cfg.ManiaFactor, cfg.RSIOverbought), nil
	case "pullback":
		return strategy.NewPullbackScorer(cfg.PullbackPct), nil
	default:
		return nil, fmt.Errorf("unknown strategy variant %q", cfg.Variant)
	}
}

func shutdown(server *api.Server, logger zerolog.Logger) {
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("api server shutdown error")
		}
	}
}
