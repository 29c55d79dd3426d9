package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"CycleDCA/internal/collector"
	"CycleDCA/internal/config"
	"CycleDCA/internal/cycle"
	"CycleDCA/internal/events"
	"CycleDCA/internal/history"
	"CycleDCA/internal/model"
	"CycleDCA/internal/seriescache"
	"CycleDCA/internal/simulation"
	"CycleDCA/internal/store"
	"CycleDCA/internal/upsert"
	"CycleDCA/internal/yearfile"
)

// app holds every long-lived component built from the config.
type app struct {
	cfg        *config.Config
	fetcher    *collector.FallbackFetcher
	store      store.Store
	cache      *seriescache.Cache
	years      *yearfile.Dir
	aggregator *history.Aggregator
	updater    *upsert.Updater
	publisher  events.Publisher
	classifier *cycle.Classifier
	engine     *simulation.Engine
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	providers, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	log.Info().Strs("providers", names).Str("symbol", cfg.Asset.Symbol).Msg("price providers configured")

	a := &app{
		cfg:        cfg,
		fetcher:    collector.NewFallbackFetcher(providers, cfg.Fetch.Retries, cfg.Fetch.RetryDelay, cfg.Fetch.ChainRetries),
		store:      openStore(ctx, cfg),
		years:      yearfile.NewDir(cfg.YearDir()),
		publisher:  openPublisher(cfg),
		classifier: cycle.Default(),
	}
	a.engine = simulation.NewEngine(a.classifier)
	a.cache = seriescache.New(a.store, a.fetcher, nil)

	a.aggregator, err = history.New(history.Config{
		Symbol:          cfg.Asset.Symbol,
		Milestones:      history.DefaultMilestones,
		BulkFile:        cfg.Data.BulkFile,
		Years:           a.years,
		Current:         &history.CachedCurrentYear{Symbol: cfg.Asset.Symbol, Cache: a.cache, Years: a.years},
		Spot:            a.fetcher,
		Store:           a.store,
		RefreshInterval: cfg.Cache.RefreshInterval,
		HourlyDays:      cfg.Cache.HourlyDays,
		Minute15Days:    cfg.Cache.Minute15Days,
		OnRefresh:       a.publishRefresh,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.updater = &upsert.Updater{
		Symbol:    cfg.Asset.Symbol,
		Policy:    upsert.NewPolicy(a.years),
		Spot:      a.fetcher,
		StatePath: cfg.Data.StateFile,
		Store:     a.store,
		Events:    a.publisher,
		OnUpdate: func(ctx context.Context) {
			if _, err := a.aggregator.Refresh(ctx, true); err != nil {
				log.Warn().Err(err).Msg("refresh after upsert failed")
			}
		},
	}
	return a, nil
}

func buildProviders(cfg *config.Config) ([]collector.Provider, error) {
	var providers []collector.Provider
	for _, name := range cfg.Asset.Providers {
		switch name {
		case "yahoo":
			providers = append(providers, collector.NewYahooProvider(cfg.Proxy, cfg.Fetch.Timeout))
		case "coingecko":
			p := collector.NewCoinGeckoProvider(cfg.CoinGecko.APIKey, cfg.Proxy, cfg.Fetch.Timeout)
			if cfg.CoinGecko.BaseURL != "" {
				p.BaseURL = cfg.CoinGecko.BaseURL
			}
			p.CoinIDs[cfg.Asset.Symbol] = cfg.Asset.CoinID
			providers = append(providers, p)
		case "bybit":
			providers = append(providers, collector.NewBybitProvider(cfg.Bybit.APIKey, cfg.Bybit.APISecret, cfg.Bybit.BaseURL))
		case "mock":
			providers = append(providers, &collector.MockProvider{Price: 60000})
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no price providers configured")
	}
	return providers, nil
}

// openStore falls back to the no-op store when the backend is unreachable.
func openStore(ctx context.Context, cfg *config.Config) store.Store {
	switch cfg.Cache.Backend {
	case config.BackendSQLite:
		s, err := store.NewSQLiteStore(cfg.Cache.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Cache.SQLitePath).Msg("init sqlite store failed, using noop")
			return store.NewNoopStore()
		}
		return s
	case config.BackendRedis:
		s, err := store.NewRedisStore(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("init redis store failed, using noop")
			return store.NewNoopStore()
		}
		return s
	default:
		return store.NewNoopStore()
	}
}

func openPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NewNoopPublisher()
	}
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing events to kafka")
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

func (a *app) publishRefresh(s *model.MultiResolutionSeries) {
	if err := a.publisher.Publish(context.Background(), events.SeriesRefreshed(s)); err != nil {
		log.Warn().Err(err).Str("symbol", s.Symbol).Msg("failed to publish refresh event")
	}
}

// spotPrice falls back to the latest aggregated close when every provider fails.
func (a *app) spotPrice(ctx context.Context) (float64, error) {
	p, err := a.fetcher.CurrentPrice(ctx, a.cfg.Asset.Symbol)
	if err == nil {
		return p, nil
	}
	last, ok := a.aggregator.Series().Daily.Last()
	if !ok {
		return 0, fmt.Errorf("spot price: %w", err)
	}
	log.Warn().Err(err).Float64("price", last.Price).Str("date", last.Date).Msg("spot price unavailable, using last close")
	return last.Price, nil
}

func (a *app) close() {
	if a.aggregator != nil {
		a.aggregator.Dispose()
	}
	if err := a.publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("close publisher")
	}
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("close store")
	}
}
