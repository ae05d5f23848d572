package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"main/internal/bridge"
	"main/internal/cache"
	"main/internal/catalog"
	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/conn"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Currencies  []CurrencyConfig   `json:"currencies"`
	Instruments []InstrumentConfig `json:"instruments"`
	Cache       CacheConfig        `json:"cache"`
	Catalog     CatalogConfig      `json:"catalog"`
	Feed        FeedConfig         `json:"feed"`
	Replay      ReplayConfig       `json:"replay"`
	Generator   GeneratorConfig    `json:"generator"`
	Database    *DatabaseConfig    `json:"database"`
}

// CurrencyConfig describes a currency entry.
type CurrencyConfig struct {
	Code      string `json:"code"`
	Precision uint8  `json:"precision"`
	Kind      string `json:"kind"`
}

// InstrumentConfig describes an instrument entry. TickSize and Multiplier
// are decimal strings parsed at the entry's precisions.
type InstrumentConfig struct {
	Venue          string `json:"venue"`
	Code           string `json:"code"`
	Base           string `json:"base"`
	Quote          string `json:"quote"`
	PricePrecision uint8  `json:"pricePrecision"`
	SizePrecision  uint8  `json:"sizePrecision"`
	TickSize       string `json:"tickSize"`
	Multiplier     string `json:"multiplier"`
}

// CacheConfig describes per-series capacities.
type CacheConfig struct {
	TickCapacity int `json:"tickCapacity"`
	BarCapacity  int `json:"barCapacity"`
}

// CatalogConfig describes catalog storage settings.
type CatalogConfig struct {
	Dir             string `json:"dir"`
	SegmentMaxBytes int64  `json:"segmentMaxBytes"`
	BufferSize      int    `json:"bufferSize"`
	FilePrefix      string `json:"filePrefix"`
}

// FeedConfig describes the live write path. Intervals are milliseconds.
type FeedConfig struct {
	QueueSize       int `json:"queueSize"`
	MaxRetries      int `json:"maxRetries"`
	RetryBackoffMs  int `json:"retryBackoffMs"`
	FlushIntervalMs int `json:"flushIntervalMs"`
	SyncIntervalMs  int `json:"syncIntervalMs"`
}

// ReplayConfig describes replay pacing.
type ReplayConfig struct {
	Speed        float64 `json:"speed"`
	StreamBuffer int     `json:"streamBuffer"`
}

// GeneratorConfig describes the synthetic tick generator. BasePrice is a
// raw mantissa interpreted at each instrument's price precision.
type GeneratorConfig struct {
	BasePrice   int64 `json:"basePrice"`
	BaseSize    int64 `json:"baseSize"`
	SpreadTicks int64 `json:"spreadTicks"`
	Seed        int64 `json:"seed"`
	IntervalMs  int   `json:"intervalMs"`
}

// DatabaseConfig describes the optional reference-data database.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// Loaded is the resolved configuration ready for use. Cache comes back
// with every configured currency and instrument already registered.
type Loaded struct {
	Cache     *cache.DataCache
	Catalog   catalog.Config
	Feed      bridge.FeedConfig
	Replay    bridge.ReplayConfig
	Generator GeneratorConfig
	Database  *conn.Option
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// Resolve builds the runtime configuration from a parsed file config.
func Resolve(cfg FileConfig) (Loaded, error) {
	dataCache, err := buildCache(cfg)
	if err != nil {
		return Loaded{}, err
	}

	catalogCfg := catalog.Config{
		Dir:             cfg.Catalog.Dir,
		SegmentMaxBytes: cfg.Catalog.SegmentMaxBytes,
		BufferSize:      cfg.Catalog.BufferSize,
		FilePrefix:      cfg.Catalog.FilePrefix,
	}
	feedCfg := bridge.FeedConfig{
		QueueSize:     cfg.Feed.QueueSize,
		MaxRetries:    cfg.Feed.MaxRetries,
		RetryBackoff:  time.Duration(cfg.Feed.RetryBackoffMs) * time.Millisecond,
		FlushInterval: time.Duration(cfg.Feed.FlushIntervalMs) * time.Millisecond,
		SyncInterval:  time.Duration(cfg.Feed.SyncIntervalMs) * time.Millisecond,
	}
	replayCfg := bridge.ReplayConfig{
		Catalog:      catalogCfg,
		Speed:        cfg.Replay.Speed,
		StreamBuffer: cfg.Replay.StreamBuffer,
	}

	generator := cfg.Generator
	if generator.BasePrice == 0 {
		generator.BasePrice = 100000
	}
	if generator.BaseSize == 0 {
		generator.BaseSize = 1
	}
	if generator.SpreadTicks == 0 {
		generator.SpreadTicks = 1
	}
	if generator.IntervalMs == 0 {
		generator.IntervalMs = 100
	}

	var database *conn.Option
	if cfg.Database != nil {
		database = &conn.Option{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
			SSLMode:  cfg.Database.SSLMode,
		}
	}

	return Loaded{
		Cache:     dataCache,
		Catalog:   catalogCfg,
		Feed:      feedCfg,
		Replay:    replayCfg,
		Generator: generator,
		Database:  database,
	}, nil
}

func buildCache(cfg FileConfig) (*cache.DataCache, error) {
	dataCache, err := cache.New(cache.Config{
		TickCapacity: cfg.Cache.TickCapacity,
		BarCapacity:  cfg.Cache.BarCapacity,
	})
	if err != nil {
		return nil, err
	}
	for _, entry := range cfg.Currencies {
		kind, err := parseCurrencyKind(entry.Kind)
		if err != nil {
			return nil, fmt.Errorf("currency %s: %w", entry.Code, err)
		}
		if err := dataCache.AddCurrency(model.NewCurrency(entry.Code, entry.Precision, kind)); err != nil {
			return nil, err
		}
	}
	for _, entry := range cfg.Instruments {
		instrument, err := buildInstrument(dataCache, entry)
		if err != nil {
			return nil, err
		}
		if err := dataCache.AddInstrument(instrument); err != nil {
			return nil, err
		}
	}
	return dataCache, nil
}

func buildInstrument(dataCache *cache.DataCache, entry InstrumentConfig) (model.Instrument, error) {
	symbol := model.NewSymbol(entry.Venue, entry.Code)
	base, err := dataCache.Currency(entry.Base)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("instrument %s: base: %w", symbol, err)
	}
	quote, err := dataCache.Currency(entry.Quote)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("instrument %s: quote: %w", symbol, err)
	}
	tickSize, err := model.PriceFromString(entry.TickSize, entry.PricePrecision)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("instrument %s: tick size: %w", symbol, err)
	}
	multiplier, err := model.QuantityFromString(entry.Multiplier, entry.SizePrecision)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("instrument %s: multiplier: %w", symbol, err)
	}
	return model.NewInstrument(
		symbol, base, quote,
		entry.PricePrecision, entry.SizePrecision,
		tickSize.Raw(), multiplier.Raw(),
	)
}

func parseCurrencyKind(s string) (enum.CurrencyKind, error) {
	switch s {
	case "FIAT":
		return enum.CurrencyFiat, nil
	case "CRYPTO":
		return enum.CurrencyCrypto, nil
	default:
		return 0, fmt.Errorf("unknown currency kind %q", s)
	}
}
