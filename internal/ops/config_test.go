package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"main/internal/model"
)

const sampleConfig = `{
	"currencies": [
		{"code": "EUR", "precision": 2, "kind": "FIAT"},
		{"code": "USD", "precision": 2, "kind": "FIAT"}
	],
	"instruments": [
		{
			"venue": "SIM", "code": "EURUSD",
			"base": "EUR", "quote": "USD",
			"pricePrecision": 5, "sizePrecision": 0,
			"tickSize": "0.00001", "multiplier": "100000"
		}
	],
	"cache": {"tickCapacity": 512, "barCapacity": 128},
	"catalog": {"dir": "/tmp/catalog"},
	"feed": {"queueSize": 1024, "flushIntervalMs": 250},
	"replay": {"speed": 2.5}
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadResolvesConfig(t *testing.T) {
	loaded, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	symbol := model.NewSymbol("SIM", "EURUSD")
	instrument, err := loaded.Cache.Instrument(symbol)
	if err != nil {
		t.Fatalf("Instrument() error: %v", err)
	}
	if got, want := instrument.TickSize.Raw(), int64(1); got != want {
		t.Fatalf("tick size raw = %d, want %d", got, want)
	}
	if got, want := instrument.Multiplier.Raw(), int64(100000); got != want {
		t.Fatalf("multiplier raw = %d, want %d", got, want)
	}
	if instrument.Base != model.NewCurrency("EUR", 2, instrument.Base.Kind) {
		t.Fatalf("base currency mismatch: %+v", instrument.Base)
	}

	if got, want := loaded.Catalog.Dir, "/tmp/catalog"; got != want {
		t.Fatalf("catalog dir = %s, want %s", got, want)
	}
	if got, want := loaded.Feed.QueueSize, 1024; got != want {
		t.Fatalf("feed queue size = %d, want %d", got, want)
	}
	if got, want := loaded.Feed.FlushInterval, 250*time.Millisecond; got != want {
		t.Fatalf("flush interval = %s, want %s", got, want)
	}
	if got, want := loaded.Replay.Speed, 2.5; got != want {
		t.Fatalf("replay speed = %v, want %v", got, want)
	}
	if loaded.Database != nil {
		t.Fatal("database should be nil when absent from config")
	}
	if loaded.Generator.BasePrice == 0 || loaded.Generator.IntervalMs == 0 {
		t.Fatalf("generator defaults not applied: %+v", loaded.Generator)
	}
}

func TestLoadRejectsUnknownCurrencyKind(t *testing.T) {
	cfg := `{"currencies": [{"code": "EUR", "precision": 2, "kind": "METAL"}]}`
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatal("Load() should reject unknown currency kind")
	}
}

func TestLoadRejectsInstrumentWithMissingCurrency(t *testing.T) {
	cfg := `{
		"currencies": [{"code": "EUR", "precision": 2, "kind": "FIAT"}],
		"instruments": [{
			"venue": "SIM", "code": "EURUSD",
			"base": "EUR", "quote": "USD",
			"pricePrecision": 5, "sizePrecision": 0,
			"tickSize": "0.00001", "multiplier": "1"
		}]
	}`
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatal("Load() should reject instrument with unregistered quote currency")
	}
}

func TestLoadRejectsInexactTickSize(t *testing.T) {
	cfg := `{
		"currencies": [
			{"code": "EUR", "precision": 2, "kind": "FIAT"},
			{"code": "USD", "precision": 2, "kind": "FIAT"}
		],
		"instruments": [{
			"venue": "SIM", "code": "EURUSD",
			"base": "EUR", "quote": "USD",
			"pricePrecision": 2, "sizePrecision": 0,
			"tickSize": "0.00001", "multiplier": "1"
		}]
	}`
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatal("Load() should reject a tick size finer than the price precision")
	}
}
