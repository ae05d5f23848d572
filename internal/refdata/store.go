// Package refdata persists currency and instrument definitions so capture
// and replay runs agree on precisions and tick sizes without re-declaring
// them in every config file.
package refdata

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"main/internal/cache"
	"main/internal/model"
	"main/internal/model/enum"
)

// ErrNotFound is returned when a definition does not exist in the store.
var ErrNotFound = errors.New("refdata: not found")

// currencyRow is the persisted form of model.Currency.
type currencyRow struct {
	Code      string `gorm:"primaryKey"`
	Precision uint8
	Kind      uint8
	UpdatedAt time.Time
}

func (currencyRow) TableName() string { return "currencies" }

// instrumentRow is the persisted form of model.Instrument. Raw mantissas
// are stored as-is; precision columns decode them on load.
type instrumentRow struct {
	Venue          string `gorm:"primaryKey"`
	Code           string `gorm:"primaryKey"`
	Base           string
	Quote          string
	PricePrecision uint8
	SizePrecision  uint8
	TickSize       int64
	Multiplier     int64
	UpdatedAt      time.Time
}

func (instrumentRow) TableName() string { return "instruments" }

// Store reads and writes reference data through a gorm connection.
type Store struct {
	db *gorm.DB
}

// NewStore migrates the schema and wraps the connection.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("refdata: db is nil")
	}
	if err := db.AutoMigrate(&currencyRow{}, &instrumentRow{}); err != nil {
		return nil, fmt.Errorf("refdata: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// UpsertCurrency creates or updates a currency definition.
func (s *Store) UpsertCurrency(currency model.Currency) error {
	if currency.IsZero() {
		return fmt.Errorf("refdata: currency code is empty")
	}
	row := currencyRow{
		Code:      currency.Code,
		Precision: currency.Precision,
		Kind:      uint8(currency.Kind),
	}
	return s.db.Save(&row).Error
}

// Currency loads one currency by code.
func (s *Store) Currency(code string) (model.Currency, error) {
	var row currencyRow
	err := s.db.First(&row, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Currency{}, fmt.Errorf("currency %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return model.Currency{}, err
	}
	return row.toCurrency(), nil
}

// Currencies loads all currency definitions ordered by code.
func (s *Store) Currencies() ([]model.Currency, error) {
	var rows []currencyRow
	if err := s.db.Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	currencies := make([]model.Currency, 0, len(rows))
	for _, row := range rows {
		currencies = append(currencies, row.toCurrency())
	}
	return currencies, nil
}

// UpsertInstrument creates or updates an instrument definition. The base
// and quote currencies must already exist in the store.
func (s *Store) UpsertInstrument(instrument model.Instrument) error {
	for _, code := range []string{instrument.Base.Code, instrument.Quote.Code} {
		if _, err := s.Currency(code); err != nil {
			return fmt.Errorf("instrument %s: %w", instrument.Symbol, err)
		}
	}
	row := instrumentRow{
		Venue:          instrument.Symbol.Venue,
		Code:           instrument.Symbol.Code,
		Base:           instrument.Base.Code,
		Quote:          instrument.Quote.Code,
		PricePrecision: instrument.PricePrecision,
		SizePrecision:  instrument.SizePrecision,
		TickSize:       instrument.TickSize.Raw(),
		Multiplier:     instrument.Multiplier.Raw(),
	}
	return s.db.Save(&row).Error
}

// Instrument loads one instrument by symbol.
func (s *Store) Instrument(symbol model.Symbol) (model.Instrument, error) {
	var row instrumentRow
	err := s.db.First(&row, "venue = ? AND code = ?", symbol.Venue, symbol.Code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Instrument{}, fmt.Errorf("instrument %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return model.Instrument{}, err
	}
	return s.toInstrument(row)
}

// Instruments loads all instrument definitions ordered by venue and code.
func (s *Store) Instruments() ([]model.Instrument, error) {
	var rows []instrumentRow
	if err := s.db.Order("venue, code").Find(&rows).Error; err != nil {
		return nil, err
	}
	instruments := make([]model.Instrument, 0, len(rows))
	for _, row := range rows {
		instrument, err := s.toInstrument(row)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, instrument)
	}
	return instruments, nil
}

// LoadInto registers every stored currency and instrument into the cache.
// Returns the number of instruments registered.
func (s *Store) LoadInto(c *cache.DataCache) (int, error) {
	currencies, err := s.Currencies()
	if err != nil {
		return 0, err
	}
	for _, currency := range currencies {
		if err := c.AddCurrency(currency); err != nil {
			return 0, err
		}
	}
	instruments, err := s.Instruments()
	if err != nil {
		return 0, err
	}
	for _, instrument := range instruments {
		if err := c.AddInstrument(instrument); err != nil {
			return 0, err
		}
	}
	return len(instruments), nil
}

func (r currencyRow) toCurrency() model.Currency {
	return model.NewCurrency(r.Code, r.Precision, enum.CurrencyKind(r.Kind))
}

func (s *Store) toInstrument(row instrumentRow) (model.Instrument, error) {
	base, err := s.Currency(row.Base)
	if err != nil {
		return model.Instrument{}, err
	}
	quote, err := s.Currency(row.Quote)
	if err != nil {
		return model.Instrument{}, err
	}
	return model.NewInstrument(
		model.NewSymbol(row.Venue, row.Code),
		base, quote,
		row.PricePrecision, row.SizePrecision,
		row.TickSize, row.Multiplier,
	)
}
