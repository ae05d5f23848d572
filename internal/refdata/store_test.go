package refdata

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"main/internal/cache"
	"main/internal/model"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "refdata.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store, err := NewStore(db)
	require.NoError(t, err)
	return store
}

func testInstrument(t *testing.T) model.Instrument {
	t.Helper()
	inst, err := model.NewInstrument(
		model.NewSymbol("SIM", "EURUSD"),
		model.EUR, model.USD,
		5, 0, 1, 100000,
	)
	require.NoError(t, err)
	return inst
}

func TestCurrencyRoundTrip(t *testing.T) {
	store := setupStore(t)

	require.NoError(t, store.UpsertCurrency(model.USD))
	require.NoError(t, store.UpsertCurrency(model.JPY))

	got, err := store.Currency("JPY")
	require.NoError(t, err)
	assert.Equal(t, model.JPY, got)

	all, err := store.Currencies()
	require.NoError(t, err)
	assert.Equal(t, []model.Currency{model.JPY, model.USD}, all)
}

func TestCurrencyNotFound(t *testing.T) {
	store := setupStore(t)
	_, err := store.Currency("XXX")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInstrumentRoundTrip(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.UpsertCurrency(model.EUR))
	require.NoError(t, store.UpsertCurrency(model.USD))

	inst := testInstrument(t)
	require.NoError(t, store.UpsertInstrument(inst))

	got, err := store.Instrument(inst.Symbol)
	require.NoError(t, err)
	assert.Equal(t, inst, got)
}

func TestUpsertInstrumentRequiresCurrencies(t *testing.T) {
	store := setupStore(t)
	err := store.UpsertInstrument(testInstrument(t))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertInstrumentOverwrites(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.UpsertCurrency(model.EUR))
	require.NoError(t, store.UpsertCurrency(model.USD))

	inst := testInstrument(t)
	require.NoError(t, store.UpsertInstrument(inst))

	inst.TickSize = model.NewPrice(5, inst.PricePrecision)
	require.NoError(t, store.UpsertInstrument(inst))

	got, err := store.Instrument(inst.Symbol)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.TickSize.Raw())
}

func TestLoadIntoCache(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.UpsertCurrency(model.EUR))
	require.NoError(t, store.UpsertCurrency(model.USD))

	inst := testInstrument(t)
	require.NoError(t, store.UpsertInstrument(inst))

	c, err := cache.New(cache.Config{})
	require.NoError(t, err)

	n, err := store.LoadInto(c)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := c.Instrument(inst.Symbol)
	require.NoError(t, err)
	assert.Equal(t, inst, got)

	cur, err := c.Currency("EUR")
	require.NoError(t, err)
	assert.Equal(t, model.EUR, cur)
}
