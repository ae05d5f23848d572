package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"main/internal/model"
	"main/internal/model/enum"
)

// TimeRange is an inclusive [From, To] interval in epoch nanoseconds.
type TimeRange struct {
	From int64
	To   int64
}

func (r TimeRange) contains(ts int64) bool {
	return ts >= r.From && ts <= r.To
}

// Cursor is a lazy, ordered stream of decoded records. Records are
// delivered in non-decreasing timestamp order for the queried key; the end
// of the stream is io.EOF. Re-running the same query over an unchanged
// dataset reproduces the same sequence.
type Cursor[T any] struct {
	cfg     Config
	rng     TimeRange
	dataset Dataset
	key     string
	decode  func(schema, frame, TimeRange) ([]T, error)

	files   []string
	fileIdx int
	file    *os.File
	fr      *frameReader
	schema  *schema
	pending []T
	pendIdx int
}

// QueryQuotes streams quote ticks for a symbol over a time range.
func QueryQuotes(cfg Config, symbol model.Symbol, rng TimeRange) (*Cursor[model.QuoteTick], error) {
	return newCursor(cfg, DatasetQuotes, symbol.String(), rng,
		func(s schema, f frame, rng TimeRange) ([]model.QuoteTick, error) {
			return decodeQuoteFrame(s, f, symbol, rng)
		})
}

// QueryTrades streams trade ticks for a symbol over a time range.
func QueryTrades(cfg Config, symbol model.Symbol, rng TimeRange) (*Cursor[model.TradeTick], error) {
	return newCursor(cfg, DatasetTrades, symbol.String(), rng,
		func(s schema, f frame, rng TimeRange) ([]model.TradeTick, error) {
			return decodeTradeFrame(s, f, symbol, rng)
		})
}

// QueryBars streams bars for a bar type over a time range.
func QueryBars(cfg Config, barType model.BarType, rng TimeRange) (*Cursor[model.Bar], error) {
	return newCursor(cfg, DatasetBars, barType.String(), rng,
		func(s schema, f frame, rng TimeRange) ([]model.Bar, error) {
			return decodeBarFrame(s, f, barType, rng)
		})
}

func newCursor[T any](cfg Config, dataset Dataset, key string, rng TimeRange, decode func(schema, frame, TimeRange) ([]T, error)) (*Cursor[T], error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	files, err := collectSegments(cfg, dataset, key, rng)
	if err != nil {
		return nil, err
	}
	return &Cursor[T]{
		cfg:     cfg,
		rng:     rng,
		dataset: dataset,
		key:     key,
		decode:  decode,
		files:   files,
	}, nil
}

// collectSegments prunes partitions by key directory and date bucket, then
// lists segment files in ascending order.
func collectSegments(cfg Config, dataset Dataset, key string, rng TimeRange) ([]string, error) {
	keyDir := filepath.Join(cfg.Dir, dataset.dirName(), key)
	dates, err := os.ReadDir(keyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	fromDate := dateBucket(rng.From)
	toDate := dateBucket(rng.To)

	var files []string
	for _, dateEntry := range dates {
		if !dateEntry.IsDir() {
			continue
		}
		date := dateEntry.Name()
		if date < fromDate || date > toDate {
			continue
		}
		segs, err := os.ReadDir(filepath.Join(keyDir, date))
		if err != nil {
			return nil, err
		}
		var names []string
		for _, seg := range segs {
			if seg.IsDir() || !strings.HasSuffix(seg.Name(), ".seg") {
				continue
			}
			names = append(names, filepath.Join(keyDir, date, seg.Name()))
		}
		sort.Strings(names)
		files = append(files, names...)
	}
	sort.Strings(files)
	return files, nil
}

// Next returns the next record, or io.EOF when the stream is exhausted.
// Any other error is fatal for the stream.
func (c *Cursor[T]) Next() (T, error) {
	var zero T
	for {
		if c.pendIdx < len(c.pending) {
			record := c.pending[c.pendIdx]
			c.pendIdx++
			return record, nil
		}

		if c.fr == nil {
			if c.fileIdx >= len(c.files) {
				return zero, io.EOF
			}
			if err := c.openNext(); err != nil {
				return zero, err
			}
		}

		f, err := c.fr.next()
		if err != nil {
			if err == io.EOF {
				c.closeFile()
				continue
			}
			c.closeFile()
			return zero, err
		}

		// Frame pruning by the stored timestamp bounds.
		if f.maxTs < c.rng.From || f.minTs > c.rng.To {
			continue
		}

		rows, err := c.decode(*c.schema, f, c.rng)
		if err != nil {
			c.closeFile()
			return zero, err
		}
		c.pending = rows
		c.pendIdx = 0
	}
}

// Close releases the open segment, if any. The cursor is unusable after.
func (c *Cursor[T]) Close() error {
	c.closeFile()
	c.fileIdx = len(c.files)
	c.pending = nil
	c.pendIdx = 0
	return nil
}

func (c *Cursor[T]) openNext() error {
	path := c.files[c.fileIdx]
	c.fileIdx++

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	s, err := readSegmentHeader(file)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("segment %s: %w", path, err)
	}
	if err := c.validateSchema(s); err != nil {
		_ = file.Close()
		return fmt.Errorf("segment %s: %w", path, err)
	}

	c.file = file
	c.fr = newFrameReader(file)
	return nil
}

// validateSchema checks the stored layout against the expected record
// schema and against earlier segments of the same stream. A disagreement
// is fatal and never coerced.
func (c *Cursor[T]) validateSchema(s schema) error {
	if s.dataset != c.dataset || s.key != c.key {
		return fmt.Errorf("stored dataset/key %d/%s: %w", s.dataset, s.key, ErrSchemaMismatch)
	}
	expected := expectedColumns(c.dataset)
	if len(s.columns) != len(expected) {
		return fmt.Errorf("stored column count %d want %d: %w", len(s.columns), len(expected), ErrSchemaMismatch)
	}
	for i, col := range s.columns {
		if col.name != expected[i].name || col.kind != expected[i].kind {
			return fmt.Errorf("stored column %q/%d want %q/%d: %w",
				col.name, col.kind, expected[i].name, expected[i].kind, ErrSchemaMismatch)
		}
	}
	if c.schema == nil {
		c.schema = &s
		return nil
	}
	if !c.schema.equal(s) {
		return fmt.Errorf("segment precision disagrees with stream: %w", ErrSchemaMismatch)
	}
	return nil
}

func expectedColumns(dataset Dataset) []column {
	switch dataset {
	case DatasetQuotes:
		return quoteSchema("", 0, 0).columns
	case DatasetTrades:
		return tradeSchema("", 0, 0).columns
	default:
		return barSchema("", 0, 0).columns
	}
}

func (c *Cursor[T]) closeFile() {
	if c.file != nil {
		_ = c.file.Close()
		c.file = nil
	}
	c.fr = nil
}

func decodeQuoteFrame(s schema, f frame, symbol model.Symbol, rng TimeRange) ([]model.QuoteTick, error) {
	if len(f.columns) != 5 {
		return nil, fmt.Errorf("quote frame has %d columns: %w", len(f.columns), ErrInvalidSegment)
	}
	bid, err := decodeInt64Column(f.columns[0], f.rowCount)
	if err != nil {
		return nil, err
	}
	ask, err := decodeInt64Column(f.columns[1], f.rowCount)
	if err != nil {
		return nil, err
	}
	bidSize, err := decodeInt64Column(f.columns[2], f.rowCount)
	if err != nil {
		return nil, err
	}
	askSize, err := decodeInt64Column(f.columns[3], f.rowCount)
	if err != nil {
		return nil, err
	}
	ts, err := decodeInt64Column(f.columns[4], f.rowCount)
	if err != nil {
		return nil, err
	}

	pp, sp := s.pricePrecision(), s.sizePrecision()
	out := make([]model.QuoteTick, 0, f.rowCount)
	for i := 0; i < f.rowCount; i++ {
		if !rng.contains(ts[i]) {
			continue
		}
		out = append(out, model.QuoteTick{
			Symbol:  symbol,
			Bid:     model.NewPrice(bid[i], pp),
			Ask:     model.NewPrice(ask[i], pp),
			BidSize: model.NewQuantity(bidSize[i], sp),
			AskSize: model.NewQuantity(askSize[i], sp),
			TsEvent: ts[i],
		})
	}
	return out, nil
}

func decodeTradeFrame(s schema, f frame, symbol model.Symbol, rng TimeRange) ([]model.TradeTick, error) {
	if len(f.columns) != 5 {
		return nil, fmt.Errorf("trade frame has %d columns: %w", len(f.columns), ErrInvalidSegment)
	}
	price, err := decodeInt64Column(f.columns[0], f.rowCount)
	if err != nil {
		return nil, err
	}
	size, err := decodeInt64Column(f.columns[1], f.rowCount)
	if err != nil {
		return nil, err
	}
	aggressor, err := decodeUint8Column(f.columns[2], f.rowCount)
	if err != nil {
		return nil, err
	}
	tradeID, err := decodeStringColumn(f.columns[3], f.rowCount)
	if err != nil {
		return nil, err
	}
	ts, err := decodeInt64Column(f.columns[4], f.rowCount)
	if err != nil {
		return nil, err
	}

	pp, sp := s.pricePrecision(), s.sizePrecision()
	out := make([]model.TradeTick, 0, f.rowCount)
	for i := 0; i < f.rowCount; i++ {
		if !rng.contains(ts[i]) {
			continue
		}
		out = append(out, model.TradeTick{
			Symbol:    symbol,
			Price:     model.NewPrice(price[i], pp),
			Size:      model.NewQuantity(size[i], sp),
			Aggressor: enum.AggressorSide(aggressor[i]),
			TradeID:   tradeID[i],
			TsEvent:   ts[i],
		})
	}
	return out, nil
}

func decodeBarFrame(s schema, f frame, barType model.BarType, rng TimeRange) ([]model.Bar, error) {
	if len(f.columns) != 7 {
		return nil, fmt.Errorf("bar frame has %d columns: %w", len(f.columns), ErrInvalidSegment)
	}
	cols := make([][]int64, 7)
	for i := range cols {
		col, err := decodeInt64Column(f.columns[i], f.rowCount)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	pp, sp := s.pricePrecision(), s.sizePrecision()
	out := make([]model.Bar, 0, f.rowCount)
	for i := 0; i < f.rowCount; i++ {
		ts := cols[6][i]
		if !rng.contains(ts) {
			continue
		}
		out = append(out, model.Bar{
			Type:    barType,
			Open:    model.NewPrice(cols[0][i], pp),
			High:    model.NewPrice(cols[1][i], pp),
			Low:     model.NewPrice(cols[2][i], pp),
			Close:   model.NewPrice(cols[3][i], pp),
			Volume:  model.NewQuantity(cols[4][i], sp),
			TsOpen:  cols[5][i],
			TsEvent: ts,
		})
	}
	return out, nil
}
