package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"main/internal/model"
)

var ErrEmptyBatch = errors.New("catalog empty batch")

// Writer appends homogeneous record batches to partitioned columnar
// segments. Partition keys are {dataset, series key, UTC date}; writes are
// append-only and preserve arrival order within a partition.
//
// A Writer owns its open partitions and is single-owner: callers writing
// the same partition must serialize through one Writer. Writers rooted at
// distinct partitions may run concurrently.
type Writer struct {
	cfg        Config
	partitions map[string]*partition
}

type partition struct {
	schema  schema
	file    *os.File
	buf     *bufio.Writer
	size    int64
	segID   uint64
	dir     string
	scratch []byte
}

// NewWriter creates a catalog writer rooted at cfg.Dir.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{
		cfg:        cfg,
		partitions: make(map[string]*partition),
	}, nil
}

// AppendQuotes appends one batch of quote ticks for a single symbol,
// bucketed into {symbol, date} partitions in arrival order.
func (w *Writer) AppendQuotes(ticks []model.QuoteTick) error {
	if len(ticks) == 0 {
		return ErrEmptyBatch
	}
	key := ticks[0].Symbol.String()
	for _, tick := range ticks {
		if tick.Symbol != ticks[0].Symbol {
			return fmt.Errorf("quote batch spans symbols %s and %s", ticks[0].Symbol, tick.Symbol)
		}
	}
	s, err := quoteBatchSchema(key, ticks)
	if err != nil {
		return err
	}
	return splitByDate(ticks, func(t model.QuoteTick) int64 { return t.TsEvent }, func(date string, group []model.QuoteTick) error {
		return w.appendFrame(s, date, encodeQuoteFrame(group))
	})
}

// AppendTrades appends one batch of trade ticks for a single symbol.
func (w *Writer) AppendTrades(ticks []model.TradeTick) error {
	if len(ticks) == 0 {
		return ErrEmptyBatch
	}
	key := ticks[0].Symbol.String()
	for _, tick := range ticks {
		if tick.Symbol != ticks[0].Symbol {
			return fmt.Errorf("trade batch spans symbols %s and %s", ticks[0].Symbol, tick.Symbol)
		}
	}
	s, err := tradeBatchSchema(key, ticks)
	if err != nil {
		return err
	}
	return splitByDate(ticks, func(t model.TradeTick) int64 { return t.TsEvent }, func(date string, group []model.TradeTick) error {
		return w.appendFrame(s, date, encodeTradeFrame(group))
	})
}

// AppendBars appends one batch of bars for a single bar type.
func (w *Writer) AppendBars(bars []model.Bar) error {
	if len(bars) == 0 {
		return ErrEmptyBatch
	}
	key := bars[0].Type.String()
	for _, bar := range bars {
		if bar.Type != bars[0].Type {
			return fmt.Errorf("bar batch spans types %s and %s", bars[0].Type, bar.Type)
		}
	}
	s, err := barBatchSchema(key, bars)
	if err != nil {
		return err
	}
	return splitByDate(bars, func(b model.Bar) int64 { return b.TsEvent }, func(date string, group []model.Bar) error {
		return w.appendFrame(s, date, encodeBarFrame(group))
	})
}

// Flush pushes buffered frames of every open partition to the OS.
func (w *Writer) Flush() error {
	for _, p := range w.partitions {
		if err := p.buf.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Sync flushes and fsyncs every open partition.
func (w *Writer) Sync() error {
	for _, p := range w.partitions {
		if err := p.buf.Flush(); err != nil {
			return err
		}
		if err := p.file.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes, syncs and closes all open partitions.
func (w *Writer) Close() error {
	var firstErr error
	for key, p := range w.partitions {
		if err := closePartition(p); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(w.partitions, key)
	}
	return firstErr
}

func (w *Writer) appendFrame(s schema, date string, f frame) error {
	p, err := w.openPartition(s, date)
	if err != nil {
		return err
	}

	p.scratch = f.encode(p.scratch[:0])
	frameSize := int64(len(p.scratch))

	if p.size+frameSize > w.cfg.SegmentMaxBytes {
		if err := closePartition(p); err != nil {
			return err
		}
		if err := w.openSegment(p); err != nil {
			return err
		}
	}

	if _, err := p.buf.Write(p.scratch); err != nil {
		return err
	}
	p.size += frameSize
	return nil
}

func (w *Writer) openPartition(s schema, date string) (*partition, error) {
	dir := filepath.Join(w.cfg.Dir, s.dataset.dirName(), s.key, date)
	p, ok := w.partitions[dir]
	if ok {
		if !p.schema.equal(s) {
			return nil, fmt.Errorf("partition %s: %w", dir, ErrSchemaMismatch)
		}
		return p, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	p = &partition{schema: s, dir: dir}
	if err := w.openSegment(p); err != nil {
		return nil, err
	}
	w.partitions[dir] = p
	return p, nil
}

func (w *Writer) openSegment(p *partition) error {
	for {
		p.segID++
		name := fmt.Sprintf("%s-%06d.seg", w.cfg.FilePrefix, p.segID)
		path := filepath.Join(p.dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return err
		}

		header := encodeSegmentHeader(p.schema)
		buf := bufio.NewWriterSize(file, w.cfg.BufferSize)
		if _, err := buf.Write(header); err != nil {
			_ = file.Close()
			return err
		}

		p.file = file
		p.buf = buf
		p.size = int64(len(header))
		return nil
	}
}

func closePartition(p *partition) error {
	if p.file == nil {
		return nil
	}
	if err := p.buf.Flush(); err != nil {
		_ = p.file.Close()
		return err
	}
	if err := p.file.Sync(); err != nil {
		_ = p.file.Close()
		return err
	}
	err := p.file.Close()
	p.file = nil
	p.buf = nil
	return err
}

func dateBucket(ts int64) string {
	return time.Unix(0, ts).UTC().Format("20060102")
}

// splitByDate walks a chronologically ordered batch and hands each maximal
// same-date run to emit, preserving arrival order.
func splitByDate[T any](records []T, ts func(T) int64, emit func(date string, group []T) error) error {
	start := 0
	date := dateBucket(ts(records[0]))
	for i := 1; i < len(records); i++ {
		next := dateBucket(ts(records[i]))
		if next == date {
			continue
		}
		if err := emit(date, records[start:i]); err != nil {
			return err
		}
		start, date = i, next
	}
	return emit(date, records[start:])
}

func encodeQuoteFrame(ticks []model.QuoteTick) frame {
	n := len(ticks)
	bid := make([]int64, n)
	ask := make([]int64, n)
	bidSize := make([]int64, n)
	askSize := make([]int64, n)
	ts := make([]int64, n)
	for i, tick := range ticks {
		bid[i] = tick.Bid.Raw()
		ask[i] = tick.Ask.Raw()
		bidSize[i] = tick.BidSize.Raw()
		askSize[i] = tick.AskSize.Raw()
		ts[i] = tick.TsEvent
	}
	return frame{
		rowCount: n,
		minTs:    minInt64(ts),
		maxTs:    maxInt64(ts),
		columns: [][]byte{
			int64Column(bid),
			int64Column(ask),
			int64Column(bidSize),
			int64Column(askSize),
			int64Column(ts),
		},
	}
}

func encodeTradeFrame(ticks []model.TradeTick) frame {
	n := len(ticks)
	price := make([]int64, n)
	size := make([]int64, n)
	aggressor := make([]uint8, n)
	tradeID := make([]string, n)
	ts := make([]int64, n)
	for i, tick := range ticks {
		price[i] = tick.Price.Raw()
		size[i] = tick.Size.Raw()
		aggressor[i] = uint8(tick.Aggressor)
		tradeID[i] = tick.TradeID
		ts[i] = tick.TsEvent
	}
	return frame{
		rowCount: n,
		minTs:    minInt64(ts),
		maxTs:    maxInt64(ts),
		columns: [][]byte{
			int64Column(price),
			int64Column(size),
			uint8Column(aggressor),
			stringColumn(tradeID),
			int64Column(ts),
		},
	}
}

func encodeBarFrame(bars []model.Bar) frame {
	n := len(bars)
	open := make([]int64, n)
	high := make([]int64, n)
	low := make([]int64, n)
	closeCol := make([]int64, n)
	volume := make([]int64, n)
	tsOpen := make([]int64, n)
	ts := make([]int64, n)
	for i, bar := range bars {
		open[i] = bar.Open.Raw()
		high[i] = bar.High.Raw()
		low[i] = bar.Low.Raw()
		closeCol[i] = bar.Close.Raw()
		volume[i] = bar.Volume.Raw()
		tsOpen[i] = bar.TsOpen
		ts[i] = bar.TsEvent
	}
	return frame{
		rowCount: n,
		minTs:    minInt64(ts),
		maxTs:    maxInt64(ts),
		columns: [][]byte{
			int64Column(open),
			int64Column(high),
			int64Column(low),
			int64Column(closeCol),
			int64Column(volume),
			int64Column(tsOpen),
			int64Column(ts),
		},
	}
}

func minInt64(values []int64) int64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxInt64(values []int64) int64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
