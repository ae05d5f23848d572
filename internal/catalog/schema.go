package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"

	"main/internal/model"
)

// FormatVersion is the current segment format version.
const FormatVersion uint16 = 1

var (
	ErrSchemaMismatch     = errors.New("catalog schema mismatch")
	ErrInvalidSegment     = errors.New("catalog invalid segment")
	ErrUnsupportedVersion = errors.New("catalog unsupported format version")
)

// Dataset identifies one logical record family stored in the catalog.
type Dataset uint16

const (
	DatasetUnknown Dataset = iota
	DatasetQuotes
	DatasetTrades
	DatasetBars
)

func (d Dataset) dirName() string {
	switch d {
	case DatasetQuotes:
		return "quotes"
	case DatasetTrades:
		return "trades"
	case DatasetBars:
		return "bars"
	default:
		return "unknown"
	}
}

// columnKind is the physical type of one stored column.
type columnKind uint8

const (
	columnInt64 columnKind = iota + 1
	columnUint8
	columnString
)

// column describes one stored field. Scale is the fixed-point precision for
// price and size columns, zero for everything else.
type column struct {
	name  string
	kind  columnKind
	scale uint8
}

// schema is the field layout of one segment. It must round-trip exactly:
// reads reconstruct mantissa and precision bit-identically.
type schema struct {
	dataset Dataset
	key     string
	columns []column
}

func quoteSchema(key string, pricePrecision, sizePrecision uint8) schema {
	return schema{
		dataset: DatasetQuotes,
		key:     key,
		columns: []column{
			{name: "bid", kind: columnInt64, scale: pricePrecision},
			{name: "ask", kind: columnInt64, scale: pricePrecision},
			{name: "bid_size", kind: columnInt64, scale: sizePrecision},
			{name: "ask_size", kind: columnInt64, scale: sizePrecision},
			{name: "ts_event", kind: columnInt64},
		},
	}
}

func tradeSchema(key string, pricePrecision, sizePrecision uint8) schema {
	return schema{
		dataset: DatasetTrades,
		key:     key,
		columns: []column{
			{name: "price", kind: columnInt64, scale: pricePrecision},
			{name: "size", kind: columnInt64, scale: sizePrecision},
			{name: "aggressor_side", kind: columnUint8},
			{name: "trade_id", kind: columnString},
			{name: "ts_event", kind: columnInt64},
		},
	}
}

func barSchema(key string, pricePrecision, sizePrecision uint8) schema {
	return schema{
		dataset: DatasetBars,
		key:     key,
		columns: []column{
			{name: "open", kind: columnInt64, scale: pricePrecision},
			{name: "high", kind: columnInt64, scale: pricePrecision},
			{name: "low", kind: columnInt64, scale: pricePrecision},
			{name: "close", kind: columnInt64, scale: pricePrecision},
			{name: "volume", kind: columnInt64, scale: sizePrecision},
			{name: "ts_open", kind: columnInt64},
			{name: "ts_event", kind: columnInt64},
		},
	}
}

func (s schema) equal(other schema) bool {
	if s.dataset != other.dataset || s.key != other.key || len(s.columns) != len(other.columns) {
		return false
	}
	for i := range s.columns {
		if s.columns[i] != other.columns[i] {
			return false
		}
	}
	return true
}

// pricePrecision returns the scale of the first price-typed column.
func (s schema) pricePrecision() uint8 {
	if len(s.columns) == 0 {
		return 0
	}
	return s.columns[0].scale
}

func (s schema) sizePrecision() uint8 {
	for _, col := range s.columns {
		switch col.name {
		case "bid_size", "size", "volume":
			return col.scale
		}
	}
	return 0
}

func (s schema) append(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(s.dataset))
	buf = appendString(buf, s.key)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s.columns)))
	for _, col := range s.columns {
		buf = appendString(buf, col.name)
		buf = append(buf, byte(col.kind), col.scale)
	}
	return buf
}

func decodeSchema(src []byte) (schema, int, error) {
	var s schema
	offset := 0

	if len(src) < 2 {
		return s, 0, fmt.Errorf("schema block truncated: %w", ErrInvalidSegment)
	}
	s.dataset = Dataset(binary.LittleEndian.Uint16(src))
	offset += 2

	key, n, err := decodeString(src[offset:])
	if err != nil {
		return s, 0, err
	}
	s.key = key
	offset += n

	if len(src[offset:]) < 2 {
		return s, 0, fmt.Errorf("schema block truncated: %w", ErrInvalidSegment)
	}
	count := int(binary.LittleEndian.Uint16(src[offset:]))
	offset += 2

	s.columns = make([]column, 0, count)
	for i := 0; i < count; i++ {
		name, n, err := decodeString(src[offset:])
		if err != nil {
			return s, 0, err
		}
		offset += n
		if len(src[offset:]) < 2 {
			return s, 0, fmt.Errorf("schema block truncated: %w", ErrInvalidSegment)
		}
		s.columns = append(s.columns, column{
			name:  name,
			kind:  columnKind(src[offset]),
			scale: src[offset+1],
		})
		offset += 2
	}
	return s, offset, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func decodeString(src []byte) (string, int, error) {
	if len(src) < 2 {
		return "", 0, fmt.Errorf("string field truncated: %w", ErrInvalidSegment)
	}
	n := int(binary.LittleEndian.Uint16(src))
	if len(src) < 2+n {
		return "", 0, fmt.Errorf("string field truncated: %w", ErrInvalidSegment)
	}
	return string(src[2 : 2+n]), 2 + n, nil
}

// batchPrecisions extracts and validates the shared precisions of one
// homogeneous quote batch.
func quoteBatchSchema(key string, ticks []model.QuoteTick) (schema, error) {
	pp := ticks[0].Bid.Precision()
	sp := ticks[0].BidSize.Precision()
	for _, tick := range ticks {
		if tick.Bid.Precision() != pp || tick.Ask.Precision() != pp ||
			tick.BidSize.Precision() != sp || tick.AskSize.Precision() != sp {
			return schema{}, fmt.Errorf("quote batch precision not homogeneous: %w", ErrSchemaMismatch)
		}
	}
	return quoteSchema(key, pp, sp), nil
}

func tradeBatchSchema(key string, ticks []model.TradeTick) (schema, error) {
	pp := ticks[0].Price.Precision()
	sp := ticks[0].Size.Precision()
	for _, tick := range ticks {
		if tick.Price.Precision() != pp || tick.Size.Precision() != sp {
			return schema{}, fmt.Errorf("trade batch precision not homogeneous: %w", ErrSchemaMismatch)
		}
	}
	return tradeSchema(key, pp, sp), nil
}

func barBatchSchema(key string, bars []model.Bar) (schema, error) {
	pp := bars[0].Open.Precision()
	sp := bars[0].Volume.Precision()
	for _, bar := range bars {
		if bar.Open.Precision() != pp || bar.High.Precision() != pp ||
			bar.Low.Precision() != pp || bar.Close.Precision() != pp ||
			bar.Volume.Precision() != sp {
			return schema{}, fmt.Errorf("bar batch precision not homogeneous: %w", ErrSchemaMismatch)
		}
	}
	return barSchema(key, pp, sp), nil
}
