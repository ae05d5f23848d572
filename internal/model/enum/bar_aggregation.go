package enum

// BarAggregation describes the step unit a bar aggregates over.
type BarAggregation uint8

const (
	_bar_aggregation_beg BarAggregation = iota
	BarAggregationTick
	BarAggregationVolume
	BarAggregationSecond
	BarAggregationMinute
	BarAggregationHour
	BarAggregationDay
	_bar_aggregation_end
)

func (a BarAggregation) IsAvailable() bool {
	return a > _bar_aggregation_beg && a < _bar_aggregation_end
}

func (a BarAggregation) String() string {
	switch a {
	case BarAggregationTick:
		return "TICK"
	case BarAggregationVolume:
		return "VOLUME"
	case BarAggregationSecond:
		return "SECOND"
	case BarAggregationMinute:
		return "MINUTE"
	case BarAggregationHour:
		return "HOUR"
	case BarAggregationDay:
		return "DAY"
	default:
		return "UNKNOWN"
	}
}
