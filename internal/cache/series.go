package cache

// series is a fixed-capacity ring over one record type. Index 0 is the most
// recently pushed record; pushing at capacity evicts the oldest (highest
// index). Push and At are O(1).
type series[T any] struct {
	buf   []T
	head  int
	count int
}

func newSeries[T any](capacity int) *series[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &series[T]{buf: make([]T, capacity)}
}

func (s *series[T]) push(v T) {
	s.head--
	if s.head < 0 {
		s.head = len(s.buf) - 1
	}
	s.buf[s.head] = v
	if s.count < len(s.buf) {
		s.count++
	}
}

func (s *series[T]) at(index int) (T, bool) {
	if index < 0 || index >= s.count {
		var zero T
		return zero, false
	}
	return s.buf[(s.head+index)%len(s.buf)], true
}

func (s *series[T]) len() int {
	return s.count
}

// items returns a copy of the series ordered newest first.
func (s *series[T]) items() []T {
	out := make([]T, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.buf[(s.head+i)%len(s.buf)]
	}
	return out
}
