package cache

import "testing"

func TestSeriesLengthLaw(t *testing.T) {
	const capacity = 7
	s := newSeries[int](capacity)
	for n := 1; n <= 20; n++ {
		s.push(n)
		want := n
		if want > capacity {
			want = capacity
		}
		if s.len() != want {
			t.Fatalf("after %d pushes len=%d want %d", n, s.len(), want)
		}
		if latest, _ := s.at(0); latest != n {
			t.Fatalf("after %d pushes index 0 is %d", n, latest)
		}
	}
}

func TestSeriesEvictsOldest(t *testing.T) {
	s := newSeries[int](3)
	for n := 1; n <= 5; n++ {
		s.push(n)
	}
	got := s.items()
	want := []int{5, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("items length %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestSeriesIndexOutOfRange(t *testing.T) {
	s := newSeries[int](4)
	s.push(1)
	s.push(2)
	if _, ok := s.at(2); ok {
		t.Fatal("index 2 should be out of range for length 2")
	}
	if _, ok := s.at(-1); ok {
		t.Fatal("negative index should be out of range")
	}
}
