package wheel

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func weight(v float64) *float64 { return &v }

func TestSelectDistributionMatchesWeights(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{ID: 1, Name: "A", Weight: weight(1)},
		{ID: 2, Name: "B", Weight: weight(2)},
		{ID: 3, Name: "C", Weight: weight(0)},
		{ID: 4, Name: "D", Weight: weight(3)},
		{ID: 5, Name: "E", Weight: weight(4)},
	}
	want := []float64{0.1, 0.2, 0, 0.3, 0.4}

	src := rand.New(rand.NewPCG(7, 11))
	const rounds = 100_000
	counts := make([]int, len(entries))
	for i := 0; i < rounds; i++ {
		idx, err := Pick(entries, src, false)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		counts[idx]++
	}

	if counts[2] != 0 {
		t.Fatalf("zero-weight entry selected %d times", counts[2])
	}
	for i, c := range counts {
		got := float64(c) / rounds
		if math.Abs(got-want[i]) > 0.01 {
			t.Fatalf("entry %d frequency %.4f, want %.2f +/- 0.01", i, got, want[i])
		}
	}
}

func TestSelectDefaultsMissingWeightToOne(t *testing.T) {
	t.Parallel()

	entries := []Entry{{ID: 1}, {ID: 2}, {ID: 3, Weight: weight(2)}}
	tests := []struct {
		draw float64
		want int
	}{
		{0, 0},
		{0.25, 0},
		{0.2500001, 1},
		{0.5, 1},
		{0.75, 2},
		{0.999999, 2},
	}
	for _, tt := range tests {
		got, err := Select(entries, tt.draw, false)
		if err != nil {
			t.Fatalf("select(%v): %v", tt.draw, err)
		}
		if got != tt.want {
			t.Fatalf("select(%v) = %d, want %d", tt.draw, got, tt.want)
		}
	}
}

func TestSelectZeroWeightNeverChosenAtBoundaries(t *testing.T) {
	t.Parallel()

	entries := []Entry{{ID: 1, Weight: weight(0)}, {ID: 2, Weight: weight(1)}, {ID: 3, Weight: weight(0)}}
	for _, draw := range []float64{0, 0.5, math.Nextafter(1, 0)} {
		got, err := Select(entries, draw, false)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if got != 1 {
			t.Fatalf("select(%v) = %d, want 1", draw, got)
		}
	}
}

func TestSelectInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []Entry
		draw    float64
		losing  bool
	}{
		{name: "empty", entries: nil},
		{name: "all zero", entries: []Entry{{Weight: weight(0)}, {Weight: weight(0)}}},
		{name: "negative weight", entries: []Entry{{Weight: weight(-1)}, {Weight: weight(2)}}},
		{name: "draw out of range", entries: []Entry{{}}, draw: 1},
		{name: "no losing entries", entries: []Entry{{IsLosing: false}}, losing: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Select(tt.entries, tt.draw, tt.losing); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSelectForceLosingOnly(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{ID: 1, Weight: weight(100)},
		{ID: 2, IsLosing: true, Weight: weight(0)},
		{ID: 3},
		{ID: 4, IsLosing: true},
	}
	src := rand.New(rand.NewPCG(3, 5))
	seen := map[int]int{}
	for i := 0; i < 10_000; i++ {
		idx, err := Pick(entries, src, true)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if !entries[idx].IsLosing {
			t.Fatalf("forceLosingOnly returned winning entry %d", idx)
		}
		seen[idx]++
	}
	for _, idx := range []int{1, 3} {
		share := float64(seen[idx]) / 10_000
		if math.Abs(share-0.5) > 0.03 {
			t.Fatalf("losing entry %d share %.3f, want about 0.5", idx, share)
		}
	}
}
