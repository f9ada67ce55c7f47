package wheel

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestPlanLandsInsideSelectedSegment(t *testing.T) {
	t.Parallel()

	const eps = 1e-9
	for n := 2; n <= 20; n++ {
		s := SegmentAngle(n)
		// delta is affine in jitter, so the closed interval ends bound every draw.
		jitters := []float64{0, s / 4, s / 2 * (1 - 1e-9)}
		for i := 0; i < n; i++ {
			for fullSpins := MinFullSpins; fullSpins <= MaxFullSpins; fullSpins++ {
				for _, j := range jitters {
					delta, err := Plan(i, n, fullSpins, j)
					if err != nil {
						t.Fatalf("plan(%d,%d,%d,%v): %v", i, n, fullSpins, j, err)
					}
					reading := PointerAngle(delta)
					want := (float64(i)+0.5)*s - j
					if math.Abs(reading-want) > eps {
						t.Fatalf("n=%d i=%d spins=%d jitter=%v: pointer at %.12f, want %.12f", n, i, fullSpins, j, reading, want)
					}
					if reading <= float64(i)*s || reading >= float64(i+1)*s {
						t.Fatalf("n=%d i=%d: pointer %.12f outside [%v,%v)", n, i, reading, float64(i)*s, float64(i+1)*s)
					}
					if got := SegmentAt(reading, n); got != i {
						t.Fatalf("n=%d i=%d: SegmentAt = %d", n, i, got)
					}
				}
			}
		}
	}
}

func TestPlanRejectsOutOfRangeArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		index, n  int
		fullSpins int
		jitter    float64
	}{
		{name: "no segments", index: 0, n: 0, fullSpins: 5},
		{name: "negative index", index: -1, n: 4, fullSpins: 5},
		{name: "index past end", index: 4, n: 4, fullSpins: 5},
		{name: "too few spins", index: 0, n: 4, fullSpins: 4},
		{name: "too many spins", index: 0, n: 4, fullSpins: 8},
		{name: "jitter at half segment", index: 0, n: 4, fullSpins: 5, jitter: 45},
		{name: "negative jitter", index: 0, n: 4, fullSpins: 5, jitter: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Plan(tt.index, tt.n, tt.fullSpins, tt.jitter); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPlanRandomDrawsWithinBounds(t *testing.T) {
	t.Parallel()

	src := rand.New(rand.NewPCG(1, 2))
	n := 6
	s := SegmentAngle(n)
	for k := 0; k < 5_000; k++ {
		i := src.IntN(n)
		delta, err := PlanRandom(i, n, src)
		if err != nil {
			t.Fatalf("plan random: %v", err)
		}
		low := float64(MinFullSpins)*360 + 360 - float64(i)*s - s/2
		high := float64(MaxFullSpins)*360 + 360 - float64(i)*s
		if delta < low || delta >= high {
			t.Fatalf("delta %.4f outside [%.4f,%.4f)", delta, low, high)
		}
	}
}

func TestWheelRotationOnlyIncreases(t *testing.T) {
	t.Parallel()

	src := rand.New(rand.NewPCG(42, 99))
	w := NewWheel(0)
	prev := w.Rotation()
	for k := 0; k < 2_000; k++ {
		n := 2 + src.IntN(19)
		i := src.IntN(n)
		rot, err := w.Spin(i, n, src)
		if err != nil {
			t.Fatalf("spin: %v", err)
		}
		if rot <= prev {
			t.Fatalf("spin %d: rotation went from %.4f to %.4f", k, prev, rot)
		}
		if got := SegmentAt(PointerAngle(rot), n); got != i {
			t.Fatalf("spin %d: pointer in segment %d, want %d (rotation %.6f)", k, got, i, rot)
		}
		prev = rot
	}
}

func TestWheelSpinKeepsRotationOnError(t *testing.T) {
	t.Parallel()

	w := NewWheel(725)
	if _, err := w.Spin(3, 3, rand.New(rand.NewPCG(1, 1))); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if w.Rotation() != 725 {
		t.Fatalf("rotation changed to %v", w.Rotation())
	}
}

func TestPointerAngleNormalizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rotation float64
		want     float64
	}{
		{0, 0},
		{90, 270},
		{360, 0},
		{-90, 90},
		{1170, 270},
	}
	for _, tt := range tests {
		if got := PointerAngle(tt.rotation); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("PointerAngle(%v) = %v, want %v", tt.rotation, got, tt.want)
		}
	}
}
