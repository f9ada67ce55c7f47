package wheel

import "math"

const (
	// MinFullSpins is the smallest number of whole turns added to a spin.
	MinFullSpins = 5
	// MaxFullSpins is the largest number of whole turns added to a spin.
	MaxFullSpins = 7
)

// SegmentAngle returns the angular width of one of n segments.
func SegmentAngle(n int) float64 {
	if n <= 0 {
		return 0
	}
	return 360 / float64(n)
}

// Plan returns the rotation delta that stops the pointer inside segment index.
//
// delta = fullSpins*360 + (360 - index*s) - s/2 + jitter, with s = 360/n and jitter in [0, s/2).
// The wheel is assumed to start at a whole-turn offset; see Wheel.Spin for cumulative use.
func Plan(index, n, fullSpins int, jitter float64) (float64, error) {
	if n <= 0 || index < 0 || index >= n {
		return 0, ErrInvalidInput
	}
	if fullSpins < MinFullSpins || fullSpins > MaxFullSpins {
		return 0, ErrInvalidInput
	}
	s := SegmentAngle(n)
	if math.IsNaN(jitter) || jitter < 0 || jitter >= s/2 {
		return 0, ErrInvalidInput
	}
	return float64(fullSpins)*360 + (360 - float64(index)*s) - s/2 + jitter, nil
}

// PlanRandom draws fullSpins and jitter from src and calls Plan.
func PlanRandom(index, n int, src Source) (float64, error) {
	if src == nil {
		return 0, ErrInvalidInput
	}
	fullSpins := MinFullSpins + src.IntN(MaxFullSpins-MinFullSpins+1)
	jitter := src.Float64() * SegmentAngle(n) * 0.5
	return Plan(index, n, fullSpins, jitter)
}

// PointerAngle returns the wheel-frame angle sitting under the 12 o'clock pointer
// after the wheel has been turned clockwise by rotation degrees.
func PointerAngle(rotation float64) float64 {
	a := math.Mod(-rotation, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// SegmentAt returns the segment index that contains a wheel-frame angle.
func SegmentAt(angle float64, n int) int {
	if n <= 0 {
		return -1
	}
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	idx := int(a / SegmentAngle(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// Wheel tracks the cumulative rotation of one wheel instance.
type Wheel struct {
	rotation float64
}

// NewWheel returns a wheel resting at the given cumulative rotation.
func NewWheel(rotation float64) *Wheel {
	return &Wheel{rotation: rotation}
}

// Rotation returns the cumulative rotation in degrees.
func (w *Wheel) Rotation() float64 {
	return w.rotation
}

// Spin advances the wheel so the pointer stops inside segment index and returns the new rotation.
// The current offset within a turn is removed first, so the rotation always grows.
func (w *Wheel) Spin(index, n int, src Source) (float64, error) {
	delta, err := PlanRandom(index, n, src)
	if err != nil {
		return w.rotation, err
	}
	offset := math.Mod(w.rotation, 360)
	if offset < 0 {
		offset += 360
	}
	w.rotation = (w.rotation - offset) + delta
	return w.rotation, nil
}
