package wheel

import (
	"errors"
	"math"
)

// ErrInvalidInput reports a degenerate entry list or an out-of-range argument.
var ErrInvalidInput = errors.New("wheel: invalid input")

// Source supplies the random draws used by selection and planning.
// *math/rand/v2.Rand satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Entry is one prize slot on the wheel.
type Entry struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Color       string   `json:"color"`
	IsLosing    bool     `json:"is_losing"`
	Weight      *float64 `json:"probability_weight,omitempty"` // Nil means 1.
}

// EffectiveWeight returns the entry weight, defaulting to 1 when unset.
func (e Entry) EffectiveWeight() float64 {
	if e.Weight == nil {
		return 1
	}
	return *e.Weight
}

// Select returns the index of the entry chosen by draw, a uniform value in [0,1).
//
// The draw is scaled by the total weight and the first entry whose running sum reaches it wins.
// Zero-weight entries are skipped so they can never be chosen. With forceLosingOnly the pool is
// restricted to losing entries and the draw picks uniformly among them.
func Select(entries []Entry, draw float64, forceLosingOnly bool) (int, error) {
	if len(entries) == 0 {
		return -1, ErrInvalidInput
	}
	if math.IsNaN(draw) || draw < 0 || draw >= 1 {
		return -1, ErrInvalidInput
	}

	if forceLosingOnly {
		losing := make([]int, 0, len(entries))
		for i := range entries {
			if entries[i].IsLosing {
				losing = append(losing, i)
			}
		}
		if len(losing) == 0 {
			return -1, ErrInvalidInput
		}
		pos := int(draw * float64(len(losing)))
		if pos >= len(losing) {
			pos = len(losing) - 1
		}
		return losing[pos], nil
	}

	total := 0.0
	last := -1
	for i := range entries {
		w := entries[i].EffectiveWeight()
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return -1, ErrInvalidInput
		}
		if w > 0 {
			total += w
			last = i
		}
	}
	if total <= 0 {
		return -1, ErrInvalidInput
	}

	scaled := draw * total
	cumulative := 0.0
	for i := range entries {
		w := entries[i].EffectiveWeight()
		if w == 0 {
			continue
		}
		cumulative += w
		if scaled <= cumulative {
			return i, nil
		}
	}
	// Rounding can leave scaled a hair above the final sum.
	return last, nil
}

// Pick draws from src and delegates to Select.
func Pick(entries []Entry, src Source, forceLosingOnly bool) (int, error) {
	if src == nil {
		return -1, ErrInvalidInput
	}
	return Select(entries, src.Float64(), forceLosingOnly)
}
