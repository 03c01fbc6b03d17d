// Package position implements ordering arithmetic for sibling sets such as
// stages in a board, tasks in a stage and items in a list. Positions are
// zero-based integers; they are dense right after appends and reorders but
// deletes leave gaps.
package position

import "taskboard/api/internal/apperr"

// Empty is the maximum position of a set with no members.
const Empty = -1

// Next returns the position for an appended sibling given the current
// maximum, which is Empty for an empty set.
func Next(max int) int {
	if max < Empty {
		max = Empty
	}
	return max + 1
}

// Band is a closed range of positions that must shift by Delta when an
// entity moves.
type Band struct {
	From  int
	To    int
	Delta int
}

// Contains reports whether p lies inside the band.
func (b Band) Contains(p int) bool {
	return p >= b.From && p <= b.To
}

// Plan computes the sibling shift needed to move an entity from old to
// target. ok is false when the move is a no-op.
func Plan(old, target int) (band Band, ok bool) {
	switch {
	case target > old:
		return Band{From: old + 1, To: target, Delta: -1}, true
	case target < old:
		return Band{From: target, To: old - 1, Delta: 1}, true
	default:
		return Band{}, false
	}
}

// ValidateTarget rejects reorder targets outside [0, max].
func ValidateTarget(target, max int) error {
	if target < 0 {
		return apperr.Validation("position must be zero or greater")
	}
	if target > max {
		return apperr.Validation("position must be at most %d", max)
	}
	return nil
}

// Reorder applies a move to an in-memory slice of positions indexed by
// entity, returning the new positions. idx is the moved entity.
func Reorder(positions []int, idx, target int) []int {
	out := make([]int, len(positions))
	copy(out, positions)
	band, ok := Plan(positions[idx], target)
	if !ok {
		return out
	}
	for i, p := range positions {
		if i == idx {
			continue
		}
		if band.Contains(p) {
			out[i] = p + band.Delta
		}
	}
	out[idx] = target
	return out
}

// Max returns the highest position in ps, or Empty.
func Max(ps []int) int {
	max := Empty
	for _, p := range ps {
		if p > max {
			max = p
		}
	}
	return max
}
