package tuning

import (
	"sort"

	"github.com/adi64/hyrise/utils"
)

// GreedySelector determines tuning operations as follows:
// choices are sorted by ascending desirability, then the selector
// repeatedly frees budget by rejecting the least desirable choices and
// fills unused budget by accepting the most desirable ones. When a new
// choice does not fit the budget, a run of the least desirable existing
// choices is sacrificed, but only if their combined desirability does not
// exceed the newcomer's.
type GreedySelector struct {
	// ConfidenceTiebreak orders desirability ties by evaluator confidence.
	ConfidenceTiebreak bool
	// MaxAccepts bounds the number of accept operations per pass.
	// Zero means unbounded.
	MaxAccepts int
}

// Select produces the ordered operation sequence for the given choices and
// budget. Within one swap the sacrificed rejects precede the accept, so the
// budget is never exceeded by more than the single accepted choice.
func (s *GreedySelector) Select(choices []Choice, budget float64) []Operation {
	operations := make([]Operation, 0, len(choices))
	if len(choices) == 0 {
		return operations
	}

	sorted := append([]Choice(nil), choices...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Desirability() != sorted[j].Desirability() {
			return sorted[i].Desirability() < sorted[j].Desirability()
		}
		if s.ConfidenceTiebreak && sorted[i].Confidence() != sorted[j].Confidence() {
			return sorted[i].Confidence() < sorted[j].Confidence()
		}
		return false
	})

	push := func(op Operation) {
		if !IsNull(op) {
			operations = append(operations, op)
		}
	}

	memoryInUse := 0.0
	for _, choice := range sorted {
		if choice.IsCurrentlyChosen() {
			memoryInUse += choice.Cost()
		}
	}

	suppressed := make(map[Choice]bool)
	accepts := 0
	worst, best := 0, len(sorted)-1

	for best >= worst {
		if sorted[worst].Desirability() < 0 && -sorted[worst].Desirability() > sorted[best].Desirability() {
			// rejecting the worst choice is more beneficial than accepting the best
			if sorted[worst].IsCurrentlyChosen() {
				utils.Debugf("selector: rejecting %v", sorted[worst])
				memoryInUse -= sorted[worst].Cost()
			}
			push(sorted[worst].Reject())
			worst++
			continue
		}
		if sorted[best].IsCurrentlyChosen() {
			// already in place; keep it
			push(sorted[best].Accept())
			best--
			continue
		}
		if suppressed[sorted[best]] || (s.MaxAccepts > 0 && accepts >= s.MaxAccepts) {
			push(sorted[best].Reject())
			best--
			continue
		}

		// determine the minimum desirability that must be sacrificed to
		// obtain enough budget for the new choice
		required := sorted[best].Cost() + memoryInUse - budget
		sacrificedDesirability := 0.0
		obtained := 0.0
		sacrifice := worst
		for obtained < required && sacrifice != best {
			if sorted[sacrifice].IsCurrentlyChosen() {
				sacrificedDesirability += sorted[sacrifice].Desirability()
				obtained += sorted[sacrifice].Cost()
			}
			sacrifice++
		}
		if obtained >= required && sacrificedDesirability <= sorted[best].Desirability() {
			// reject the sacrificed choices, then accept the better one
			for i := worst; i < sacrifice; i++ {
				if sorted[i].IsCurrentlyChosen() {
					utils.Debugf("selector: sacrificing %v", sorted[i])
					memoryInUse -= sorted[i].Cost()
				}
				push(sorted[i].Reject())
			}
			worst = sacrifice
			utils.Debugf("selector: accepting %v", sorted[best])
			push(sorted[best].Accept())
			memoryInUse += sorted[best].Cost()
			accepts++
			for _, invalidated := range sorted[best].Invalidates() {
				suppressed[invalidated] = true
			}
		} else {
			push(sorted[best].Reject())
		}
		best--
	}

	return operations
}
