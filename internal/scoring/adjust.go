package scoring

// Adjust bounds a model-suggested score relative to the prior score using the
// profile's per-turn rate limits, then clamps to [0,100].
//
// The point is resilience to noisy judgements: a single enthusiastic model
// response cannot jump a learner from 0 to 100, and a single harsh one cannot
// erase accumulated progress. This clamping applies only to model-suggested
// values; caller-supplied state is validated, never clamped.
func Adjust(suggested, current int, p Profile) int {
	upper := current + p.MaxIncrease()
	lower := current - p.MaxDecrease()
	if lower < 0 {
		lower = 0
	}

	bounded := clamp(suggested, lower, upper)
	return clamp(bounded, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
