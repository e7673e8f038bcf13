// Package rotation implements the three pure rotation algorithms of the
// engine: Single, MultiPool, and Shuffle. None of these functions touch
// the clock, the provider, or any store -- they take live values and
// cursors in, and return the next values and cursor out, so they are
// testable in total isolation (spec scenarios S1-S4).
package rotation

// SingleResult is the outcome of one Single-kind selection.
type SingleResult struct {
	Target    string
	NewCursor int
}

// Single implements spec §4.5.1: pick the next pool entry after cursor,
// skipping one further step if that candidate would equal the record's
// current live value and an alternative exists.
//
// pool must have at least one entry; the config store rejects empty pools
// and pools with duplicate entries at load time, so the "both entries match the
// live value" degenerate case (spec §9, open question 1) cannot occur here.
func Single(pool []string, cursor int, live string) SingleResult {
	if len(pool) == 1 {
		return SingleResult{Target: pool[0], NewCursor: 0}
	}

	n := len(pool)
	idx := mod(cursor+1, n)
	candidate := pool[idx]
	if candidate == live {
		idx = mod(cursor+2, n)
		candidate = pool[idx]
	}
	return SingleResult{Target: candidate, NewCursor: idx}
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
