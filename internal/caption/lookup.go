package caption

import "sort"

// Locate returns the index of the cue whose [Start, End] interval contains t,
// or -1 if no cue is active at t. Runs in O(log n); it executes on every
// scheduling tick. Behavior for overlapping cues is undefined: the search
// returns whichever containing interval it lands on.
func Locate(cues []Cue, t float64) int {
	i := sort.Search(len(cues), func(i int) bool {
		return cues[i].Start > t
	})
	if i == 0 {
		return -1
	}
	if cues[i-1].End >= t {
		return i - 1
	}
	return -1
}

// LastStartAtOrBefore returns the highest index whose Start <= t, or -1 if
// every cue starts after t. Used to park the subtitle driver on the most
// recently passed cue while waiting out a gap.
func LastStartAtOrBefore(cues []Cue, t float64) int {
	i := sort.Search(len(cues), func(i int) bool {
		return cues[i].Start > t
	})
	return i - 1
}
