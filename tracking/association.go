package tracking

import (
	"landmarktracker/utils"
)

// Associate merges the previous cycle's tracked regions with freshly
// detected ones, deduplicating by overlap similarity.
//
// For each previous region, in order, the first unconsumed fresh region
// with similarity >= threshold is absorbed: the previous region wins
// because it already carries tracking continuity, and the duplicate
// detection is discarded. Previous regions with no match are kept as-is.
// Fresh regions nobody absorbed are appended afterwards, in their
// original order, as newly discovered entities.
//
// The matching is greedy and order-dependent: the first candidate
// meeting the threshold is taken even if a later one would overlap more
// tightly. Every input region appears in the output exactly once, either
// directly or absorbed, so the output length is at most
// len(previous)+len(fresh).
func Associate(previous, fresh []utils.Region, threshold float64) []utils.Region {
	merged := make([]utils.Region, 0, len(previous)+len(fresh))
	consumed := make([]bool, len(fresh))

	for _, prev := range previous {
		for i, f := range fresh {
			if consumed[i] {
				continue
			}
			if utils.OverlapSimilarity(prev, f) >= threshold {
				consumed[i] = true
				break
			}
		}
		merged = append(merged, prev)
	}

	for i, f := range fresh {
		if !consumed[i] {
			merged = append(merged, f)
		}
	}

	return merged
}
