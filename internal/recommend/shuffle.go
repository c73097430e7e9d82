// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package recommend

import "math/rand"

// biasedShuffle reorders items in place with a Fisher-Yates walk whose
// swap distance shrinks with the item's score: the span below position
// i is scaled by (1 - score*0.5), so a score-1.0 item moves at most
// half the usual distance while a score-0 item shuffles freely. The
// non-uniformity is intentional; it breaks up source grouping without
// burying the strongest items.
func biasedShuffle(items []Item, rng *rand.Rand) {
	for i := len(items) - 1; i > 0; i-- {
		span := int(float64(i) * (1 - items[i].Score*0.5))
		if span < 0 {
			span = 0 // Unclamped trending scores can exceed 1.
		}
		j := i - rng.Intn(span+1)
		items[i], items[j] = items[j], items[i]
	}
}
