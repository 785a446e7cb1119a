package probe

import "math/rand/v2"

// generatePairs draws n pairs of distinct person ids from 1..people. The
// same seed always yields the same pairs.
func generatePairs(seed uint64, people, n, maxDepth int) []Pair {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pairs := make([]Pair, n)
	for i := range pairs {
		src := rng.IntN(people) + 1
		tgt := rng.IntN(people-1) + 1
		if tgt >= src {
			tgt++
		}
		pairs[i] = Pair{Source: int64(src), Target: int64(tgt), MaxDepth: maxDepth}
	}
	return pairs
}
