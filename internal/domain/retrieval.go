package domain

import "sort"

// Hit is a retrieved passage with its similarity score.
// Scores are cosine similarities clamped to [0, 1].
type Hit struct {
	Passage Passage
	Score   float64
}

// RankHits orders hits by score descending, ties broken by passage id
// ascending so that retrieval output is deterministic.
func RankHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Passage.ID < hits[j].Passage.ID
	})
}
