package reward

import "math"

// #region normalizer

// Normalizer keeps running mean/variance for z-scoring rewards across
// long-running batches without storing full history. Welford's online
// update keeps the variance numerically stable. Single writer.
type Normalizer struct {
	mean    float64
	varSum  float64 // sum of squared deltas (Welford M2)
	count   int
	epsilon float64
}

// NewNormalizer creates a Normalizer. epsilon guards the division when
// variance is near zero; pass 0 for the default 1e-8.
func NewNormalizer(epsilon float64) *Normalizer {
	if epsilon <= 0 {
		epsilon = 1e-8
	}
	return &Normalizer{varSum: 1.0, epsilon: epsilon}
}

// Update folds one reward into the running statistics.
func (n *Normalizer) Update(reward float64) {
	n.count++
	delta := reward - n.mean
	n.mean += delta / float64(n.count)
	delta2 := reward - n.mean
	n.varSum += delta * delta2
}

// Normalize z-scores a reward against the running statistics. With fewer
// than two observations the raw value is returned unmodified.
func (n *Normalizer) Normalize(reward float64) float64 {
	if n.count < 2 {
		return reward
	}
	std := math.Sqrt(n.varSum/float64(n.count-1) + n.epsilon)
	return (reward - n.mean) / std
}

// UpdateBatch folds a batch of rewards into the running statistics.
func (n *Normalizer) UpdateBatch(rewards []float64) {
	for _, r := range rewards {
		n.Update(r)
	}
}

// NormalizeBatch z-scores a batch against the current statistics.
func (n *Normalizer) NormalizeBatch(rewards []float64) []float64 {
	out := make([]float64, len(rewards))
	for i, r := range rewards {
		out[i] = n.Normalize(r)
	}
	return out
}

// Count reports how many rewards have been observed.
func (n *Normalizer) Count() int {
	return n.count
}

// #endregion normalizer
