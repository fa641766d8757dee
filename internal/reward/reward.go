// Package reward converts raw financial and quality metrics into bounded
// scalar training signals. All functions are pure; the only state in the
// package is the online Normalizer.
package reward

// #region imports
import (
	"math"
	"sort"
	"strings"
)

// #endregion

// #region inputs

// Inputs collects the per-trajectory (or per-tick) metrics that feed the
// composite reward.
type Inputs struct {
	// Financial metrics
	FinalPnL        float64
	StartingBalance float64
	EndBalance      float64
	PnLVariance     float64
	MaxDrawdown     float64

	// Risk metrics
	MaxExposure  float64
	RiskyActions int

	// Quality scores from the quality package.
	// FormatScore lives in [-1, 0.5], ReasoningScore in [0, 1].
	FormatScore    float64
	ReasoningScore float64

	// Operational metrics
	Steps             int
	TradesExecuted    int
	SuccessfulTrades  int
	TotalActions      int
	SuccessfulActions int
}

// #endregion inputs

// #region pnl

// BankruptcyPenalty is deliberately far outside [-1, 1] so composite
// scoring can detect it and short-circuit.
const BankruptcyPenalty = -10.0

// PnL maps a balance change to [-1, 1], scaled so a 10% return hits the
// cap. An end balance at or below zero returns BankruptcyPenalty; a
// non-positive start balance returns 0 to guard the division.
func PnL(startBalance, endBalance float64) float64 {
	if endBalance <= 0 {
		return BankruptcyPenalty
	}
	if startBalance <= 0 {
		return 0
	}
	returnPct := (endBalance - startBalance) / startBalance
	return clamp(returnPct*10.0, -1, 1)
}

// #endregion pnl

// #region risk

var buyingVerbs = []string{"buy", "long", "open"}

// Risk penalizes opening new exposure when already over 80% exposed.
// Exposure is a caller-supplied fraction in [0, 1].
func Risk(exposure float64, actionType string) float64 {
	if actionType == "" {
		return 0
	}
	act := strings.ToLower(actionType)
	buying := false
	for _, v := range buyingVerbs {
		if strings.Contains(act, v) {
			buying = true
			break
		}
	}
	if exposure > 0.80 && buying {
		return -0.5
	}
	return 0
}

// #endregion risk

// #region sub-rewards

// legacyPnL is the trajectory-level PnL sub-reward: raw return fraction
// clamped to [-1, 1] without the 10x scaling.
func legacyPnL(in Inputs) float64 {
	if in.StartingBalance <= 0 {
		return 0
	}
	return clamp(in.FinalPnL/in.StartingBalance, -1, 1)
}

// riskAdjusted is a Sharpe-like sub-reward: PnL dampened by variance,
// minus half the drawdown fraction.
func riskAdjusted(in Inputs) float64 {
	base := legacyPnL(in)
	if in.PnLVariance > 0 {
		base = clamp(base/math.Sqrt(in.PnLVariance), -1, 1)
	}
	if in.MaxDrawdown > 0 && in.StartingBalance > 0 {
		base -= (in.MaxDrawdown / in.StartingBalance) * 0.5
	}
	return clamp(base, -1, 1)
}

// efficiency rewards achieving PnL with fewer actions.
func efficiency(in Inputs) float64 {
	base := legacyPnL(in)
	if in.TotalActions > 0 {
		return clamp(base/math.Log1p(float64(in.TotalActions)), -1, 1)
	}
	return base
}

// actionQuality is the plain action success rate, neutral 0.5 when no
// actions occurred.
func actionQuality(in Inputs) float64 {
	if in.TotalActions == 0 {
		return 0.5
	}
	return float64(in.SuccessfulActions) / float64(in.TotalActions)
}

// #endregion sub-rewards

// #region composite

// CompositeWeights controls the blend of the composite reward. PnL,
// Format and Reasoning drive the primary path; Risk, Efficiency and
// Quality only matter on the legacy path.
type CompositeWeights struct {
	PnL        float64
	Format     float64
	Reasoning  float64
	Risk       float64
	Efficiency float64
	Quality    float64
}

// DefaultCompositeWeights returns the standard 50/30/20 blend.
func DefaultCompositeWeights() CompositeWeights {
	return CompositeWeights{PnL: 0.5, Format: 0.3, Reasoning: 0.2}
}

// Composite blends PnL with quality scores into a [-1, 1] reward.
// Bankruptcy dominates: once the PnL score indicates a wiped-out balance
// the composite returns it unmodified, regardless of the other signals.
// When both quality scores are exactly zero the legacy four-way blend of
// sub-rewards is used instead, for compatibility with older recordings.
func Composite(in Inputs, w CompositeWeights) float64 {
	var pnlScore float64
	if in.EndBalance != in.StartingBalance {
		pnlScore = PnL(in.StartingBalance, in.EndBalance)
	} else {
		pnlScore = PnL(in.StartingBalance, in.StartingBalance+in.FinalPnL)
	}

	if pnlScore <= -5.0 {
		return pnlScore
	}

	if in.RiskyActions > 0 {
		pnlScore -= float64(in.RiskyActions) * 0.5
	}

	if in.FormatScore != 0 || in.ReasoningScore != 0 {
		total := w.PnL + w.Format + w.Reasoning
		if total == 0 {
			return 0
		}
		composite := (pnlScore*w.PnL + in.FormatScore*w.Format + in.ReasoningScore*w.Reasoning) / total
		return clamp(composite, -1, 1)
	}

	// Legacy path: quality scores never populated.
	lPnL, lRisk, lEff, lQual := w.PnL, w.Risk, w.Efficiency, w.Quality
	if w.Risk == 0 && w.Efficiency == 0 && w.Quality == 0 {
		lPnL, lRisk, lEff, lQual = 0.4, 0.3, 0.15, 0.15
	}
	total := lPnL + lRisk + lEff + lQual
	if total == 0 {
		return 0
	}
	composite := (lPnL*legacyPnL(in) +
		lRisk*riskAdjusted(in) +
		lEff*efficiency(in) +
		lQual*actionQuality(in)) / total
	return clamp(composite, -1, 1)
}

// #endregion composite

// #region relative-scores

// RelativeScores maps rewards to [0, 1] by rank within the group. The
// lowest reward gets 0, the highest 1. Fewer than two items all score a
// neutral 0.5. Robust to reward-scale drift across trajectories.
func RelativeScores(rewards []float64) []float64 {
	if len(rewards) < 2 {
		out := make([]float64, len(rewards))
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	idx := make([]int, len(rewards))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return rewards[idx[a]] < rewards[idx[b]] })

	n := len(rewards)
	scores := make([]float64, n)
	for rank, i := range idx {
		scores[i] = float64(rank) / float64(n-1)
	}
	return scores
}

// RankingToScores converts 1-is-best rankings to [0, 1] scores where
// higher is better.
func RankingToScores(rankings []int) []float64 {
	if len(rankings) < 2 {
		out := make([]float64, len(rankings))
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	n := len(rankings)
	scores := make([]float64, n)
	for i, r := range rankings {
		scores[i] = float64(n-r) / float64(n-1)
	}
	return scores
}

// Preference is one pairwise comparison: Winner beat Loser.
type Preference struct {
	Winner int
	Loser  int
}

// PairwisePreferencesToScores converts pairwise preferences to win-ratio
// scores, Bradley-Terry style. Items never compared score 0.5.
func PairwisePreferencesToScores(nItems int, prefs []Preference) []float64 {
	if nItems < 2 || len(prefs) == 0 {
		out := make([]float64, max(nItems, 0))
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	wins := make([]int, nItems)
	comparisons := make([]int, nItems)
	for _, p := range prefs {
		if p.Winner >= 0 && p.Winner < nItems {
			wins[p.Winner]++
			comparisons[p.Winner]++
		}
		if p.Loser >= 0 && p.Loser < nItems {
			comparisons[p.Loser]++
		}
	}

	scores := make([]float64, nItems)
	for i := range scores {
		if comparisons[i] > 0 {
			scores[i] = float64(wins[i]) / float64(comparisons[i])
		} else {
			scores[i] = 0.5
		}
	}
	return scores
}

// #endregion relative-scores

// #region helpers

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// #endregion helpers
