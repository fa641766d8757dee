// Package relative scores whole trajectories against each other so a
// group of rollouts from the same prompt can be ranked instead of
// trusting absolute reward magnitudes.
package relative

// #region imports
import (
	"log"
	"math"

	"github.com/agentcredit/go-credit/internal/quality"
	"github.com/agentcredit/go-credit/internal/reward"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #endregion

// #region trajectory-reward

// TrajectoryReward computes a single composite reward for a finished
// trajectory from its summary fields plus the quality heuristics over
// its steps.
func TrajectoryReward(traj trajectory.Trajectory) float64 {
	var fmtSum, rsnSum float64
	totalActions := 0
	successfulActions := 0
	for _, s := range traj.Steps {
		f, r := quality.DetailedTickQuality(s.LLMCalls, s.Action)
		fmtSum += f
		rsnSum += r
		if s.Action != nil && s.Action.ActionType != "wait" {
			totalActions++
			if s.Action.Success {
				successfulActions++
			}
		}
	}
	fmtAvg, rsnAvg := 0.0, 0.0
	if len(traj.Steps) > 0 {
		n := float64(len(traj.Steps))
		fmtAvg, rsnAvg = fmtSum/n, rsnSum/n
	}

	// The summary records final balance and PnL; the start is implied.
	startBalance := traj.FinalBalance - traj.FinalPnL
	if len(traj.Steps) > 0 && traj.Steps[0].EnvironmentState.AgentBalance > 0 {
		startBalance = traj.Steps[0].EnvironmentState.AgentBalance
	}

	in := reward.Inputs{
		FinalPnL:          traj.FinalPnL,
		StartingBalance:   startBalance,
		EndBalance:        traj.FinalBalance,
		FormatScore:       fmtAvg,
		ReasoningScore:    rsnAvg,
		Steps:             len(traj.Steps),
		TradesExecuted:    traj.TradesExecuted,
		SuccessfulTrades:  traj.SuccessfulTrades,
		TotalActions:      totalActions,
		SuccessfulActions: successfulActions,
	}
	return reward.Composite(in, reward.DefaultCompositeWeights())
}

// #endregion trajectory-reward

// #region score-group

// ScoreGroup turns a group of trajectories into relative scores in
// [0,1]. Trajectories are first scored with the composite reward and
// then ranked; when the composite collapses to a single value for the
// whole group the ranking carries no information, so scoring falls
// back to min-max normalized final PnL.
func ScoreGroup(group []trajectory.Trajectory) []float64 {
	rewards := make([]float64, len(group))
	for i, traj := range group {
		rewards[i] = TrajectoryReward(traj)
	}

	if degenerate(rewards) {
		log.Printf("[RELATIVE] composite rewards degenerate for group of %d, falling back to PnL min-max", len(group))
		return pnlMinMax(group)
	}

	return reward.RelativeScores(rewards)
}

// degenerate reports whether every value is (numerically) identical.
func degenerate(vals []float64) bool {
	if len(vals) < 2 {
		return false
	}
	for _, v := range vals[1:] {
		if math.Abs(v-vals[0]) > 1e-9 {
			return false
		}
	}
	return true
}

// pnlMinMax maps final PnL onto [0,1] within the group. A group that
// is flat even on PnL gets uniform 0.5 scores.
func pnlMinMax(group []trajectory.Trajectory) []float64 {
	scores := make([]float64, len(group))
	if len(group) == 0 {
		return scores
	}

	lo, hi := group[0].FinalPnL, group[0].FinalPnL
	for _, traj := range group[1:] {
		if traj.FinalPnL < lo {
			lo = traj.FinalPnL
		}
		if traj.FinalPnL > hi {
			hi = traj.FinalPnL
		}
	}

	span := hi - lo
	if span < 1e-9 {
		for i := range scores {
			scores[i] = 0.5
		}
		return scores
	}
	for i, traj := range group {
		scores[i] = (traj.FinalPnL - lo) / span
	}
	return scores
}

// #endregion score-group

// #region centered

// CenteredScores subtracts the group mean, producing the advantage
// signal a policy-gradient step consumes. Groups smaller than two are
// returned as zeros since no relative signal exists.
func CenteredScores(scores []float64) []float64 {
	centered := make([]float64, len(scores))
	if len(scores) < 2 {
		return centered
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	for i, s := range scores {
		centered[i] = s - mean
	}
	return centered
}

// #endregion centered
