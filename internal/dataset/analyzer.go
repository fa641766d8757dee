package dataset

import (
	"fmt"

	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #region correlation

const (
	highScoreThreshold = 0.7
	lowScoreThreshold  = 0.3
)

// CallProfile captures the characteristics of one call from a trajectory
// at either end of the score distribution.
type CallProfile struct {
	Purpose        trajectory.Purpose
	ResponseLength int
	HasReasoning   bool
}

// CorrelationReport summarizes which prompt purposes dominate the
// high-scoring and low-scoring trajectories, to guide which purposes to
// focus training on.
type CorrelationReport struct {
	CountByPurpose     map[trajectory.Purpose]int
	AvgLengthByPurpose map[trajectory.Purpose]float64

	HighScore []CallProfile
	LowScore  []CallProfile
}

// AnalyzeCorrelation walks every call in the cohort and relates its
// characteristics to the trajectory's score. Scores must parallel
// trajectories.
func AnalyzeCorrelation(trajectories []trajectory.Trajectory, scores []float64) (CorrelationReport, error) {
	if len(trajectories) != len(scores) {
		return CorrelationReport{}, fmt.Errorf(
			"trajectory count (%d) != score count (%d)", len(trajectories), len(scores))
	}

	report := CorrelationReport{
		CountByPurpose:     make(map[trajectory.Purpose]int),
		AvgLengthByPurpose: make(map[trajectory.Purpose]float64),
	}
	lengthSums := make(map[trajectory.Purpose]int)

	for i, traj := range trajectories {
		score := scores[i]
		for _, step := range traj.Steps {
			for _, call := range step.LLMCalls {
				report.CountByPurpose[call.Purpose]++
				lengthSums[call.Purpose] += len(call.Response)

				switch {
				case score >= highScoreThreshold:
					report.HighScore = append(report.HighScore, profileOf(call))
				case score <= lowScoreThreshold:
					report.LowScore = append(report.LowScore, profileOf(call))
				}
			}
		}
	}

	for p, sum := range lengthSums {
		if n := report.CountByPurpose[p]; n > 0 {
			report.AvgLengthByPurpose[p] = float64(sum) / float64(n)
		}
	}

	return report, nil
}

func profileOf(call trajectory.LLMCall) CallProfile {
	return CallProfile{
		Purpose:        call.Purpose,
		ResponseLength: len(call.Response),
		HasReasoning:   call.Reasoning != "",
	}
}

// #endregion correlation
