package replay

import (
	"fmt"
	"math"

	"github.com/agentcredit/go-credit/internal/attribution"
	"github.com/agentcredit/go-credit/internal/relative"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #region types

// Result captures the outcome of replaying one trajectory.
type Result struct {
	TrajectoryID string
	Score        float64
	TickResults  []attribution.TickResult
	Mismatches   []string
}

// Passed reports whether the trajectory matched its expectations.
func (r Result) Passed() bool {
	return len(r.Mismatches) == 0
}

// Summary aggregates a replay run.
type Summary struct {
	TotalTrajectories int
	Passed            int
	Failed            int
	Results           []Result
}

// Ok reports whether every trajectory matched.
func (s Summary) Ok() bool {
	return s.Failed == 0
}

// #endregion types

// #region run

// Run replays a fixture: scores the trajectory cohort, attributes every
// tick, and diffs the outputs against the expectations. Operates
// entirely in-memory; nothing is persisted.
func Run(f *Fixture) Summary {
	attributor := attribution.New(f.AttributionConfig())
	scores := relative.ScoreGroup(f.Trajectories)

	expected := make(map[string]FixtureExpectation, len(f.Expected))
	for _, e := range f.Expected {
		expected[e.TrajectoryID] = e
	}

	summary := Summary{TotalTrajectories: len(f.Trajectories)}
	for i, traj := range f.Trajectories {
		res := Result{TrajectoryID: traj.TrajectoryID, Score: scores[i]}

		ticks := make([]trajectory.Tick, len(traj.Steps))
		marks := make([][]attribution.Mark, len(traj.Steps))
		for j, s := range traj.Steps {
			ticks[j] = trajectory.TickFromStep(traj.AgentID, s)
			marks[j] = attribution.MarkCalls(s.LLMCalls, s.Action)
		}
		res.TickResults = attributor.AttributeBatch(ticks, marks)

		if exp, ok := expected[traj.TrajectoryID]; ok {
			res.Mismatches = diff(res, exp, f.Tolerance)
		}

		if res.Passed() {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
	}
	return summary
}

// diff compares one trajectory's replay output against its expectation.
func diff(res Result, exp FixtureExpectation, tol float64) []string {
	var mismatches []string

	if exp.Score != nil && math.Abs(res.Score-*exp.Score) > tol {
		mismatches = append(mismatches,
			fmt.Sprintf("score: got %.6f, want %.6f", res.Score, *exp.Score))
	}

	byTick := make(map[int]attribution.TickResult, len(res.TickResults))
	for _, tr := range res.TickResults {
		byTick[tr.TickNumber] = tr
	}

	for _, want := range exp.TickRewards {
		got, ok := byTick[want.Tick]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("tick %d: not present in replay", want.Tick))
			continue
		}
		if got.HasOutcome != want.HasOutcome {
			mismatches = append(mismatches,
				fmt.Sprintf("tick %d: hasOutcome got %v, want %v", want.Tick, got.HasOutcome, want.HasOutcome))
		}
		if len(got.Calls) != len(want.Rewards) {
			mismatches = append(mismatches,
				fmt.Sprintf("tick %d: %d call rewards, want %d", want.Tick, len(got.Calls), len(want.Rewards)))
			continue
		}
		for i, w := range want.Rewards {
			if math.Abs(got.Calls[i].Reward-w) > tol {
				mismatches = append(mismatches,
					fmt.Sprintf("tick %d call %d: reward got %.6f, want %.6f", want.Tick, i, got.Calls[i].Reward, w))
			}
		}
	}

	return mismatches
}

// #endregion run

// #region export

// Export builds a fixture from live trajectories by running the
// pipeline once and freezing its outputs as the expectations. Used to
// snapshot current behavior before a change.
func Export(description string, trajs []trajectory.Trajectory, cfg attribution.Config) *Fixture {
	f := &Fixture{
		Description:  description,
		Attribution:  &cfg,
		Tolerance:    DefaultTolerance,
		Trajectories: trajs,
	}
	summary := Run(f)
	for _, res := range summary.Results {
		exp := FixtureExpectation{TrajectoryID: res.TrajectoryID}
		score := res.Score
		exp.Score = &score
		for _, tr := range res.TickResults {
			rewards := make([]float64, len(tr.Calls))
			for i, c := range tr.Calls {
				rewards[i] = c.Reward
			}
			exp.TickRewards = append(exp.TickRewards, FixtureTickCalls{
				Tick:       tr.TickNumber,
				HasOutcome: tr.HasOutcome,
				Rewards:    rewards,
			})
		}
		f.Expected = append(f.Expected, exp)
	}
	return f
}

// #endregion export
