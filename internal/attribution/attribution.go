// Package attribution splits a tick's aggregate reward among the LLM
// calls that produced it. A reasoning call sets up the decision, an
// action call makes it, a response call handles communication, an
// evaluation call assesses it; each purpose gets a weighted pool of the
// tick reward, adjusted by its own outcome signal.
package attribution

// #region imports
import (
	"log"
	"math"

	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #endregion

// #region attributor

// Attributor assigns per-call rewards from tick outcomes. It holds only
// validated weights; every attribution pass is a pure function of its
// inputs.
type Attributor struct {
	weights map[trajectory.Purpose]float64
}

// New validates the purpose weights and builds an Attributor. Weights
// that do not sum to ~1.0 are renormalized with a logged warning; this
// is a configuration inconsistency, never a fatal error.
func New(cfg Config) *Attributor {
	weights := map[trajectory.Purpose]float64{
		trajectory.PurposeReasoning:  cfg.Reasoning,
		trajectory.PurposeAction:     cfg.Action,
		trajectory.PurposeResponse:   cfg.Response,
		trajectory.PurposeEvaluation: cfg.Evaluation,
		trajectory.PurposeOther:      cfg.Other,
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if math.Abs(total-1.0) > 0.01 && total > 0 {
		log.Printf("[ATTRIB] purpose weights sum to %.3f, renormalizing", total)
		for k := range weights {
			weights[k] /= total
		}
	}

	return &Attributor{weights: weights}
}

// #endregion attributor

// #region mark-calls

// MarkCalls computes led-to-action marks for a tick's calls: the last
// action-purpose call produced the tick's action, and every reasoning
// call that preceded at least one action call is credited as its
// precursor. Wait actions mark nothing.
func MarkCalls(calls []trajectory.LLMCall, action *trajectory.Action) []Mark {
	marks := make([]Mark, len(calls))
	if action == nil || action.ActionType == "wait" {
		return marks
	}

	lastAction := -1
	for i, c := range calls {
		if c.Purpose == trajectory.PurposeAction {
			lastAction = i
		}
	}

	for i, c := range calls {
		led := false
		if i == lastAction {
			led = true
		} else if c.Purpose == trajectory.PurposeReasoning && lastAction >= 0 {
			led = true
		}
		if led {
			marks[i] = Mark{LedToAction: true, ActionSuccess: action.Success, ActionKnown: true}
		}
	}
	return marks
}

// #endregion mark-calls

// #region attribute-tick

// AttributeTick splits one tick's global reward across its calls.
// marks may be nil (no temporal adjustment) or must match the call
// count. A tick without an outcome yields zero rewards and
// HasOutcome=false: no attribution without a verdict.
func (a *Attributor) AttributeTick(tick trajectory.Tick, marks []Mark) TickResult {
	res := TickResult{TickNumber: tick.TickNumber}
	if len(tick.LLMCalls) == 0 {
		return res
	}

	res.Calls = make([]CallResult, len(tick.LLMCalls))
	for i, c := range tick.LLMCalls {
		res.Calls[i] = CallResult{CallIndex: i, Purpose: c.Purpose}
	}

	if tick.Outcome == nil {
		return res
	}
	res.HasOutcome = true

	if len(marks) != len(tick.LLMCalls) {
		marks = make([]Mark, len(tick.LLMCalls))
	}

	outcome := *tick.Outcome

	// Bucket call indices by purpose.
	buckets := map[trajectory.Purpose][]int{}
	for i, c := range tick.LLMCalls {
		buckets[c.Purpose] = append(buckets[c.Purpose], i)
	}

	for _, purpose := range trajectory.Purposes {
		indices := buckets[purpose]
		if len(indices) == 0 {
			continue
		}

		pool := tick.GlobalReward * a.weights[purpose]
		pool = adjustPool(purpose, pool, tick.GlobalReward, outcome)

		share := pool / float64(len(indices))
		for _, i := range indices {
			res.Calls[i].Reward = share * temporalMultiplier(marks[i])
		}
	}

	return res
}

// adjustPool scales a purpose's reward pool by its outcome signal.
// The switch is exhaustive over the purpose enum: adding a purpose
// forces a decision here.
func adjustPool(purpose trajectory.Purpose, pool, globalReward float64, outcome trajectory.TickOutcome) float64 {
	switch purpose {
	case trajectory.PurposeAction:
		if outcome.TradesExecuted > 0 {
			successRate := float64(outcome.TradesSuccessful) / float64(outcome.TradesExecuted)
			pool *= 0.5 + 0.5*successRate

			pnlBonus := clamp(outcome.PnLDelta/100.0, -1, 1)
			pool += pnlBonus * 0.2 * math.Abs(globalReward)
		}
	case trajectory.PurposeResponse:
		if outcome.ResponsesSent > 0 {
			engagementRate := math.Min(1.0, float64(outcome.EngagementReceived)/float64(outcome.ResponsesSent*5))
			pool *= 0.5 + 0.5*engagementRate
		}
	case trajectory.PurposeReasoning:
		// Reasoning is credited only in proportion to how well the
		// resulting action performed; no trades, no credit.
		if outcome.TradesExecuted > 0 {
			successRate := float64(outcome.TradesSuccessful) / float64(outcome.TradesExecuted)
			pool *= successRate
		}
	case trajectory.PurposeEvaluation, trajectory.PurposeOther:
		// Unadjusted.
	}
	return pool
}

// temporalMultiplier boosts calls that led to a successful action and
// penalizes those that led to a known failure.
func temporalMultiplier(m Mark) float64 {
	switch {
	case m.LedToAction && m.ActionKnown && m.ActionSuccess:
		return 1.2
	case m.LedToAction && m.ActionKnown && !m.ActionSuccess:
		return 0.6
	default:
		return 1.0
	}
}

// #endregion attribute-tick

// #region attribute-batch

// AttributeBatch attributes every tick independently, then mean-centers
// attributed rewards per purpose across the WHOLE batch. GRPO needs
// advantages centered within the comparison population; centering per
// tick would destroy the cross-tick relative signal. marks may be nil
// or must be parallel to ticks.
func (a *Attributor) AttributeBatch(ticks []trajectory.Tick, marks [][]Mark) []TickResult {
	results := make([]TickResult, len(ticks))
	for i, tick := range ticks {
		var m []Mark
		if i < len(marks) {
			m = marks[i]
		}
		results[i] = a.AttributeTick(tick, m)
	}

	// Group every call result by purpose across the batch.
	byPurpose := map[trajectory.Purpose][]*CallResult{}
	for i := range results {
		for j := range results[i].Calls {
			cr := &results[i].Calls[j]
			byPurpose[cr.Purpose] = append(byPurpose[cr.Purpose], cr)
		}
	}

	for _, group := range byPurpose {
		if len(group) < 2 {
			continue
		}
		mean := 0.0
		for _, cr := range group {
			mean += cr.Reward
		}
		mean /= float64(len(group))
		for _, cr := range group {
			cr.Reward -= mean
		}
	}

	return results
}

// #endregion attribute-batch

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
