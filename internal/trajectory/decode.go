package trajectory

// #region imports
import (
	"encoding/json"
	"fmt"
)

// #endregion

// #region decode

// Decode parses a recorded trajectory document. Unknown JSON fields are
// ignored; missing optional fields keep their zero defaults. Purposes are
// coerced to a known value so downstream switches stay exhaustive.
func Decode(data []byte) (Trajectory, error) {
	var t Trajectory
	if err := json.Unmarshal(data, &t); err != nil {
		return Trajectory{}, fmt.Errorf("parse trajectory: %w", err)
	}
	if t.TrajectoryID == "" {
		return Trajectory{}, fmt.Errorf("parse trajectory: missing trajectoryId")
	}
	Normalize(&t)
	return t, nil
}

// DecodeSteps parses a steps-only JSON array, as stored in the steps
// column of the trajectory store.
func DecodeSteps(data []byte) ([]Step, error) {
	var steps []Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse steps: %w", err)
	}
	for i := range steps {
		normalizeStep(&steps[i])
	}
	return steps, nil
}

// Normalize coerces recorded purposes and backfills the episode length.
func Normalize(t *Trajectory) {
	for i := range t.Steps {
		normalizeStep(&t.Steps[i])
	}
	if t.EpisodeLength == 0 {
		t.EpisodeLength = len(t.Steps)
	}
}

func normalizeStep(s *Step) {
	for i := range s.LLMCalls {
		s.LLMCalls[i].Purpose = ParsePurpose(string(s.LLMCalls[i].Purpose))
	}
}

// #endregion decode

// #region tick-from-step

// TickFromStep lifts a recorded step into a Tick for attribution,
// deriving the outcome from the step's action and feedback. The pnl
// delta comes from feedback when present.
func TickFromStep(agentID string, s Step) Tick {
	out := &TickOutcome{TickNumber: s.StepNumber}

	if s.Action != nil {
		out.ActionCount = 1
		if isTradeAction(s.Action.ActionType) {
			out.TradesExecuted = 1
			if s.Action.Success {
				out.TradesSuccessful = 1
			} else {
				out.TradesFailed = 1
			}
		}
		if s.Action.ActionType == "wait" || s.Action.ActionType == "hold" {
			out.WaitCount = 1
		}
		if s.Action.Error != "" {
			out.ErrorCount = 1
		}
	}

	if s.Feedback != nil {
		if v, ok := s.Feedback["pnl_delta"]; ok {
			if f, ok := v.(float64); ok {
				out.PnLDelta = f
			}
		}
		if v, ok := s.Feedback["engagement"]; ok {
			if f, ok := v.(float64); ok {
				out.EngagementReceived = int(f)
			}
		}
	}

	for _, c := range s.LLMCalls {
		if c.Purpose == PurposeResponse {
			out.ResponsesSent++
		}
	}

	return Tick{
		TickNumber:   s.StepNumber,
		Timestamp:    s.Timestamp,
		AgentID:      agentID,
		LLMCalls:     s.LLMCalls,
		Action:       s.Action,
		Outcome:      out,
		GlobalReward: s.Reward,
	}
}

var tradeActionTypes = map[string]bool{
	"buy":             true,
	"sell":            true,
	"buy_prediction":  true,
	"sell_prediction": true,
	"open_perp":       true,
	"close_perp":      true,
	"long":            true,
	"short":           true,
}

func isTradeAction(actionType string) bool {
	return tradeActionTypes[actionType]
}

// #endregion tick-from-step
