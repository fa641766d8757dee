package attribution

// #region imports
import (
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #endregion

// #region config

// Config holds the fraction of a tick's global reward attributed to each
// call purpose. The five weights should sum to 1.0; New renormalizes
// with a warning when they do not.
type Config struct {
	Reasoning  float64 `yaml:"reasoning" json:"reasoning"`
	Action     float64 `yaml:"action" json:"action"`
	Response   float64 `yaml:"response" json:"response"`
	Evaluation float64 `yaml:"evaluation" json:"evaluation"`
	Other      float64 `yaml:"other" json:"other"`
}

// DefaultConfig returns the standard purpose split: action decisions
// carry half the credit, reasoning a quarter.
func DefaultConfig() Config {
	return Config{
		Reasoning:  0.25,
		Action:     0.50,
		Response:   0.15,
		Evaluation: 0.10,
		Other:      0.0,
	}
}

// #endregion config

// #region marks

// Mark carries the led-to-action context for one call. ActionKnown
// distinguishes "action failed" from "outcome unknown": the 0.6 penalty
// multiplier only applies to a known failure.
type Mark struct {
	LedToAction   bool
	ActionSuccess bool
	ActionKnown   bool
}

// #endregion marks

// #region results

// CallResult is the attributed reward for one call, keyed by its index
// within the tick. Call records themselves stay immutable; this is the
// write-once join point.
type CallResult struct {
	CallIndex int
	Purpose   trajectory.Purpose
	Reward    float64
}

// TickResult holds the attribution output for one tick. HasOutcome is
// false when the tick had no outcome, in which case every reward is zero
// by construction; callers that must distinguish "legitimately zero"
// from "nothing to attribute" check this flag.
type TickResult struct {
	TickNumber int
	HasOutcome bool
	Calls      []CallResult
}

// #endregion results
