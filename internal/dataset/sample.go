// Package dataset turns scored trajectories into purpose-partitioned,
// variance-gated training groups. Prompt content is preserved exactly:
// the model must see identical text during training as it saw during
// rollout, or the distribution shift hurts it.
package dataset

// #region imports
import (
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #endregion

// #region message

// Message is one chat turn in the {system, user, assistant} triple.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// #endregion message

// #region env-context

// EnvContext snapshots the environment at the sample's step.
type EnvContext struct {
	Balance   float64 `json:"balance"`
	PnL       float64 `json:"pnl"`
	Positions int     `json:"positions"`
}

// #endregion env-context

// #region sample

// Sample is one trainable example extracted from one LLM call. The three
// prompt strings are byte-for-byte identical to the source call, except
// for the documented system-prompt length guard. Immutable after
// creation; the weighted score is computed on demand, never cached.
type Sample struct {
	TrajectoryID string `json:"trajectoryId"`
	StepNumber   int    `json:"stepNumber"`
	CallIndex    int    `json:"callIndex"`

	SystemPrompt string `json:"systemPrompt"`
	UserPrompt   string `json:"userPrompt"`
	Response     string `json:"response"`

	Purpose     trajectory.Purpose `json:"purpose"`
	ActionType  string             `json:"actionType,omitempty"`
	Model       string             `json:"model"`
	Temperature float64            `json:"temperature"`

	// Multi-level reward signals. AttributedReward of exactly 0 means
	// "unset": the weighted score then falls back to the trajectory and
	// step signals.
	TrajectoryScore  float64 `json:"trajectoryScore"`
	StepReward       float64 `json:"stepReward"`
	AttributedReward float64 `json:"attributedReward"`
	ActionSuccess    bool    `json:"actionSuccess"`
	LedToAction      bool    `json:"ledToAction"`

	EnvContext      EnvContext `json:"environmentContext"`
	PreviousActions []string   `json:"previousActions,omitempty"`
}

// Messages converts the sample to chat message format.
func (s *Sample) Messages() []Message {
	return []Message{
		{Role: "system", Content: s.SystemPrompt},
		{Role: "user", Content: s.UserPrompt},
		{Role: "assistant", Content: s.Response},
	}
}

// WeightedScore collapses the sample's reward signals into [0, 1].
// An attributed reward, when set, is the sole basis: it is already
// centered for GRPO, so it maps through 0.5 + reward. Otherwise the
// trajectory score is adjusted by outcome flags and the step reward.
func (s *Sample) WeightedScore() float64 {
	if s.AttributedReward != 0 {
		return clamp01(0.5 + s.AttributedReward)
	}

	score := s.TrajectoryScore

	if s.LedToAction && s.ActionSuccess {
		score += 0.15
	} else if s.LedToAction && !s.ActionSuccess {
		score -= 0.1
	}

	if s.ActionSuccess {
		score += 0.1
	}

	score += s.StepReward * 0.2

	return clamp01(score)
}

// #endregion sample

// #region helpers

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// #endregion helpers
