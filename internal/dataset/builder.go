package dataset

// #region imports
import (
	"fmt"
	"log"

	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #endregion

// #region builder-config

// BuilderConfig holds the extraction thresholds and attribution factors.
// The discount factors and signal weights are empirically chosen
// defaults, kept as configuration rather than constants.
type BuilderConfig struct {
	// MinResponseLen rejects calls whose response is shorter than this.
	MinResponseLen int `yaml:"min_response_len"`
	// MaxSystemPromptLen is a safety valve against pathological inputs;
	// truncation is the ONLY permitted content modification.
	MaxSystemPromptLen int `yaml:"max_system_prompt_len"`
	// HistoryWindow is how many previous action types ride along as
	// context on each sample.
	HistoryWindow int `yaml:"history_window"`

	// TrajectoryWeight scales the trajectory-level component
	// (score - 0.5) of the attributed reward.
	TrajectoryWeight float64 `yaml:"trajectory_weight"`
	// StepWeight scales the step-level reward component.
	StepWeight float64 `yaml:"step_weight"`
	// PrimaryCallDiscount applies to the primary action call when a
	// step holds multiple calls, SecondaryCallDiscount to the rest;
	// both avoid double-counting one step's reward.
	PrimaryCallDiscount   float64 `yaml:"primary_call_discount"`
	SecondaryCallDiscount float64 `yaml:"secondary_call_discount"`
}

// DefaultBuilderConfig returns the standard extraction settings.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MinResponseLen:        20,
		MaxSystemPromptLen:    2000,
		HistoryWindow:         5,
		TrajectoryWeight:      0.3,
		StepWeight:            0.4,
		PrimaryCallDiscount:   0.7,
		SecondaryCallDiscount: 0.5,
	}
}

// #endregion builder-config

// #region builder

// Builder extracts one sample per usable LLM call from trajectories and
// accumulates them into one dataset per purpose. Single writer; for
// parallel batch work run one Builder per worker and merge.
type Builder struct {
	cfg      BuilderConfig
	datasets map[trajectory.Purpose]*Dataset

	// Verbose enables debug logging of rejected calls.
	Verbose bool

	TotalTrajectories int
	TotalSteps        int
	TotalSamples      int
	SkippedCalls      int
}

// NewBuilder creates a Builder with one dataset per purpose.
func NewBuilder(cfg BuilderConfig) *Builder {
	datasets := make(map[trajectory.Purpose]*Dataset, len(trajectory.Purposes))
	for _, p := range trajectory.Purposes {
		datasets[p] = NewDataset(p)
	}
	return &Builder{cfg: cfg, datasets: datasets}
}

// Dataset returns the accumulated dataset for one purpose.
func (b *Builder) Dataset(p trajectory.Purpose) *Dataset {
	return b.datasets[p]
}

// Merge appends another builder's samples into this one. Used by the
// collect-then-merge strategy for parallel trajectory processing.
func (b *Builder) Merge(other *Builder) {
	for _, p := range trajectory.Purposes {
		for _, s := range other.datasets[p].Samples {
			b.datasets[p].Add(s)
		}
	}
	b.TotalTrajectories += other.TotalTrajectories
	b.TotalSteps += other.TotalSteps
	b.TotalSamples += other.TotalSamples
	b.SkippedCalls += other.SkippedCalls
}

// #endregion builder

// #region add-trajectory

// AddTrajectory walks a trajectory's steps in order and extracts one
// sample per usable LLM call. Returns the number of samples added.
// Malformed calls are skipped, never fatal.
func (b *Builder) AddTrajectory(traj trajectory.Trajectory, trajectoryScore float64) int {
	added := 0
	var previousActions []string

	for stepIdx, step := range traj.Steps {
		env := EnvContext{
			Balance:   step.EnvironmentState.AgentBalance,
			PnL:       step.EnvironmentState.AgentPnL,
			Positions: step.EnvironmentState.OpenPositions,
		}

		for callIdx, call := range step.LLMCalls {
			sample := b.createSample(traj, step, stepIdx, call, callIdx, trajectoryScore, env, previousActions)
			if sample == nil {
				continue
			}
			b.datasets[sample.Purpose].Add(sample)
			added++
		}

		if step.Action != nil {
			previousActions = append(previousActions, step.Action.ActionType)
			if len(previousActions) > b.cfg.HistoryWindow {
				previousActions = previousActions[1:]
			}
		}
		b.TotalSteps++
	}

	b.TotalTrajectories++
	b.TotalSamples += added
	return added
}

// #endregion add-trajectory

// #region create-sample

// createSample builds one sample from one call, or nil when the call is
// rejected. Prompts pass through untouched except the system-prompt
// length guard.
func (b *Builder) createSample(
	traj trajectory.Trajectory,
	step trajectory.Step,
	stepIdx int,
	call trajectory.LLMCall,
	callIdx int,
	trajectoryScore float64,
	env EnvContext,
	previousActions []string,
) *Sample {
	if len(call.Response) < b.cfg.MinResponseLen {
		b.SkippedCalls++
		if b.Verbose {
			log.Printf("[DATASET] skip call %d/%d: response too short (%d < %d)",
				stepIdx, callIdx, len(call.Response), b.cfg.MinResponseLen)
		}
		return nil
	}
	if call.UserPrompt == "" {
		b.SkippedCalls++
		if b.Verbose {
			log.Printf("[DATASET] skip call %d/%d: no user prompt", stepIdx, callIdx)
		}
		return nil
	}

	systemPrompt := call.SystemPrompt
	if len(systemPrompt) > b.cfg.MaxSystemPromptLen {
		log.Printf("[DATASET] system prompt truncated from %d to %d chars",
			len(systemPrompt), b.cfg.MaxSystemPromptLen)
		systemPrompt = systemPrompt[:b.cfg.MaxSystemPromptLen] + "..."
	}

	ledToAction := b.ledToAction(step, call, callIdx)

	attributed := b.attributedReward(call, step, trajectoryScore, ledToAction)

	actionSuccess := false
	if step.Action != nil {
		actionSuccess = step.Action.Success
	}

	history := make([]string, len(previousActions))
	copy(history, previousActions)

	return &Sample{
		TrajectoryID:     traj.TrajectoryID,
		StepNumber:       stepIdx,
		CallIndex:        callIdx,
		SystemPrompt:     systemPrompt,
		UserPrompt:       call.UserPrompt,
		Response:         call.Response,
		Purpose:          call.Purpose,
		ActionType:       call.ActionType,
		Model:            call.Model,
		Temperature:      call.Temperature,
		TrajectoryScore:  trajectoryScore,
		StepReward:       step.Reward,
		AttributedReward: attributed,
		ActionSuccess:    actionSuccess,
		LedToAction:      ledToAction,
		EnvContext:       env,
		PreviousActions:  history,
	}
}

// ledToAction reports whether this call contributed to the step's
// action: it is the last action-purpose call, or a reasoning call in a
// step that holds at least one action call.
func (b *Builder) ledToAction(step trajectory.Step, call trajectory.LLMCall, callIdx int) bool {
	if step.Action == nil || step.Action.ActionType == "wait" {
		return false
	}
	lastAction := -1
	for i, c := range step.LLMCalls {
		if c.Purpose == trajectory.PurposeAction {
			lastAction = i
		}
	}
	if lastAction < 0 {
		return false
	}
	if callIdx == lastAction {
		return true
	}
	return call.Purpose == trajectory.PurposeReasoning
}

// #endregion create-sample

// #region attributed-reward

// attributedReward splits the step's reward signal onto one call.
// Action calls that produced a successful action get the most credit,
// reasoning gets partial credit scaled by that success, evaluation a
// small fixed bonus, responses credit scaled by the action outcome.
// Steps with multiple calls discount every share to avoid counting the
// same reward twice.
func (b *Builder) attributedReward(
	call trajectory.LLMCall,
	step trajectory.Step,
	trajectoryScore float64,
	ledToAction bool,
) float64 {
	trajComponent := (trajectoryScore - 0.5) * b.cfg.TrajectoryWeight
	stepComponent := step.Reward * b.cfg.StepWeight

	actionSuccess := step.Action != nil && step.Action.Success

	var base float64
	switch call.Purpose {
	case trajectory.PurposeAction:
		if ledToAction {
			if actionSuccess {
				base = stepComponent + trajComponent + 0.2
			} else {
				base = stepComponent + trajComponent - 0.1
			}
		} else {
			base = trajComponent
		}
	case trajectory.PurposeReasoning:
		if ledToAction && actionSuccess {
			base = stepComponent*0.5 + trajComponent + 0.1
		} else {
			base = trajComponent * 0.5
		}
	case trajectory.PurposeEvaluation:
		if actionSuccess {
			base = 0.05 + trajComponent*0.3
		} else {
			base = trajComponent * 0.3
		}
	case trajectory.PurposeResponse:
		if actionSuccess {
			base = trajComponent + 0.05
		} else {
			base = trajComponent
		}
	case trajectory.PurposeOther:
		base = trajComponent * 0.2
	}

	if len(step.LLMCalls) > 1 {
		if ledToAction && call.Purpose == trajectory.PurposeAction {
			base *= b.cfg.PrimaryCallDiscount
		} else {
			base *= b.cfg.SecondaryCallDiscount
		}
	}

	return base
}

// #endregion attributed-reward

// #region statistics

// PurposeStats summarizes one purpose's dataset.
type PurposeStats struct {
	Count         int     `json:"count"`
	AvgScore      float64 `json:"avgScore"`
	ScoreVariance float64 `json:"scoreVariance"`
}

// Stats is the builder's full accounting.
type Stats struct {
	TotalTrajectories int                               `json:"totalTrajectories"`
	TotalSteps        int                               `json:"totalSteps"`
	TotalSamples      int                               `json:"totalSamples"`
	SkippedCalls      int                               `json:"skippedCalls"`
	ByPurpose         map[trajectory.Purpose]PurposeStats `json:"byPurpose"`
}

// Statistics reports sample counts and score statistics per purpose.
func (b *Builder) Statistics() Stats {
	st := Stats{
		TotalTrajectories: b.TotalTrajectories,
		TotalSteps:        b.TotalSteps,
		TotalSamples:      b.TotalSamples,
		SkippedCalls:      b.SkippedCalls,
		ByPurpose:         make(map[trajectory.Purpose]PurposeStats),
	}
	for p, d := range b.datasets {
		st.ByPurpose[p] = PurposeStats{
			Count:         len(d.Samples),
			AvgScore:      d.AvgScore,
			ScoreVariance: d.ScoreVariance,
		}
	}
	return st
}

// #endregion statistics

// #region prepare

// PrepareTrainingData is the convenience entry point: feed trajectories
// with their scores, get purpose-keyed training groups back. A count
// mismatch between trajectories and scores is a caller programming
// error and fails before any work is done.
func PrepareTrainingData(
	trajectories []trajectory.Trajectory,
	scores []float64,
	cfg BuilderConfig,
	groupSize int,
	minScoreVariance float64,
	tok Tokenizer,
) (map[trajectory.Purpose][]ScoredGroup, error) {
	if len(trajectories) != len(scores) {
		return nil, fmt.Errorf("trajectory count (%d) != score count (%d)", len(trajectories), len(scores))
	}

	b := NewBuilder(cfg)
	for i, traj := range trajectories {
		b.AddTrajectory(traj, scores[i])
	}

	log.Printf("[DATASET] extracted %d samples from %d trajectories (%d calls skipped)",
		b.TotalSamples, b.TotalTrajectories, b.SkippedCalls)

	result := make(map[trajectory.Purpose][]ScoredGroup)
	for _, p := range trajectory.Purposes {
		groups, err := b.BuildTrainingData(p, groupSize, minScoreVariance, tok)
		if err != nil {
			return nil, err
		}
		if len(groups) > 0 {
			result[p] = groups
		}
	}
	return result, nil
}

// #endregion prepare
