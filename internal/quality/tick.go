package quality

// #region imports
import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentcredit/go-credit/internal/archetype"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #endregion

// #region detailed-quality

// DetailedTickQuality scores one tick's LLM output.
//
// The format score validates the decision markup of the LAST call only:
// the final call in a tick carries the executable decision. The
// reasoning score runs alignment over the concatenation of every call's
// reasoning and response plus the action's own reasoning, with a
// coherence bonus capped so the total stays within [0, 1].
func DetailedTickQuality(calls []trajectory.LLMCall, action *trajectory.Action) (formatScore, reasoningScore float64) {
	if len(calls) > 0 {
		last := calls[len(calls)-1]
		if last.Response != "" {
			formatScore = ValidateDecisionXML(last.Response)
		}
	}

	var texts []string
	for _, c := range calls {
		if c.Reasoning != "" {
			texts = append(texts, c.Reasoning)
		}
		if c.Response != "" {
			texts = append(texts, c.Response)
		}
	}
	if action != nil && action.Reasoning != "" {
		texts = append(texts, action.Reasoning)
	}

	full := strings.Join(texts, " ")
	if full != "" {
		reasoningScore = AlignmentScore(full, action)
		reasoningScore += CoherenceScore(full) * 0.2
		if reasoningScore > 1.0 {
			reasoningScore = 1.0
		}
	}

	return formatScore, reasoningScore
}

// #endregion detailed-quality

// #region tick-score

// TickQualityScore collapses the detailed scores plus action and
// feedback signals into a single [0, 1] number, blended with
// archetype-specific weights. This is the scalar used for
// trajectory-level aggregation and curriculum bucketing.
func TickQualityScore(calls []trajectory.LLMCall, action *trajectory.Action, feedback map[string]any, w archetype.Weights) float64 {
	fmtScore, rsnScore := DetailedTickQuality(calls, action)

	actionScore := 0.0
	if action != nil {
		switch {
		case action.Success:
			actionScore = 1.0
		case action.Error != "":
			actionScore = 0.25
		default:
			actionScore = 0.5
		}
	}

	feedbackScore := 0.0
	if len(feedback) > 0 {
		feedbackScore = 1.0
	}

	// Format lives in [-1, 0.5]; map to [0, 1] for the blend.
	normalizedFormat := (fmtScore + 1.0) / 1.5

	total := normalizedFormat*w.LLMCalls +
		rsnScore*w.Reasoning +
		actionScore*w.Action +
		feedbackScore*w.Feedback

	return clamp01(total)
}

// TrajectoryQualityScore averages tick quality across a trajectory's
// steps. Empty trajectories score 0.
func TrajectoryQualityScore(steps []trajectory.Step, w archetype.Weights) float64 {
	if len(steps) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range steps {
		sum += TickQualityScore(s.LLMCalls, s.Action, s.Feedback, w)
	}
	return sum / float64(len(steps))
}

// #endregion tick-score

// #region difficulty

// Level buckets trajectories for curriculum learning.
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// Difficulty is a trajectory difficulty assessment.
type Difficulty struct {
	Level   Level
	Score   float64 // 0-1, higher = harder
	Reasons []string
}

// AssessDifficulty rates how demanding a trajectory was: length, action
// diversity, parameter complexity, direction reversals and reasoning
// depth each contribute to the score. Used only for curriculum
// bucketing, never for reward computation.
func AssessDifficulty(steps []trajectory.Step) Difficulty {
	if len(steps) == 0 {
		return Difficulty{Level: LevelEasy, Score: 0, Reasons: []string{"Empty trajectory"}}
	}

	var reasons []string
	score := 0.0

	// Factor 1: trajectory length.
	switch {
	case len(steps) > 20:
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("Long trajectory (%d ticks)", len(steps)))
	case len(steps) > 10:
		score += 0.1
	}

	// Factor 2: action diversity.
	actionTypes := make(map[string]struct{})
	for _, s := range steps {
		if s.Action != nil {
			actionTypes[s.Action.ActionType] = struct{}{}
		}
	}
	switch {
	case len(actionTypes) >= 4:
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("High action diversity (%d types)", len(actionTypes)))
	case len(actionTypes) >= 2:
		score += 0.1
	}

	// Factor 3: complex parameters (leverage, large sizes).
	complexActions := 0
	for _, s := range steps {
		if s.Action == nil || s.Action.Parameters == nil {
			continue
		}
		if paramFloat(s.Action.Parameters, "leverage", 1) > 1 {
			complexActions++
		}
		if paramFloat(s.Action.Parameters, "amount", 0) > 1000 {
			complexActions++
		}
	}
	switch {
	case complexActions >= 3:
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("Complex action parameters (%d)", complexActions))
	case complexActions >= 1:
		score += 0.1
	}

	// Factor 4: buy/sell reversals.
	reversals := 0
	prev := ""
	for _, s := range steps {
		if s.Action == nil {
			continue
		}
		curr := s.Action.ActionType
		if prev != "" && isReversal(prev, curr) {
			reversals++
		}
		prev = curr
	}
	switch {
	case reversals >= 2:
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("Multiple reversals (%d)", reversals))
	case reversals >= 1:
		score += 0.1
	}

	// Factor 5: reasoning depth.
	totalReasoning := 0
	for _, s := range steps {
		for _, c := range s.LLMCalls {
			totalReasoning += len(c.Reasoning)
		}
		if s.Action != nil {
			totalReasoning += len(s.Action.Reasoning)
		}
	}
	avgReasoning := float64(totalReasoning) / float64(len(steps))
	switch {
	case avgReasoning > 200:
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("Deep reasoning required (avg %.0f chars)", avgReasoning))
	case avgReasoning > 100:
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}

	level := LevelEasy
	switch {
	case score >= 0.6:
		level = LevelHard
	case score >= 0.3:
		level = LevelMedium
	}

	if len(reasons) == 0 {
		reasons = []string{"Standard complexity"}
	}
	return Difficulty{Level: level, Score: score, Reasons: reasons}
}

func isReversal(prev, curr string) bool {
	buys := map[string]bool{"buy": true, "long": true}
	sells := map[string]bool{"sell": true, "short": true}
	return (buys[prev] && sells[curr]) || (sells[prev] && buys[curr])
}

func paramFloat(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return def
}

// #endregion difficulty

// #region trajectory-validation

// ValidationThresholds gates trajectories before training.
type ValidationThresholds struct {
	MinTicks           int
	MinCallCoverage    float64 // fraction of ticks that must have LLM calls
	MinQualityScore    float64
}

// DefaultValidationThresholds returns the standard gate.
func DefaultValidationThresholds() ValidationThresholds {
	return ValidationThresholds{MinTicks: 5, MinCallCoverage: 0.8, MinQualityScore: 0.5}
}

// ValidationReport summarizes whether a trajectory is usable for
// training and why not.
type ValidationReport struct {
	Valid        bool
	Issues       []string
	QualityScore float64
}

// ValidateTrajectory checks tick count, LLM call coverage, empty calls
// and the quality floor. It reports issues; it never aborts processing.
func ValidateTrajectory(steps []trajectory.Step, w archetype.Weights, th ValidationThresholds) ValidationReport {
	var issues []string

	if len(steps) < th.MinTicks {
		issues = append(issues, fmt.Sprintf("Too few ticks: %d < %d", len(steps), th.MinTicks))
	}
	if len(steps) == 0 {
		return ValidationReport{Valid: false, Issues: issues}
	}

	withCalls := 0
	emptyCalls := 0
	for _, s := range steps {
		if len(s.LLMCalls) > 0 {
			withCalls++
		}
		for _, c := range s.LLMCalls {
			if c.UserPrompt == "" || c.Response == "" {
				emptyCalls++
			}
		}
	}
	coverage := float64(withCalls) / float64(len(steps))
	if coverage < th.MinCallCoverage {
		issues = append(issues, fmt.Sprintf("Low LLM call coverage: %.0f%% < %.0f%%", coverage*100, th.MinCallCoverage*100))
	}
	if emptyCalls > 0 {
		issues = append(issues, fmt.Sprintf("%d LLM calls with empty prompt/response", emptyCalls))
	}

	score := TrajectoryQualityScore(steps, w)
	if score < th.MinQualityScore {
		issues = append(issues, fmt.Sprintf("Quality score too low: %.2f < %.2f", score, th.MinQualityScore))
	}

	return ValidationReport{Valid: len(issues) == 0, Issues: issues, QualityScore: score}
}

// #endregion trajectory-validation
