// Package archetype provides the per-archetype scoring weights and
// rubric text used by quality scoring. Configuration is loaded from a
// JSON file and passed by value to whatever needs it; there is no
// process-wide singleton.
package archetype

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// #endregion

// #region weights

// Weights controls how the four quality components blend for one
// archetype. Fields sum to 1.0 in every built-in entry.
type Weights struct {
	LLMCalls  float64 `json:"llm_calls"`
	Reasoning float64 `json:"reasoning"`
	Action    float64 `json:"action"`
	Feedback  float64 `json:"feedback"`
}

// DefaultWeights is the fallback blend for unknown archetypes.
func DefaultWeights() Weights {
	return Weights{LLMCalls: 0.4, Reasoning: 0.3, Action: 0.2, Feedback: 0.1}
}

var builtinWeights = map[string]Weights{
	// Research-heavy archetypes prioritize reasoning.
	"researcher":         {LLMCalls: 0.3, Reasoning: 0.45, Action: 0.15, Feedback: 0.1},
	"information-trader": {LLMCalls: 0.3, Reasoning: 0.4, Action: 0.2, Feedback: 0.1},
	"super-predictor":    {LLMCalls: 0.3, Reasoning: 0.4, Action: 0.2, Feedback: 0.1},
	// Action-heavy archetypes prioritize execution.
	"trader":       {LLMCalls: 0.3, Reasoning: 0.2, Action: 0.4, Feedback: 0.1},
	"degen":        {LLMCalls: 0.2, Reasoning: 0.15, Action: 0.55, Feedback: 0.1},
	"perps-trader": {LLMCalls: 0.25, Reasoning: 0.2, Action: 0.45, Feedback: 0.1},
	// Social archetypes prioritize engagement.
	"social-butterfly": {LLMCalls: 0.35, Reasoning: 0.25, Action: 0.25, Feedback: 0.15},
	"ass-kisser":       {LLMCalls: 0.35, Reasoning: 0.3, Action: 0.2, Feedback: 0.15},
	"goody-twoshoes":   {LLMCalls: 0.35, Reasoning: 0.3, Action: 0.2, Feedback: 0.15},
	// Deceptive archetypes prioritize reasoning (planning).
	"scammer": {LLMCalls: 0.25, Reasoning: 0.4, Action: 0.25, Feedback: 0.1},
	"liar":    {LLMCalls: 0.25, Reasoning: 0.4, Action: 0.25, Feedback: 0.1},
	// Balanced.
	"infosec": {LLMCalls: 0.3, Reasoning: 0.3, Action: 0.3, Feedback: 0.1},
}

// LookupWeights returns the weight blend for an archetype name,
// normalizing case and underscores, with the default blend for
// unrecognized names.
func LookupWeights(name string) Weights {
	if w, ok := builtinWeights[normalize(name)]; ok {
		return w
	}
	return DefaultWeights()
}

func normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

// #endregion weights

// #region config

// Config holds archetype rubrics and priority metrics loaded from the
// canonical rubrics JSON file.
type Config struct {
	Rubrics         map[string]string   `json:"rubrics"`
	PriorityMetrics map[string][]string `json:"priorityMetrics"`
	Defaults        struct {
		Rubric          string   `json:"rubric"`
		PriorityMetrics []string `json:"priorityMetrics"`
	} `json:"defaults"`
	AvailableArchetypes []string `json:"availableArchetypes"`
}

// DefaultConfig returns a Config with only the fallback rubric and
// metrics, used when no rubrics file is provided.
func DefaultConfig() Config {
	var c Config
	c.Rubrics = map[string]string{}
	c.PriorityMetrics = map[string][]string{}
	c.Defaults.Rubric = defaultRubric
	c.Defaults.PriorityMetrics = []string{
		"trading.totalPnL",
		"trading.winRate",
		"behavior.actionSuccessRate",
		"behavior.episodeLength",
	}
	return c
}

// LoadConfig reads and validates a rubrics JSON file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read rubrics %s: %w", path, err)
	}
	c := DefaultConfig()
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse rubrics %s: %w", path, err)
	}
	if c.Rubrics == nil {
		c.Rubrics = map[string]string{}
	}
	if c.PriorityMetrics == nil {
		c.PriorityMetrics = map[string][]string{}
	}
	if c.Defaults.Rubric == "" {
		c.Defaults.Rubric = defaultRubric
	}
	if len(c.AvailableArchetypes) == 0 {
		for name := range c.Rubrics {
			c.AvailableArchetypes = append(c.AvailableArchetypes, name)
		}
	}
	return c, nil
}

// Rubric returns the scoring rubric text for an archetype, falling back
// to the default rubric for unknown names.
func (c Config) Rubric(archetype string) string {
	if r, ok := c.Rubrics[normalize(archetype)]; ok {
		return r
	}
	return c.Defaults.Rubric
}

// Metrics returns the priority metrics for an archetype.
func (c Config) Metrics(archetype string) []string {
	if m, ok := c.PriorityMetrics[normalize(archetype)]; ok {
		return m
	}
	return c.Defaults.PriorityMetrics
}

// HasCustomRubric reports whether an archetype has its own rubric.
func (c Config) HasCustomRubric(archetype string) bool {
	_, ok := c.Rubrics[normalize(archetype)]
	return ok
}

// #endregion config

// #region default-rubric

const defaultRubric = `
## General Agent Evaluation

You are evaluating an AI agent's performance in a prediction market simulation.

### Scoring Criteria (0.0 to 1.0)
- **Profitability**: Higher P&L should receive higher scores
- **Risk Management**: Balanced positions and avoiding excessive losses
- **Efficiency**: Achieving goals with fewer actions is better
- **Decision Quality**: Good reasoning and analysis before actions

### Scoring Guidelines
- 0.8-1.0: Excellent performance, consistent profits, good risk management
- 0.6-0.8: Good performance, positive P&L, reasonable decisions
- 0.4-0.6: Average performance, mixed results
- 0.2-0.4: Below average, some losses, questionable decisions
- 0.0-0.2: Poor performance, significant losses, poor decision making

Compare trajectories RELATIVE to each other within this group.
If one trajectory is significantly better, reflect that in score differences.
`

// #endregion default-rubric
