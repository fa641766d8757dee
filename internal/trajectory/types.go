package trajectory

// #region purpose

// Purpose classifies the functional role of one LLM call within a tick.
type Purpose string

const (
	PurposeReasoning  Purpose = "reasoning"
	PurposeAction     Purpose = "action"
	PurposeResponse   Purpose = "response"
	PurposeEvaluation Purpose = "evaluation"
	PurposeOther      Purpose = "other"
)

// Purposes lists every valid purpose in attribution order.
var Purposes = []Purpose{
	PurposeReasoning,
	PurposeAction,
	PurposeResponse,
	PurposeEvaluation,
	PurposeOther,
}

// ParsePurpose coerces a recorded purpose string to a known value.
// Anything unrecognized maps to PurposeOther.
func ParsePurpose(s string) Purpose {
	switch Purpose(s) {
	case PurposeReasoning, PurposeAction, PurposeResponse, PurposeEvaluation, PurposeOther:
		return Purpose(s)
	default:
		return PurposeOther
	}
}

// #endregion purpose

// #region llm-call

// LLMCall is one recorded model invocation. Immutable once decoded;
// attribution results are kept separately (attribution.TickResult).
type LLMCall struct {
	Model            string  `json:"model"`
	SystemPrompt     string  `json:"systemPrompt"`
	UserPrompt       string  `json:"userPrompt"`
	Response         string  `json:"response"`
	Reasoning        string  `json:"reasoning,omitempty"`
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"maxTokens"`
	LatencyMs        int     `json:"latencyMs,omitempty"`
	PromptTokens     int     `json:"promptTokens,omitempty"`
	CompletionTokens int     `json:"completionTokens,omitempty"`
	Purpose          Purpose `json:"purpose"`
	ActionType       string  `json:"actionType,omitempty"`
}

// #endregion llm-call

// #region action

// Action is the action an agent took at the end of a step.
type Action struct {
	ActionType string         `json:"actionType"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

// #endregion action

// #region environment-state

// EnvironmentState snapshots the agent's financial position at a step.
type EnvironmentState struct {
	AgentBalance  float64 `json:"agentBalance"`
	AgentPnL      float64 `json:"agentPnL"`
	OpenPositions int     `json:"openPositions"`
	ActiveMarkets int     `json:"activeMarkets,omitempty"`
}

// #endregion environment-state

// #region step

// Step is one recorded decision cycle within a trajectory.
type Step struct {
	StepNumber       int              `json:"stepNumber"`
	Timestamp        int64            `json:"timestamp"`
	EnvironmentState EnvironmentState `json:"environmentState"`
	LLMCalls         []LLMCall        `json:"llmCalls"`
	Action           *Action          `json:"action,omitempty"`
	Feedback         map[string]any   `json:"feedback,omitempty"`
	Reward           float64          `json:"reward"`
}

// #endregion step

// #region tick-outcome

// TickOutcome is the environment's verdict on one tick. Counts are
// non-negative; deltas may be any finite float.
type TickOutcome struct {
	TickNumber int `json:"tickNumber"`

	PnLDelta     float64 `json:"pnlDelta"`
	BalanceDelta float64 `json:"balanceDelta"`

	TradesExecuted   int `json:"tradesExecuted"`
	TradesSuccessful int `json:"tradesSuccessful"`
	TradesFailed     int `json:"tradesFailed"`

	PostsCreated       int `json:"postsCreated"`
	ResponsesSent      int `json:"responsesSent"`
	EngagementReceived int `json:"engagementReceived"`

	ActionCount int `json:"actionCount"`
	WaitCount   int `json:"waitCount"`
	ErrorCount  int `json:"errorCount"`
}

// #endregion tick-outcome

// #region tick

// Tick is the unit of reward attribution: the calls one agent made in a
// single decision cycle plus the outcome the environment produced.
// A nil Outcome means no attribution is possible for this tick.
type Tick struct {
	TickNumber   int          `json:"tickNumber"`
	Timestamp    int64        `json:"timestamp"`
	AgentID      string       `json:"agentId"`
	LLMCalls     []LLMCall    `json:"llmCalls"`
	Action       *Action      `json:"action,omitempty"`
	Outcome      *TickOutcome `json:"outcome,omitempty"`
	GlobalReward float64      `json:"globalReward"`
}

// #endregion tick

// #region trajectory

// Trajectory is one agent's full episode plus summary fields.
type Trajectory struct {
	TrajectoryID string `json:"trajectoryId"`
	AgentID      string `json:"agentId"`
	Archetype    string `json:"archetype,omitempty"`
	WindowID     string `json:"windowId,omitempty"`

	Steps []Step `json:"steps"`

	TotalReward      float64 `json:"totalReward"`
	FinalPnL         float64 `json:"finalPnl"`
	FinalBalance     float64 `json:"finalBalance"`
	TradesExecuted   int     `json:"tradesExecuted"`
	SuccessfulTrades int     `json:"successfulTrades"`
	FailedTrades     int     `json:"failedTrades"`
	PostsCreated     int     `json:"postsCreated"`
	EpisodeLength    int     `json:"episodeLength"`
	FinalStatus      string  `json:"finalStatus,omitempty"`
}

// #endregion trajectory
