package trajectory

import (
	"testing"
)

func TestDecode(t *testing.T) {
	doc := `{
		"trajectoryId": "traj-agent-trader-1",
		"agentId": "agent-1",
		"archetype": "trader",
		"finalPnl": 250.5,
		"steps": [
			{
				"stepNumber": 0,
				"environmentState": {"agentBalance": 10000, "agentPnL": 0, "openPositions": 1},
				"llmCalls": [
					{"model": "m", "userPrompt": "u", "response": "r", "purpose": "reasoning"},
					{"model": "m", "userPrompt": "u", "response": "r", "purpose": "weird_purpose"}
				],
				"action": {"actionType": "buy", "success": true},
				"reward": 0.3,
				"extraFieldToIgnore": 42
			}
		]
	}`

	traj, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if traj.TrajectoryID != "traj-agent-trader-1" || traj.FinalPnL != 250.5 {
		t.Errorf("summary fields wrong: %+v", traj)
	}
	if traj.EpisodeLength != 1 {
		t.Errorf("episode length = %d, want backfilled 1", traj.EpisodeLength)
	}

	calls := traj.Steps[0].LLMCalls
	if calls[0].Purpose != PurposeReasoning {
		t.Errorf("purpose = %s, want reasoning", calls[0].Purpose)
	}
	if calls[1].Purpose != PurposeOther {
		t.Errorf("unknown purpose = %s, want coerced to other", calls[1].Purpose)
	}
}

func TestDecode_MissingID(t *testing.T) {
	if _, err := Decode([]byte(`{"agentId": "a"}`)); err == nil {
		t.Fatal("missing trajectoryId should error")
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Fatal("malformed JSON should error")
	}
}

func TestParsePurpose(t *testing.T) {
	tests := []struct {
		in   string
		want Purpose
	}{
		{"reasoning", PurposeReasoning},
		{"action", PurposeAction},
		{"response", PurposeResponse},
		{"evaluation", PurposeEvaluation},
		{"other", PurposeOther},
		{"", PurposeOther},
		{"REASONING", PurposeOther},
		{"planning", PurposeOther},
	}
	for _, tt := range tests {
		if got := ParsePurpose(tt.in); got != tt.want {
			t.Errorf("ParsePurpose(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestTickFromStep(t *testing.T) {
	step := Step{
		StepNumber: 4,
		Timestamp:  1700000000,
		LLMCalls: []LLMCall{
			{Purpose: PurposeReasoning},
			{Purpose: PurposeResponse},
		},
		Action:   &Action{ActionType: "buy", Success: true},
		Feedback: map[string]any{"pnl_delta": 42.5, "engagement": 7.0},
		Reward:   0.6,
	}

	tick := TickFromStep("agent-1", step)
	if tick.TickNumber != 4 || tick.AgentID != "agent-1" || tick.GlobalReward != 0.6 {
		t.Errorf("tick header wrong: %+v", tick)
	}

	out := tick.Outcome
	if out == nil {
		t.Fatal("derived outcome missing")
	}
	if out.TradesExecuted != 1 || out.TradesSuccessful != 1 || out.TradesFailed != 0 {
		t.Errorf("trade counts wrong: %+v", out)
	}
	if out.PnLDelta != 42.5 {
		t.Errorf("pnl delta = %v, want 42.5", out.PnLDelta)
	}
	if out.EngagementReceived != 7 {
		t.Errorf("engagement = %d, want 7", out.EngagementReceived)
	}
	if out.ResponsesSent != 1 {
		t.Errorf("responses sent = %d, want 1", out.ResponsesSent)
	}
}

func TestTickFromStep_WaitAndError(t *testing.T) {
	step := Step{
		StepNumber: 1,
		Action:     &Action{ActionType: "wait"},
	}
	tick := TickFromStep("agent-1", step)
	if tick.Outcome.WaitCount != 1 || tick.Outcome.TradesExecuted != 0 {
		t.Errorf("wait outcome wrong: %+v", tick.Outcome)
	}

	step.Action = &Action{ActionType: "sell", Success: false, Error: "insufficient balance"}
	tick = TickFromStep("agent-1", step)
	if tick.Outcome.TradesFailed != 1 || tick.Outcome.ErrorCount != 1 {
		t.Errorf("failed trade outcome wrong: %+v", tick.Outcome)
	}
}
