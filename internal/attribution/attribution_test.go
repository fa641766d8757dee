package attribution

import (
	"math"
	"testing"

	"github.com/agentcredit/go-credit/internal/trajectory"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func reasoningCall() trajectory.LLMCall {
	return trajectory.LLMCall{Purpose: trajectory.PurposeReasoning, Response: "bullish momentum, buying"}
}

func actionCall() trajectory.LLMCall {
	return trajectory.LLMCall{Purpose: trajectory.PurposeAction, Response: "<decisions><decision/></decisions>", ActionType: "buy"}
}

func TestAttributeTick_SuccessfulTrade(t *testing.T) {
	a := New(DefaultConfig())

	tick := trajectory.Tick{
		TickNumber:   3,
		LLMCalls:     []trajectory.LLMCall{reasoningCall(), actionCall()},
		Action:       &trajectory.Action{ActionType: "buy", Success: true},
		GlobalReward: 0.8,
		Outcome: &trajectory.TickOutcome{
			TradesExecuted:   1,
			TradesSuccessful: 1,
			PnLDelta:         100,
		},
	}
	marks := MarkCalls(tick.LLMCalls, tick.Action)

	res := a.AttributeTick(tick, marks)
	if !res.HasOutcome {
		t.Fatal("tick with outcome should report HasOutcome")
	}
	if len(res.Calls) != 2 {
		t.Fatalf("got %d call results, want 2", len(res.Calls))
	}

	// Action pool: 0.8 * 0.50 = 0.40, scaled by full success rate,
	// plus PnL bonus clamp(100/100) * 0.2 * 0.8 = 0.16, then the 1.2
	// led-to-success multiplier: (0.40 + 0.16) * 1.2 = 0.672.
	if !approx(res.Calls[1].Reward, 0.672) {
		t.Errorf("action reward = %v, want 0.672", res.Calls[1].Reward)
	}

	// Reasoning pool: 0.8 * 0.25 = 0.20, scaled by success rate 1.0,
	// times the 1.2 multiplier: 0.24.
	if !approx(res.Calls[0].Reward, 0.24) {
		t.Errorf("reasoning reward = %v, want 0.24", res.Calls[0].Reward)
	}
}

func TestAttributeTick_FailedActionPenalized(t *testing.T) {
	a := New(DefaultConfig())

	success := trajectory.Tick{
		LLMCalls:     []trajectory.LLMCall{actionCall()},
		Action:       &trajectory.Action{ActionType: "buy", Success: true},
		GlobalReward: 0.8,
		Outcome:      &trajectory.TickOutcome{TradesExecuted: 1, TradesSuccessful: 1},
	}
	failure := success
	failure.Action = &trajectory.Action{ActionType: "buy", Success: false}
	failure.Outcome = &trajectory.TickOutcome{TradesExecuted: 1, TradesSuccessful: 0}

	sRes := a.AttributeTick(success, MarkCalls(success.LLMCalls, success.Action))
	fRes := a.AttributeTick(failure, MarkCalls(failure.LLMCalls, failure.Action))

	if fRes.Calls[0].Reward >= sRes.Calls[0].Reward {
		t.Errorf("failed action reward %v should be below successful %v",
			fRes.Calls[0].Reward, sRes.Calls[0].Reward)
	}
}

func TestAttributeTick_NoOutcome(t *testing.T) {
	a := New(DefaultConfig())

	tick := trajectory.Tick{
		LLMCalls:     []trajectory.LLMCall{reasoningCall(), actionCall()},
		GlobalReward: 0.9,
	}
	res := a.AttributeTick(tick, nil)

	if res.HasOutcome {
		t.Error("tick without outcome should report HasOutcome=false")
	}
	for i, c := range res.Calls {
		if c.Reward != 0 {
			t.Errorf("call %d reward = %v, want 0 without an outcome", i, c.Reward)
		}
	}
}

func TestAttributeTick_EmptyCalls(t *testing.T) {
	a := New(DefaultConfig())

	tick := trajectory.Tick{
		GlobalReward: 1.0,
		Outcome:      &trajectory.TickOutcome{TradesExecuted: 1, TradesSuccessful: 1},
	}
	res := a.AttributeTick(tick, nil)
	if len(res.Calls) != 0 {
		t.Errorf("empty tick should yield no call results, got %d", len(res.Calls))
	}
}

func TestAttributeTick_ResponseEngagement(t *testing.T) {
	a := New(DefaultConfig())

	tick := trajectory.Tick{
		LLMCalls:     []trajectory.LLMCall{{Purpose: trajectory.PurposeResponse, Response: "posted"}},
		GlobalReward: 1.0,
		Outcome: &trajectory.TickOutcome{
			ResponsesSent:      2,
			EngagementReceived: 5, // rate 5/10 = 0.5
		},
	}
	res := a.AttributeTick(tick, nil)

	// Response pool 1.0 * 0.15, scaled by 0.5 + 0.5*0.5 = 0.75.
	want := 0.15 * 0.75
	if !approx(res.Calls[0].Reward, want) {
		t.Errorf("response reward = %v, want %v", res.Calls[0].Reward, want)
	}
}

func TestMarkCalls_WaitMarksNothing(t *testing.T) {
	calls := []trajectory.LLMCall{reasoningCall(), actionCall()}
	marks := MarkCalls(calls, &trajectory.Action{ActionType: "wait", Success: true})
	for i, m := range marks {
		if m.LedToAction {
			t.Errorf("mark %d should not lead to action on wait", i)
		}
	}
}

func TestMarkCalls_LastActionCallWins(t *testing.T) {
	calls := []trajectory.LLMCall{actionCall(), reasoningCall(), actionCall()}
	marks := MarkCalls(calls, &trajectory.Action{ActionType: "buy", Success: true})

	if marks[0].LedToAction {
		t.Error("superseded action call should not be marked")
	}
	if !marks[1].LedToAction {
		t.Error("reasoning preceding the action should be marked")
	}
	if !marks[2].LedToAction {
		t.Error("final action call should be marked")
	}
}

func TestAttributeBatch_MeanCenteredPerPurpose(t *testing.T) {
	a := New(DefaultConfig())

	ticks := []trajectory.Tick{
		{
			TickNumber:   0,
			LLMCalls:     []trajectory.LLMCall{reasoningCall(), actionCall()},
			Action:       &trajectory.Action{ActionType: "buy", Success: true},
			GlobalReward: 1.0,
			Outcome:      &trajectory.TickOutcome{TradesExecuted: 1, TradesSuccessful: 1, PnLDelta: 50},
		},
		{
			TickNumber:   1,
			LLMCalls:     []trajectory.LLMCall{reasoningCall(), actionCall()},
			Action:       &trajectory.Action{ActionType: "buy", Success: false},
			GlobalReward: -0.5,
			Outcome:      &trajectory.TickOutcome{TradesExecuted: 1, TradesSuccessful: 0, PnLDelta: -30},
		},
	}
	marks := [][]Mark{
		MarkCalls(ticks[0].LLMCalls, ticks[0].Action),
		MarkCalls(ticks[1].LLMCalls, ticks[1].Action),
	}

	results := a.AttributeBatch(ticks, marks)

	sums := map[trajectory.Purpose]float64{}
	for _, r := range results {
		for _, c := range r.Calls {
			sums[c.Purpose] += c.Reward
		}
	}
	for p, sum := range sums {
		if math.Abs(sum) > 1e-9 {
			t.Errorf("purpose %s rewards sum to %v after centering, want 0", p, sum)
		}
	}

	// The better tick must come out above the worse one.
	if results[0].Calls[1].Reward <= results[1].Calls[1].Reward {
		t.Errorf("successful tick action %v should exceed failed tick action %v",
			results[0].Calls[1].Reward, results[1].Calls[1].Reward)
	}
}

func TestAttributeBatch_SingletonPurposeUncentered(t *testing.T) {
	a := New(DefaultConfig())

	ticks := []trajectory.Tick{
		{
			LLMCalls:     []trajectory.LLMCall{actionCall()},
			Action:       &trajectory.Action{ActionType: "buy", Success: true},
			GlobalReward: 0.8,
			Outcome:      &trajectory.TickOutcome{TradesExecuted: 1, TradesSuccessful: 1},
		},
	}
	results := a.AttributeBatch(ticks, nil)
	if approx(results[0].Calls[0].Reward, 0) {
		t.Error("a lone purpose group should keep its raw reward, not be centered to zero")
	}
}

func TestNew_RenormalizesWeights(t *testing.T) {
	a := New(Config{Reasoning: 0.5, Action: 1.0, Response: 0.3, Evaluation: 0.2})

	total := 0.0
	for _, w := range a.weights {
		total += w
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Errorf("renormalized weights sum to %v, want 1.0", total)
	}
}
