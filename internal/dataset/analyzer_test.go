package dataset

import (
	"testing"

	"github.com/agentcredit/go-credit/internal/trajectory"
)

func analyzerTrajectory(id string, responses map[trajectory.Purpose]string, withReasoning bool) trajectory.Trajectory {
	var calls []trajectory.LLMCall
	for p, resp := range responses {
		call := trajectory.LLMCall{Purpose: p, UserPrompt: "context", Response: resp}
		if withReasoning {
			call.Reasoning = "thinking it through"
		}
		calls = append(calls, call)
	}
	return trajectory.Trajectory{
		TrajectoryID: id,
		AgentID:      "agent-" + id,
		Steps:        []trajectory.Step{{LLMCalls: calls}},
	}
}

func TestAnalyzeCorrelation(t *testing.T) {
	trajs := []trajectory.Trajectory{
		analyzerTrajectory("hi", map[trajectory.Purpose]string{
			trajectory.PurposeReasoning: "a detailed twenty character plan",
			trajectory.PurposeAction:    "buy",
		}, true),
		analyzerTrajectory("mid", map[trajectory.Purpose]string{
			trajectory.PurposeReasoning: "ok",
		}, false),
		analyzerTrajectory("lo", map[trajectory.Purpose]string{
			trajectory.PurposeAction: "wait",
		}, false),
	}
	scores := []float64{0.9, 0.5, 0.1}

	report, err := AnalyzeCorrelation(trajs, scores)
	if err != nil {
		t.Fatalf("AnalyzeCorrelation: %v", err)
	}

	if got := report.CountByPurpose[trajectory.PurposeReasoning]; got != 2 {
		t.Errorf("reasoning count = %d, want 2", got)
	}
	if got := report.CountByPurpose[trajectory.PurposeAction]; got != 2 {
		t.Errorf("action count = %d, want 2", got)
	}

	wantAvg := float64(len("a detailed twenty character plan")+len("ok")) / 2
	if got := report.AvgLengthByPurpose[trajectory.PurposeReasoning]; got != wantAvg {
		t.Errorf("reasoning avg length = %v, want %v", got, wantAvg)
	}

	if len(report.HighScore) != 2 {
		t.Fatalf("high-score profiles = %d, want 2", len(report.HighScore))
	}
	for _, p := range report.HighScore {
		if !p.HasReasoning {
			t.Errorf("high-score call %v missing reasoning flag", p.Purpose)
		}
	}

	if len(report.LowScore) != 1 {
		t.Fatalf("low-score profiles = %d, want 1", len(report.LowScore))
	}
	if report.LowScore[0].Purpose != trajectory.PurposeAction {
		t.Errorf("low-score purpose = %q, want action", report.LowScore[0].Purpose)
	}

	// Mid-range trajectory appears in neither bucket.
	if len(report.HighScore)+len(report.LowScore) != 3 {
		t.Errorf("profiled calls = %d, want 3", len(report.HighScore)+len(report.LowScore))
	}
}

func TestAnalyzeCorrelationCountMismatch(t *testing.T) {
	_, err := AnalyzeCorrelation(make([]trajectory.Trajectory, 2), []float64{0.5})
	if err == nil {
		t.Fatal("expected count mismatch error")
	}
}
