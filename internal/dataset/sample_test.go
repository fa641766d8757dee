package dataset

import (
	"math"
	"math/rand"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWeightedScore_AttributedRewardWins(t *testing.T) {
	tests := []struct {
		name       string
		attributed float64
		want       float64
	}{
		{"positive", 0.3, 0.8},
		{"negative", -0.2, 0.3},
		{"clamped-high", 0.9, 1.0},
		{"clamped-low", -0.9, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Sample{
				AttributedReward: tt.attributed,
				// These must be ignored once an attributed reward exists.
				TrajectoryScore: 0.9,
				StepReward:      1.0,
				LedToAction:     true,
				ActionSuccess:   true,
			}
			if got := s.WeightedScore(); !approx(got, tt.want) {
				t.Errorf("WeightedScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeightedScore_Fallback(t *testing.T) {
	tests := []struct {
		name          string
		trajectory    float64
		stepReward    float64
		ledToAction   bool
		actionSuccess bool
		want          float64
	}{
		{"plain", 0.5, 0, false, false, 0.5},
		{"led-to-success", 0.5, 0, true, true, 0.75},
		{"led-to-failure", 0.5, 0, true, false, 0.4},
		{"success-not-led", 0.5, 0, false, true, 0.6},
		{"step-reward-added", 0.5, 0.5, false, false, 0.6},
		{"all-signals", 0.5, 0.5, true, true, 0.85},
		{"clamped", 0.95, 1.0, true, true, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Sample{
				TrajectoryScore: tt.trajectory,
				StepReward:      tt.stepReward,
				LedToAction:     tt.ledToAction,
				ActionSuccess:   tt.actionSuccess,
			}
			if got := s.WeightedScore(); !approx(got, tt.want) {
				t.Errorf("WeightedScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessages_PreservesContent(t *testing.T) {
	s := &Sample{
		SystemPrompt: "You are a trading agent.",
		UserPrompt:   "What now?  (verbatim,\nwith whitespace)",
		Response:     "<decisions><decision ticker=\"BTC\" amount=\"100\"/></decisions>",
	}
	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != s.SystemPrompt {
		t.Errorf("system message = %+v", msgs[0])
	}
	if msgs[1].Role != "user" || msgs[1].Content != s.UserPrompt {
		t.Errorf("user message = %+v", msgs[1])
	}
	if msgs[2].Role != "assistant" || msgs[2].Content != s.Response {
		t.Errorf("assistant message = %+v", msgs[2])
	}
}

func TestWeightedScoreBounds_Randomized(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 2000; i++ {
		s := Sample{
			TrajectoryScore:  (rng.Float64() - 0.5) * 6,
			StepReward:       (rng.Float64() - 0.5) * 20,
			AttributedReward: (rng.Float64() - 0.5) * 4,
			ActionSuccess:    rng.Intn(2) == 0,
			LedToAction:      rng.Intn(2) == 0,
		}
		if rng.Intn(3) == 0 {
			s.AttributedReward = 0 // fallback path
		}
		if got := s.WeightedScore(); got < 0 || got > 1 {
			t.Fatalf("WeightedScore() = %v for %+v, outside [0, 1]", got, s)
		}
	}
}
