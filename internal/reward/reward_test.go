package reward

import (
	"math"
	"math/rand"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPnL(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		end   float64
		want  float64
	}{
		{"flat", 10000, 10000, 0},
		{"ten-percent-gain-hits-cap", 10000, 11000, 1.0},
		{"bankruptcy", 10000, 0, BankruptcyPenalty},
		{"negative-balance", 10000, -50, BankruptcyPenalty},
		{"five-percent-gain", 10000, 10500, 0.5},
		{"big-gain-clamped", 10000, 20000, 1.0},
		{"big-loss-clamped", 10000, 5000, -1.0},
		{"zero-start", 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PnL(tt.start, tt.end)
			if !approx(got, tt.want) {
				t.Errorf("PnL(%.0f, %.0f) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestRisk(t *testing.T) {
	tests := []struct {
		name       string
		exposure   float64
		actionType string
		want       float64
	}{
		{"overexposed-buy", 0.9, "buy", -0.5},
		{"overexposed-open-perp", 0.85, "open_perp", -0.5},
		{"overexposed-long", 0.81, "long", -0.5},
		{"overexposed-sell", 0.9, "sell", 0},
		{"at-threshold-buy", 0.80, "buy", 0},
		{"low-exposure-buy", 0.2, "buy", 0},
		{"no-action", 0.9, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Risk(tt.exposure, tt.actionType)
			if !approx(got, tt.want) {
				t.Errorf("Risk(%.2f, %q) = %v, want %v", tt.exposure, tt.actionType, got, tt.want)
			}
		})
	}
}

func TestComposite_BankruptcyDominates(t *testing.T) {
	in := Inputs{
		StartingBalance: 10000,
		EndBalance:      0,
		FormatScore:     0.5,
		ReasoningScore:  1.0,
	}
	got := Composite(in, DefaultCompositeWeights())
	if got != BankruptcyPenalty {
		t.Errorf("bankrupt composite = %v, want %v regardless of quality", got, BankruptcyPenalty)
	}
}

func TestComposite_Bounded(t *testing.T) {
	inputs := []Inputs{
		{StartingBalance: 10000, EndBalance: 50000, FormatScore: 0.5, ReasoningScore: 1.0},
		{StartingBalance: 10000, EndBalance: 9000, FormatScore: -1.0, ReasoningScore: 0},
		{StartingBalance: 10000, EndBalance: 10100, RiskyActions: 3, FormatScore: 0.1, ReasoningScore: 0.2},
		{StartingBalance: 10000, EndBalance: 10000, FinalPnL: 300, TotalActions: 10, SuccessfulActions: 4},
	}
	for i, in := range inputs {
		got := Composite(in, DefaultCompositeWeights())
		if got < -1 || got > 1 {
			t.Errorf("composite %d = %v, want within [-1, 1]", i, got)
		}
	}
}

func TestComposite_PrimaryBlend(t *testing.T) {
	in := Inputs{
		StartingBalance: 10000,
		EndBalance:      10500, // pnl score 0.5
		FormatScore:     0.5,
		ReasoningScore:  0.8,
	}
	// (0.5*0.5 + 0.5*0.3 + 0.8*0.2) / 1.0
	want := 0.56
	got := Composite(in, DefaultCompositeWeights())
	if !approx(got, want) {
		t.Errorf("composite = %v, want %v", got, want)
	}
}

func TestComposite_LegacyPathWhenNoQuality(t *testing.T) {
	in := Inputs{
		StartingBalance:   10000,
		EndBalance:        10000,
		FinalPnL:          0,
		TotalActions:      4,
		SuccessfulActions: 4,
	}
	// All PnL sub-rewards are 0; action quality is 1.0 at weight 0.15.
	want := 0.15
	got := Composite(in, DefaultCompositeWeights())
	if !approx(got, want) {
		t.Errorf("legacy composite = %v, want %v", got, want)
	}
}

func TestRelativeScores(t *testing.T) {
	scores := RelativeScores([]float64{0.3, -0.5, 0.9, 0.0})
	want := []float64{2.0 / 3.0, 0, 1, 1.0 / 3.0}
	for i := range want {
		if !approx(scores[i], want[i]) {
			t.Errorf("score[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
}

func TestRelativeScores_SmallGroups(t *testing.T) {
	for _, rewards := range [][]float64{{}, {0.7}} {
		scores := RelativeScores(rewards)
		if len(scores) != len(rewards) {
			t.Fatalf("length mismatch: got %d, want %d", len(scores), len(rewards))
		}
		for i, s := range scores {
			if !approx(s, 0.5) {
				t.Errorf("score[%d] = %v, want neutral 0.5", i, s)
			}
		}
	}
}

func TestRelativeScores_Ties(t *testing.T) {
	scores := RelativeScores([]float64{0.5, 0.5, 0.5})
	// Stable sort keeps input order: ties get distinct ranks.
	for _, s := range scores {
		if s < 0 || s > 1 {
			t.Errorf("tie score %v out of [0, 1]", s)
		}
	}
}

func TestRankingToScores(t *testing.T) {
	scores := RankingToScores([]int{1, 3, 2})
	want := []float64{1, 0, 0.5}
	for i := range want {
		if !approx(scores[i], want[i]) {
			t.Errorf("score[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
}

func TestPairwisePreferencesToScores(t *testing.T) {
	prefs := []Preference{
		{Winner: 0, Loser: 1},
		{Winner: 0, Loser: 2},
		{Winner: 1, Loser: 2},
	}
	scores := PairwisePreferencesToScores(4, prefs)
	if !approx(scores[0], 1.0) {
		t.Errorf("undefeated item = %v, want 1.0", scores[0])
	}
	if !approx(scores[1], 0.5) {
		t.Errorf("split item = %v, want 0.5", scores[1])
	}
	if !approx(scores[2], 0.0) {
		t.Errorf("winless item = %v, want 0.0", scores[2])
	}
	if !approx(scores[3], 0.5) {
		t.Errorf("uncompared item = %v, want neutral 0.5", scores[3])
	}
}

func TestBounds_Randomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	extremes := []float64{0, -1, 1, 1e-9, -1e9, 1e9, 10000}
	pick := func() float64 {
		if rng.Intn(4) == 0 {
			return extremes[rng.Intn(len(extremes))]
		}
		return (rng.Float64() - 0.5) * 2e6
	}

	for i := 0; i < 2000; i++ {
		start, end := pick(), pick()
		got := PnL(start, end)
		if got != BankruptcyPenalty && (got < -1 || got > 1) {
			t.Fatalf("PnL(%v, %v) = %v, outside [-1, 1]", start, end, got)
		}

		in := Inputs{
			FinalPnL:          pick(),
			StartingBalance:   start,
			EndBalance:        end,
			PnLVariance:       rng.Float64() * 10,
			MaxDrawdown:       rng.Float64() * 1e5,
			MaxExposure:       rng.Float64() * 2,
			RiskyActions:      rng.Intn(5),
			FormatScore:       -1 + rng.Float64()*1.5,
			ReasoningScore:    rng.Float64(),
			Steps:             rng.Intn(100),
			TradesExecuted:    rng.Intn(20),
			SuccessfulTrades:  rng.Intn(20),
			TotalActions:      rng.Intn(40),
			SuccessfulActions: rng.Intn(40),
		}
		if rng.Intn(3) == 0 {
			in.FormatScore, in.ReasoningScore = 0, 0 // legacy path
		}
		c := Composite(in, DefaultCompositeWeights())
		if c != BankruptcyPenalty && (c < -1 || c > 1) {
			t.Fatalf("Composite(%+v) = %v, outside [-1, 1]", in, c)
		}
	}
}
