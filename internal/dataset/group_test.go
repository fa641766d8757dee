package dataset

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/agentcredit/go-credit/internal/trajectory"
)

// wordTokenizer is a trivial deterministic tokenizer for tests: one
// token per byte of assistant content, mask over everything.
type wordTokenizer struct {
	fail bool
}

func (w *wordTokenizer) Encode(messages []Message) ([]int, []int, error) {
	if w.fail {
		return nil, nil, errors.New("vocabulary missing")
	}
	var tokens, mask []int
	for _, m := range messages {
		for range m.Content {
			tokens = append(tokens, 1)
			if m.Role == "assistant" {
				mask = append(mask, 1)
			} else {
				mask = append(mask, 0)
			}
		}
	}
	return tokens, mask, nil
}

func spreadBuilder(t *testing.T, n int) *Builder {
	t.Helper()
	b := NewBuilder(DefaultBuilderConfig())
	for i := 0; i < n; i++ {
		step := actionStep(usableResponse, true)
		traj := buildTrajectory(fmt.Sprintf("traj-agent-trader-%d", i), step)
		b.AddTrajectory(traj, float64(i)/float64(n))
	}
	return b
}

func TestBuildTrainingData_MeanCentered(t *testing.T) {
	b := spreadBuilder(t, 8)

	groups, err := b.BuildTrainingData(trajectory.PurposeAction, 4, 0.001, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) == 0 {
		t.Fatal("expected groups")
	}

	for gi, g := range groups {
		sum := 0.0
		for _, s := range g.Scores {
			sum += s
		}
		if math.Abs(sum) > 1e-9 {
			t.Errorf("group %d scores sum to %v after centering, want 0", gi, sum)
		}
		if len(g.Messages) != len(g.Scores) {
			t.Errorf("group %d has %d transcripts for %d scores", gi, len(g.Messages), len(g.Scores))
		}
		if g.Purpose != trajectory.PurposeAction {
			t.Errorf("group %d purpose = %s", gi, g.Purpose)
		}
	}
}

func TestBuildTrainingData_Tokenized(t *testing.T) {
	b := spreadBuilder(t, 8)

	groups, err := b.BuildTrainingData(trajectory.PurposeAction, 4, 0.001, &wordTokenizer{})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) == 0 {
		t.Fatal("expected groups")
	}
	g := groups[0]
	if len(g.Tokens) != len(g.Scores) || len(g.Masks) != len(g.Scores) {
		t.Fatalf("tokens/masks not parallel to scores: %d/%d/%d", len(g.Tokens), len(g.Masks), len(g.Scores))
	}
	for i := range g.Tokens {
		if len(g.Tokens[i]) != len(g.Masks[i]) {
			t.Errorf("sample %d: %d tokens vs %d mask entries", i, len(g.Tokens[i]), len(g.Masks[i]))
		}
	}
}

func TestBuildTrainingData_TokenizerError(t *testing.T) {
	b := spreadBuilder(t, 8)

	if _, err := b.BuildTrainingData(trajectory.PurposeAction, 4, 0.001, &wordTokenizer{fail: true}); err == nil {
		t.Fatal("tokenizer failure must propagate")
	}
}

func TestBuildTrainingData_EmptyPurpose(t *testing.T) {
	b := spreadBuilder(t, 8)

	groups, err := b.BuildTrainingData(trajectory.PurposeEvaluation, 4, 0.001, nil)
	if err != nil {
		t.Fatal(err)
	}
	if groups != nil {
		t.Errorf("purpose with no samples should yield no groups, got %d", len(groups))
	}
}
