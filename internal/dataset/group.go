package dataset

// #region imports
import (
	"fmt"

	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #endregion

// #region tokenizer

// Tokenizer converts a chat transcript into model token ids plus a
// training mask (1 for tokens the loss applies to, 0 for prompt
// tokens). A nil Tokenizer defers tokenization to the training side
// and groups carry the raw messages only.
type Tokenizer interface {
	Encode(messages []Message) (tokens []int, mask []int, err error)
}

// #endregion tokenizer

// #region scored-group

// ScoredGroup is one training group ready for a policy-gradient step.
// Scores are mean-centered within the group; a group whose raw scores
// were identical carries all zeros and contributes no gradient.
type ScoredGroup struct {
	Purpose  trajectory.Purpose `json:"purpose"`
	Tokens   [][]int            `json:"tokens,omitempty"`
	Masks    [][]int            `json:"masks,omitempty"`
	Scores   []float64          `json:"scores"`
	Messages [][]Message        `json:"messages"`

	// RawMean is the group's score mean before centering, kept for
	// diagnostics.
	RawMean float64 `json:"rawMean"`
}

// newScoredGroup centers the samples' weighted scores and optionally
// tokenizes the transcripts. A tokenization failure fails the whole
// group; dropping the sample instead would shrink the group below
// groupSize and skew the centered scores.
func newScoredGroup(p trajectory.Purpose, samples []*Sample, tok Tokenizer) (ScoredGroup, error) {
	kept := samples
	var tokens [][]int
	var masks [][]int

	if tok != nil {
		kept = make([]*Sample, 0, len(samples))
		for _, s := range samples {
			toks, mask, err := tok.Encode(s.Messages())
			if err != nil {
				return ScoredGroup{}, fmt.Errorf("tokenize sample %s/%d/%d: %w",
					s.TrajectoryID, s.StepNumber, s.CallIndex, err)
			}
			tokens = append(tokens, toks)
			masks = append(masks, mask)
			kept = append(kept, s)
		}
	}

	scores := make([]float64, len(kept))
	messages := make([][]Message, len(kept))
	var sum float64
	for i, s := range kept {
		scores[i] = s.WeightedScore()
		messages[i] = s.Messages()
		sum += scores[i]
	}
	mean := 0.0
	if len(kept) > 0 {
		mean = sum / float64(len(kept))
	}
	for i := range scores {
		scores[i] -= mean
	}

	return ScoredGroup{
		Purpose:  p,
		Tokens:   tokens,
		Masks:    masks,
		Scores:   scores,
		Messages: messages,
		RawMean:  mean,
	}, nil
}

// #endregion scored-group

// #region build

// BuildTrainingData assembles one purpose's accumulated samples into
// mean-centered training groups. Purposes without enough spread or
// samples produce no groups, which is expected and not an error.
func (b *Builder) BuildTrainingData(p trajectory.Purpose, groupSize int, minScoreVariance float64, tok Tokenizer) ([]ScoredGroup, error) {
	d := b.datasets[p]
	raw := d.TrainingGroups(groupSize, minScoreVariance, 0)
	if len(raw) == 0 {
		return nil, nil
	}

	groups := make([]ScoredGroup, 0, len(raw))
	for _, samples := range raw {
		g, err := newScoredGroup(p, samples, tok)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// #endregion build
