package dataset

// #region imports
import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #endregion

// #region diversity-metrics

// DiversityMetrics summarizes how varied a dataset's samples are.
type DiversityMetrics struct {
	UniqueActionTypes      int            `json:"uniqueActionTypes"`
	UniqueTrajectories     int            `json:"uniqueTrajectories"`
	ScoreQuartiles         []float64      `json:"scoreQuartiles,omitempty"` // [Q1, Q2, Q3]
	ActionTypeDistribution map[string]int `json:"actionTypeDistribution"`
	ArchetypeDistribution  map[string]int `json:"archetypeDistribution"`
}

// #endregion diversity-metrics

// #region dataset

// Dataset accumulates samples of a single purpose and tracks running
// score statistics and diversity counters. Single writer; mean and
// variance are recomputed from the full sample list on every add.
type Dataset struct {
	Purpose trajectory.Purpose
	Samples []*Sample

	AvgScore      float64
	ScoreVariance float64

	actionTypes map[string]struct{}
	trajIDs     map[string]struct{}
	archetypes  map[string]int
}

// NewDataset creates an empty dataset for one purpose.
func NewDataset(purpose trajectory.Purpose) *Dataset {
	return &Dataset{
		Purpose:     purpose,
		actionTypes: make(map[string]struct{}),
		trajIDs:     make(map[string]struct{}),
		archetypes:  make(map[string]int),
	}
}

// Add appends a sample and refreshes statistics and diversity counters.
func (d *Dataset) Add(s *Sample) {
	d.Samples = append(d.Samples, s)

	if s.ActionType != "" {
		d.actionTypes[s.ActionType] = struct{}{}
	}
	d.trajIDs[s.TrajectoryID] = struct{}{}

	// Trajectory ids follow traj-agent-{archetype}-{n}.
	parts := strings.Split(s.TrajectoryID, "-")
	if len(parts) >= 3 {
		archetype := "unknown"
		if len(parts) > 3 {
			archetype = parts[2]
		}
		d.archetypes[archetype]++
	}

	d.updateStats()
}

func (d *Dataset) updateStats() {
	if len(d.Samples) == 0 {
		return
	}
	scores := make([]float64, len(d.Samples))
	sum := 0.0
	for i, s := range d.Samples {
		scores[i] = s.WeightedScore()
		sum += scores[i]
	}
	d.AvgScore = sum / float64(len(scores))
	if len(scores) > 1 {
		v := 0.0
		for _, sc := range scores {
			diff := sc - d.AvgScore
			v += diff * diff
		}
		d.ScoreVariance = v / float64(len(scores))
	}
}

// #endregion dataset

// #region diversity

// Diversity computes the dataset's diversity metrics.
func (d *Dataset) Diversity() DiversityMetrics {
	m := DiversityMetrics{
		ActionTypeDistribution: make(map[string]int),
		ArchetypeDistribution:  make(map[string]int),
	}
	if len(d.Samples) == 0 {
		return m
	}

	m.UniqueActionTypes = len(d.actionTypes)
	m.UniqueTrajectories = len(d.trajIDs)

	for _, s := range d.Samples {
		if s.ActionType != "" {
			m.ActionTypeDistribution[s.ActionType]++
		}
	}
	for k, v := range d.archetypes {
		m.ArchetypeDistribution[k] = v
	}

	scores := make([]float64, len(d.Samples))
	for i, s := range d.Samples {
		scores[i] = s.WeightedScore()
	}
	sort.Float64s(scores)
	if n := len(scores); n >= 4 {
		m.ScoreQuartiles = []float64{scores[n/4], scores[n/2], scores[3*n/4]}
	}
	return m
}

// DiverseEnough is the pre-training sanity gate: enough distinct action
// types, enough source trajectories, enough score spread. It reports
// issues to the caller; nothing is enforced internally.
func (d *Dataset) DiverseEnough(minActionTypes, minTrajectories int, minScoreVariance float64) (bool, []string) {
	var issues []string

	if len(d.actionTypes) < minActionTypes {
		issues = append(issues, fmt.Sprintf("Low action diversity: %d < %d", len(d.actionTypes), minActionTypes))
	}
	if len(d.trajIDs) < minTrajectories {
		issues = append(issues, fmt.Sprintf("Low trajectory diversity: %d < %d", len(d.trajIDs), minTrajectories))
	}
	if d.ScoreVariance < minScoreVariance {
		issues = append(issues, fmt.Sprintf("Low score variance: %.4f < %.4f", d.ScoreVariance, minScoreVariance))
	}

	return len(issues) == 0, issues
}

// #endregion diversity

// #region training-groups

// TrainingGroups builds fixed-size groups whose members span the score
// distribution. Samples are sorted by weighted score; a window slides by
// stride (default groupSize/2) and each window picks groupSize
// evenly-spaced samples rather than contiguous ones, since contiguous
// picks from a sorted list would have near-identical scores and carry no
// relative signal. Groups under minScoreVariance are dropped.
func (d *Dataset) TrainingGroups(groupSize int, minScoreVariance float64, stride int) [][]*Sample {
	if groupSize < 2 || len(d.Samples) < groupSize {
		return nil
	}
	if stride <= 0 {
		stride = groupSize / 2
	}
	if stride == 0 {
		stride = 1
	}

	sorted := make([]*Sample, len(d.Samples))
	copy(sorted, d.Samples)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].WeightedScore() < sorted[b].WeightedScore()
	})

	var groups [][]*Sample
	n := len(sorted)
	step := n / groupSize

	for i := 0; i <= n-groupSize; i += stride {
		group := make([]*Sample, 0, groupSize)
		for j := 0; j < groupSize; j++ {
			idx := i + j*step
			if idx > n-1 {
				idx = n - 1
			}
			group = append(group, sorted[idx])
		}

		if groupVariance(group) >= minScoreVariance {
			groups = append(groups, group)
		}
	}

	return groups
}

func groupVariance(group []*Sample) float64 {
	if len(group) == 0 {
		return 0
	}
	mean := 0.0
	scores := make([]float64, len(group))
	for i, s := range group {
		scores[i] = s.WeightedScore()
		mean += scores[i]
	}
	mean /= float64(len(scores))
	v := 0.0
	for _, sc := range scores {
		diff := sc - mean
		v += diff * diff
	}
	return v / float64(len(scores))
}

// #endregion training-groups
