// Package replay re-runs recorded trajectories through the credit
// pipeline and checks the results against golden expectations, so
// attribution and scoring changes are caught before they reach
// training.
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentcredit/go-credit/internal/attribution"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: the
// recorded trajectories plus the expected pipeline outputs.
type Fixture struct {
	Description  string                  `json:"description"`
	Attribution  *attribution.Config     `json:"attribution,omitempty"`
	Tolerance    float64                 `json:"tolerance,omitempty"`
	Trajectories []trajectory.Trajectory `json:"trajectories"`
	Expected     []FixtureExpectation    `json:"expected"`
}

// FixtureExpectation captures the expected outputs for one trajectory.
type FixtureExpectation struct {
	TrajectoryID string             `json:"trajectoryId"`
	Score        *float64           `json:"score,omitempty"`
	TickRewards  []FixtureTickCalls `json:"tickRewards,omitempty"`
}

// FixtureTickCalls is the expected per-call attribution for one tick.
type FixtureTickCalls struct {
	Tick       int       `json:"tick"`
	HasOutcome bool      `json:"hasOutcome"`
	Rewards    []float64 `json:"rewards"`
}

// #endregion fixture-types

// #region fixture-loader

// DefaultTolerance is the comparison slack when a fixture does not set
// its own.
const DefaultTolerance = 1e-6

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Trajectories) == 0 {
		return nil, fmt.Errorf("fixture %s: no trajectories", path)
	}
	for i := range f.Trajectories {
		trajectory.Normalize(&f.Trajectories[i])
	}
	if f.Tolerance <= 0 {
		f.Tolerance = DefaultTolerance
	}
	return &f, nil
}

// AttributionConfig returns the fixture's attribution config or the
// default when unset.
func (f *Fixture) AttributionConfig() attribution.Config {
	if f.Attribution != nil {
		return *f.Attribution
	}
	return attribution.DefaultConfig()
}

// #endregion fixture-loader
