package replay

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentcredit/go-credit/internal/attribution"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

func writeFixtureFile(t *testing.T, f *Fixture) string {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadFixtureRoundTrip(t *testing.T) {
	exported := Export("round trip", cohort(), attribution.DefaultConfig())
	path := writeFixtureFile(t, exported)

	loaded, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if loaded.Description != "round trip" {
		t.Errorf("description = %q", loaded.Description)
	}
	if len(loaded.Trajectories) != 3 || len(loaded.Expected) != 3 {
		t.Fatalf("loaded %d trajectories / %d expectations, want 3/3",
			len(loaded.Trajectories), len(loaded.Expected))
	}

	if summary := Run(loaded); !summary.Ok() {
		t.Fatalf("loaded fixture failed replay: %d/%d passed",
			summary.Passed, summary.TotalTrajectories)
	}
}

func TestLoadFixtureDefaultsTolerance(t *testing.T) {
	f := &Fixture{Trajectories: cohort()}
	loaded, err := LoadFixture(writeFixtureFile(t, f))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if loaded.Tolerance != DefaultTolerance {
		t.Errorf("tolerance = %g, want default %g", loaded.Tolerance, DefaultTolerance)
	}
}

func TestLoadFixtureNormalizesTrajectories(t *testing.T) {
	trajs := cohort()
	trajs[0].Steps[0].LLMCalls[0].Purpose = "daydreaming"
	loaded, err := LoadFixture(writeFixtureFile(t, &Fixture{Trajectories: trajs}))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if got := loaded.Trajectories[0].Steps[0].LLMCalls[0].Purpose; got != trajectory.PurposeOther {
		t.Errorf("unknown purpose coerced to %q, want %q", got, trajectory.PurposeOther)
	}
}

func TestLoadFixtureErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFixture(filepath.Join(dir, "nope.json")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFixture(path); err == nil {
			t.Fatal("expected error for malformed fixture")
		}
	})

	t.Run("no trajectories", func(t *testing.T) {
		path := writeFixtureFile(t, &Fixture{Description: "empty"})
		if _, err := LoadFixture(path); err == nil {
			t.Fatal("expected error for fixture without trajectories")
		}
	})
}

func TestAttributionConfigFallback(t *testing.T) {
	f := &Fixture{Trajectories: cohort()}
	if got, want := f.AttributionConfig(), attribution.DefaultConfig(); got != want {
		t.Errorf("default config = %+v, want %+v", got, want)
	}

	custom := attribution.DefaultConfig()
	custom.Action = 0.7
	custom.Reasoning = 0.05
	f.Attribution = &custom
	if got := f.AttributionConfig(); got != custom {
		t.Errorf("config = %+v, want %+v", got, custom)
	}
}
