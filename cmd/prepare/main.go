package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/agentcredit/go-credit/internal/archetype"
	"github.com/agentcredit/go-credit/internal/attribution"
	"github.com/agentcredit/go-credit/internal/config"
	"github.com/agentcredit/go-credit/internal/dataset"
	"github.com/agentcredit/go-credit/internal/relative"
	"github.com/agentcredit/go-credit/internal/store"
	"github.com/agentcredit/go-credit/internal/trainer"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #region main
func main() {
	configPath := flag.String("config", "", "path to pipeline config YAML")
	inputDir := flag.String("input", "", "directory of trajectory JSON files to ingest before preparing")
	limit := flag.Int("limit", 100, "max trajectories to prepare")
	windowID := flag.String("window", "", "prepare only trajectories from this evaluation window")
	outPath := flag.String("out", "", "write prepared groups as JSON to this file")
	submit := flag.Bool("submit", false, "submit prepared groups to the training service")
	verbose := flag.Bool("verbose", false, "log rejected calls")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	if *inputDir != "" {
		n, err := ingestDir(st, *inputDir)
		if err != nil {
			log.Fatalf("ingest %s: %v", *inputDir, err)
		}
		fmt.Printf("Ingested %d trajectories from %s\n", n, *inputDir)
	}

	var trajs []trajectory.Trajectory
	if *windowID != "" {
		trajs, err = st.ListWindow(*windowID)
	} else {
		trajs, err = st.ListTrajectories(*limit)
	}
	if err != nil {
		log.Fatalf("list trajectories: %v", err)
	}
	if len(trajs) == 0 {
		fmt.Println("No trajectories stored. Use -input or the seed tool first.")
		os.Exit(1)
	}
	fmt.Printf("Preparing %d trajectories\n", len(trajs))

	if cfg.ArchetypeConfigPath != "" {
		arch, err := archetype.LoadConfig(cfg.ArchetypeConfigPath)
		if err != nil {
			log.Fatalf("load archetype config: %v", err)
		}
		warnMissingRubrics(arch, trajs)
	}

	// Score the cohort relative to itself.
	scores := relative.ScoreGroup(trajs)
	for i, traj := range trajs {
		if err := st.SaveScore(traj.TrajectoryID, scores[i]); err != nil {
			log.Printf("save score for %s: %v", traj.TrajectoryID, err)
		}
	}

	// Tick-level credit assignment, persisted per trajectory and folded
	// back into steps that carry no reward of their own.
	attributor := attribution.New(cfg.Attribution)
	for i := range trajs {
		results := attributeTrajectory(attributor, &trajs[i])
		if err := st.SaveAttribution(trajs[i].TrajectoryID, results); err != nil {
			log.Printf("save attribution for %s: %v", trajs[i].TrajectoryID, err)
		}
	}

	builderCfg := cfg.Builder
	groups, err := prepareGroups(trajs, scores, builderCfg, cfg.Grouping, *verbose)
	if err != nil {
		log.Fatalf("prepare groups: %v", err)
	}

	total := 0
	for p, gs := range groups {
		total += len(gs)
		fmt.Printf("  %-10s %d groups\n", p, len(gs))
	}
	fmt.Printf("Prepared %d training groups\n", total)

	if *outPath != "" {
		if err := writeGroups(*outPath, groups); err != nil {
			log.Fatalf("write %s: %v", *outPath, err)
		}
		fmt.Printf("Wrote groups to %s\n", *outPath)
	}

	if !*submit {
		return
	}

	client, err := trainer.NewClient(cfg.Trainer.Addr, time.Duration(cfg.Trainer.TimeoutSeconds)*time.Second)
	if err != nil {
		log.Fatalf("failed to connect to trainer at %s: %v", cfg.Trainer.Addr, err)
	}
	defer client.Close()

	metrics, err := client.SubmitBatch(context.Background(), groups)
	if err != nil {
		log.Fatalf("submit batch (%d groups sent): %v", len(metrics), err)
	}
	for _, m := range metrics {
		fmt.Printf("[step %d] loss=%.4f kl=%.4f accepted=%v\n", m.Step, m.Loss, m.KL, m.Accepted)
	}
}

// #endregion main

// #region pipeline

// attributeTrajectory runs tick-level credit assignment over one
// trajectory and backfills step rewards that were never recorded.
func attributeTrajectory(a *attribution.Attributor, traj *trajectory.Trajectory) []attribution.TickResult {
	ticks := make([]trajectory.Tick, len(traj.Steps))
	marks := make([][]attribution.Mark, len(traj.Steps))
	for i, s := range traj.Steps {
		ticks[i] = trajectory.TickFromStep(traj.AgentID, s)
		marks[i] = attribution.MarkCalls(s.LLMCalls, s.Action)
	}

	results := a.AttributeBatch(ticks, marks)

	for i, r := range results {
		if !r.HasOutcome || traj.Steps[i].Reward != 0 {
			continue
		}
		sum := 0.0
		for _, c := range r.Calls {
			sum += c.Reward
		}
		traj.Steps[i].Reward = sum
	}
	return results
}

func prepareGroups(
	trajs []trajectory.Trajectory,
	scores []float64,
	builderCfg dataset.BuilderConfig,
	grouping config.GroupingConfig,
	verbose bool,
) (map[trajectory.Purpose][]dataset.ScoredGroup, error) {
	if verbose {
		b := dataset.NewBuilder(builderCfg)
		b.Verbose = true
		for i, traj := range trajs {
			b.AddTrajectory(traj, scores[i])
		}
		result := make(map[trajectory.Purpose][]dataset.ScoredGroup)
		for _, p := range trajectory.Purposes {
			gs, err := b.BuildTrainingData(p, grouping.GroupSize, grouping.MinScoreVariance, nil)
			if err != nil {
				return nil, err
			}
			if len(gs) > 0 {
				result[p] = gs
			}
		}
		return result, nil
	}
	return dataset.PrepareTrainingData(trajs, scores, builderCfg, grouping.GroupSize, grouping.MinScoreVariance, nil)
}

// warnMissingRubrics flags archetypes in the cohort that fall back to
// the default evaluation rubric.
func warnMissingRubrics(arch archetype.Config, trajs []trajectory.Trajectory) {
	seen := make(map[string]bool)
	for _, traj := range trajs {
		if traj.Archetype == "" || seen[traj.Archetype] {
			continue
		}
		seen[traj.Archetype] = true
		if !arch.HasCustomRubric(traj.Archetype) {
			log.Printf("[PREPARE] archetype %q has no custom rubric, using default", traj.Archetype)
		}
	}
}

// writeGroups serializes the prepared groups for offline training runs.
func writeGroups(path string, groups map[trajectory.Purpose][]dataset.ScoredGroup) error {
	data, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// #endregion pipeline

// #region ingest

// ingestDir loads every .json file in a directory as one trajectory.
func ingestDir(st *store.Store, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return count, fmt.Errorf("read %s: %w", path, err)
		}
		traj, err := trajectory.Decode(data)
		if err != nil {
			log.Printf("skip %s: %v", e.Name(), err)
			continue
		}
		if _, err := st.SaveTrajectory(traj); err != nil {
			return count, fmt.Errorf("save %s: %w", traj.TrajectoryID, err)
		}
		count++
	}
	return count, nil
}

// #endregion ingest
