package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/agentcredit/go-credit/internal/archetype"
	"github.com/agentcredit/go-credit/internal/dataset"
	"github.com/agentcredit/go-credit/internal/quality"
	"github.com/agentcredit/go-credit/internal/relative"
	"github.com/agentcredit/go-credit/internal/store"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #region main
func main() {
	dbPath := flag.String("db", "credit.db", "path to trajectory database")
	id := flag.String("id", "", "show single trajectory detail")
	last := flag.Int("last", 20, "show N most recent trajectories")
	datasets := flag.Bool("datasets", false, "show per-purpose dataset statistics and diversity")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	st, err := store.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	if *id != "" {
		if err := showDetail(st, *id, *jsonOut); err != nil {
			log.Fatalf("inspect %s: %v", *id, err)
		}
		return
	}

	if *datasets {
		if err := showDatasets(st, *last, *jsonOut); err != nil {
			log.Fatalf("inspect datasets: %v", err)
		}
		return
	}

	if err := showList(st, *last, *jsonOut); err != nil {
		log.Fatalf("inspect: %v", err)
	}
}

// #endregion main

// #region list

type summaryRow struct {
	TrajectoryID string  `json:"trajectoryId"`
	AgentID      string  `json:"agentId"`
	Archetype    string  `json:"archetype,omitempty"`
	Ticks        int     `json:"ticks"`
	FinalPnL     float64 `json:"finalPnl"`
	Composite    float64 `json:"composite"`
	Quality      float64 `json:"quality"`
	StoredScore  float64 `json:"storedScore"`
	HasScore     bool    `json:"hasScore"`
}

type trajectoryWithScore struct {
	t        trajectory.Trajectory
	score    float64
	hasScore bool
}

func summarize(traj trajectoryWithScore) summaryRow {
	weights := archetype.LookupWeights(traj.t.Archetype)
	return summaryRow{
		TrajectoryID: traj.t.TrajectoryID,
		AgentID:      traj.t.AgentID,
		Archetype:    traj.t.Archetype,
		Ticks:        len(traj.t.Steps),
		FinalPnL:     traj.t.FinalPnL,
		Composite:    relative.TrajectoryReward(traj.t),
		Quality:      quality.TrajectoryQualityScore(traj.t.Steps, weights),
		StoredScore:  traj.score,
		HasScore:     traj.hasScore,
	}
}

func showList(st *store.Store, limit int, jsonOut bool) error {
	trajs, err := st.ListTrajectories(limit)
	if err != nil {
		return err
	}

	rows := make([]summaryRow, 0, len(trajs))
	for _, traj := range trajs {
		score, ok, err := st.LoadScore(traj.TrajectoryID)
		if err != nil {
			return err
		}
		rows = append(rows, summarize(trajectoryWithScore{t: traj, score: score, hasScore: ok}))
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	fmt.Printf("%-36s %-18s %6s %10s %9s %8s %8s\n",
		"TRAJECTORY", "AGENT", "TICKS", "PNL", "COMPOSITE", "QUALITY", "SCORE")
	for _, r := range rows {
		scoreStr := "-"
		if r.HasScore {
			scoreStr = fmt.Sprintf("%.3f", r.StoredScore)
		}
		fmt.Printf("%-36s %-18s %6d %10.2f %9.3f %8.3f %8s\n",
			r.TrajectoryID, r.AgentID, r.Ticks, r.FinalPnL, r.Composite, r.Quality, scoreStr)
	}
	return nil
}

// #endregion list

// #region datasets

type datasetView struct {
	Purpose   trajectory.Purpose       `json:"purpose"`
	Stats     dataset.PurposeStats     `json:"stats"`
	Diversity dataset.DiversityMetrics `json:"diversity"`
	Ready     bool                     `json:"ready"`
	Issues    []string                 `json:"issues,omitempty"`
}

func showDatasets(st *store.Store, limit int, jsonOut bool) error {
	trajs, err := st.ListTrajectories(limit)
	if err != nil {
		return err
	}
	if len(trajs) == 0 {
		fmt.Println("No trajectories stored.")
		return nil
	}

	fallback := relative.ScoreGroup(trajs)
	b := dataset.NewBuilder(dataset.DefaultBuilderConfig())
	for i, traj := range trajs {
		score, ok, err := st.LoadScore(traj.TrajectoryID)
		if err != nil {
			return err
		}
		if !ok {
			score = fallback[i]
		}
		b.AddTrajectory(traj, score)
	}

	stats := b.Statistics()
	var views []datasetView
	for _, p := range trajectory.Purposes {
		d := b.Dataset(p)
		if len(d.Samples) == 0 {
			continue
		}
		ready, issues := d.DiverseEnough(2, 3, 0.01)
		views = append(views, datasetView{
			Purpose:   p,
			Stats:     stats.ByPurpose[p],
			Diversity: d.Diversity(),
			Ready:     ready,
			Issues:    issues,
		})
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	fmt.Printf("%d trajectories, %d samples, %d calls skipped\n",
		stats.TotalTrajectories, stats.TotalSamples, stats.SkippedCalls)
	for _, v := range views {
		status := "ready"
		if !v.Ready {
			status = "NOT READY"
		}
		fmt.Printf("%-10s samples=%d avg=%.3f var=%.4f actions=%d trajectories=%d [%s]\n",
			v.Purpose, v.Stats.Count, v.Stats.AvgScore, v.Stats.ScoreVariance,
			v.Diversity.UniqueActionTypes, v.Diversity.UniqueTrajectories, status)
		for _, issue := range v.Issues {
			fmt.Printf("    - %s\n", issue)
		}
	}
	return nil
}

// #endregion datasets

// #region detail

type detailView struct {
	Summary     summaryRow               `json:"summary"`
	Difficulty  quality.Difficulty       `json:"difficulty"`
	Validation  quality.ValidationReport `json:"validation"`
	Attribution []tickAttributionView    `json:"attribution,omitempty"`
}

type tickAttributionView struct {
	Tick       int                `json:"tick"`
	HasOutcome bool               `json:"hasOutcome"`
	Rewards    map[string]float64 `json:"rewards"`
}

func showDetail(st *store.Store, id string, jsonOut bool) error {
	traj, err := st.LoadTrajectory(id)
	if err != nil {
		return err
	}
	weights := archetype.LookupWeights(traj.Archetype)

	score, hasScore, err := st.LoadScore(id)
	if err != nil {
		return err
	}

	view := detailView{
		Summary:    summarize(trajectoryWithScore{t: traj, score: score, hasScore: hasScore}),
		Difficulty: quality.AssessDifficulty(traj.Steps),
		Validation: quality.ValidateTrajectory(traj.Steps, weights, quality.DefaultValidationThresholds()),
	}

	results, err := st.LoadAttribution(id)
	if err != nil {
		return err
	}
	for _, r := range results {
		rewards := make(map[string]float64)
		for _, c := range r.Calls {
			rewards[fmt.Sprintf("call%d_%s", c.CallIndex, c.Purpose)] = c.Reward
		}
		view.Attribution = append(view.Attribution, tickAttributionView{
			Tick:       r.TickNumber,
			HasOutcome: r.HasOutcome,
			Rewards:    rewards,
		})
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	s := view.Summary
	fmt.Printf("Trajectory %s\n", s.TrajectoryID)
	fmt.Printf("  agent=%s archetype=%s ticks=%d\n", s.AgentID, s.Archetype, s.Ticks)
	fmt.Printf("  pnl=%.2f composite=%.3f quality=%.3f\n", s.FinalPnL, s.Composite, s.Quality)
	if s.HasScore {
		fmt.Printf("  stored score: %.3f\n", s.StoredScore)
	}
	fmt.Printf("  difficulty: %s (%.2f)\n", view.Difficulty.Level, view.Difficulty.Score)
	for _, reason := range view.Difficulty.Reasons {
		fmt.Printf("    - %s\n", reason)
	}
	if view.Validation.Valid {
		fmt.Println("  validation: OK")
	} else {
		fmt.Println("  validation: FAILED")
		for _, issue := range view.Validation.Issues {
			fmt.Printf("    - %s\n", issue)
		}
	}
	for _, t := range view.Attribution {
		fmt.Printf("  tick %d (outcome=%v):", t.Tick, t.HasOutcome)
		for k, v := range t.Rewards {
			fmt.Printf(" %s=%.3f", k, v)
		}
		fmt.Println()
	}
	return nil
}

// #endregion detail
