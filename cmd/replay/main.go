package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/agentcredit/go-credit/internal/attribution"
	"github.com/agentcredit/go-credit/internal/replay"
	"github.com/agentcredit/go-credit/internal/store"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to credit.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	exportPath := flag.String("export", "", "with -db: write a golden fixture here instead of comparing")
	limit := flag.Int("limit", 0, "max trajectories to replay from the DB (0 = all)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay -db path/to/credit.db [-export fixture.json] [-limit n]")
		fmt.Fprintln(os.Stderr, "       replay -fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *exportPath, *limit)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return printSummary(replay.Run(f))
}

// #endregion fixture-mode

// #region db-mode

// runDBMode replays stored trajectories and compares the fresh pipeline
// output against the scores and attribution saved at ingest time. With
// -export it instead freezes the fresh output as a golden fixture.
func runDBMode(dbPath, exportPath string, limit int) int {
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	trajs, err := st.ListTrajectories(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list trajectories: %v\n", err)
		return 2
	}
	if len(trajs) == 0 {
		fmt.Fprintln(os.Stderr, "no trajectories stored")
		return 2
	}

	if exportPath != "" {
		return exportFixture(exportPath, trajs)
	}

	f := &replay.Fixture{
		Description:  "stored pipeline outputs from " + dbPath,
		Tolerance:    replay.DefaultTolerance,
		Trajectories: trajs,
	}
	for _, traj := range trajs {
		exp, err := storedExpectation(st, traj)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load expectations for %s: %v\n", traj.TrajectoryID, err)
			return 2
		}
		f.Expected = append(f.Expected, exp)
	}

	return printSummary(replay.Run(f))
}

// storedExpectation turns a trajectory's saved score and attribution
// rows into a fixture expectation.
func storedExpectation(st *store.Store, traj trajectory.Trajectory) (replay.FixtureExpectation, error) {
	exp := replay.FixtureExpectation{TrajectoryID: traj.TrajectoryID}

	score, ok, err := st.LoadScore(traj.TrajectoryID)
	if err != nil {
		return exp, err
	}
	if ok {
		exp.Score = &score
	}

	results, err := st.LoadAttribution(traj.TrajectoryID)
	if err != nil {
		return exp, err
	}
	for _, tr := range results {
		rewards := make([]float64, len(tr.Calls))
		for i, c := range tr.Calls {
			rewards[i] = c.Reward
		}
		exp.TickRewards = append(exp.TickRewards, replay.FixtureTickCalls{
			Tick:       tr.TickNumber,
			HasOutcome: tr.HasOutcome,
			Rewards:    rewards,
		})
	}
	return exp, nil
}

func exportFixture(path string, trajs []trajectory.Trajectory) int {
	f := replay.Export("exported from stored trajectories", trajs, attribution.DefaultConfig())
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal fixture: %v\n", err)
		return 2
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write fixture: %v\n", err)
		return 2
	}
	fmt.Printf("wrote fixture with %d trajectories to %s\n", len(trajs), path)
	return 0
}

// #endregion db-mode

// #region output

// printSummary outputs a comparison table and returns the exit code.
func printSummary(summary replay.Summary) int {
	fmt.Printf("%-38s| %-10s| %s\n", "Trajectory", "Score", "Result")
	fmt.Printf("%-38s+%-11s+%s\n",
		"--------------------------------------", "-----------", "--------")

	for _, res := range summary.Results {
		verdict := "OK"
		if !res.Passed() {
			verdict = "DIFF"
		}
		fmt.Printf("%-38s| %-10.4f| %s\n", res.TrajectoryID, res.Score, verdict)
		for _, m := range res.Mismatches {
			fmt.Printf("    %s\n", m)
		}
	}

	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n",
		summary.TotalTrajectories, summary.Passed, summary.Failed)

	if summary.Failed > 0 {
		return 1
	}
	return 0
}

// #endregion output
