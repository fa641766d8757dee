package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/agentcredit/go-credit/internal/store"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #region main
func main() {
	dbPath := flag.String("db", "credit.db", "path to trajectory database")
	count := flag.Int("count", 8, "trajectories to generate")
	ticks := flag.Int("ticks", 10, "ticks per trajectory")
	arch := flag.String("archetype", "trader", "agent archetype")
	windowID := flag.String("window", "", "evaluation window id to stamp on each trajectory")
	seed := flag.Int64("seed", 0, "rng seed (0 = time-based)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	st, err := store.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	fmt.Printf("Seeding %d trajectories (%d ticks, archetype=%s, seed=%d)\n", *count, *ticks, *arch, *seed)
	for i := 0; i < *count; i++ {
		traj := synthTrajectory(rng, *arch, *ticks)
		traj.WindowID = *windowID
		saved, err := st.SaveTrajectory(traj)
		if err != nil {
			log.Fatalf("save trajectory: %v", err)
		}
		fmt.Printf("  %s pnl=%.2f ticks=%d\n", saved.TrajectoryID, saved.FinalPnL, len(saved.Steps))
	}
}

// #endregion main

// #region generator

var seedActions = []string{"buy", "sell", "wait", "post", "respond"}

var seedTickers = []string{"BTC", "ETH", "SOL", "DOGE"}

// synthTrajectory generates a plausible agent episode: reasoning plus a
// decision call per tick, balance drifting with each trade.
func synthTrajectory(rng *rand.Rand, arch string, ticks int) trajectory.Trajectory {
	agentID := fmt.Sprintf("agent-%s-%s", arch, uuid.New().String()[:8])
	balance := 10000.0
	now := time.Now().Unix()

	var steps []trajectory.Step
	trades, wins := 0, 0
	for i := 0; i < ticks; i++ {
		actionType := seedActions[rng.Intn(len(seedActions))]
		ticker := seedTickers[rng.Intn(len(seedTickers))]
		amount := 50.0 + rng.Float64()*450.0

		pnlDelta := 0.0
		success := true
		if actionType == "buy" || actionType == "sell" {
			trades++
			pnlDelta = (rng.Float64() - 0.45) * amount * 0.2
			success = rng.Float64() < 0.8
			if success && pnlDelta > 0 {
				wins++
			}
		}
		balance += pnlDelta

		reasoning := synthReasoning(rng, actionType, ticker)
		steps = append(steps, trajectory.Step{
			StepNumber: i,
			Timestamp:  now + int64(i)*60,
			EnvironmentState: trajectory.EnvironmentState{
				AgentBalance:  balance,
				AgentPnL:      balance - 10000.0,
				OpenPositions: rng.Intn(4),
				ActiveMarkets: 3 + rng.Intn(5),
			},
			LLMCalls: []trajectory.LLMCall{
				{
					Model:        "seed-model",
					SystemPrompt: "You are a trading agent. Analyze the market and decide.",
					UserPrompt:   fmt.Sprintf("Tick %d. Balance %.2f. What is your move on %s?", i, balance, ticker),
					Response:     reasoning,
					Temperature:  0.7,
					Purpose:      trajectory.PurposeReasoning,
				},
				{
					Model:        "seed-model",
					SystemPrompt: "Emit your final decision as XML.",
					UserPrompt:   fmt.Sprintf("Decide based on: %s", reasoning),
					Response:     synthDecision(actionType, ticker, amount),
					Temperature:  0.2,
					Purpose:      trajectory.PurposeAction,
					ActionType:   actionType,
				},
			},
			Action: &trajectory.Action{
				ActionType: actionType,
				Parameters: map[string]any{"ticker": ticker, "amount": amount},
				Success:    success,
				Reasoning:  reasoning,
			},
			Feedback: map[string]any{"pnl_delta": pnlDelta},
		})
	}

	return trajectory.Trajectory{
		TrajectoryID:     uuid.New().String(),
		AgentID:          agentID,
		Archetype:        arch,
		Steps:            steps,
		FinalPnL:         balance - 10000.0,
		FinalBalance:     balance,
		TradesExecuted:   trades,
		SuccessfulTrades: wins,
		FailedTrades:     trades - wins,
		EpisodeLength:    ticks,
		FinalStatus:      "completed",
	}
}

func synthReasoning(rng *rand.Rand, actionType, ticker string) string {
	switch actionType {
	case "buy":
		return fmt.Sprintf("Because %s shows bullish momentum and volume is growing, therefore I will buy into the uptrend.", ticker)
	case "sell":
		return fmt.Sprintf("Because %s looks bearish with a clear downtrend and overbought signals, therefore I will sell.", ticker)
	case "wait":
		return fmt.Sprintf("The %s market is uncertain and unclear right now, so I will wait and observe before committing.", ticker)
	default:
		return fmt.Sprintf("Engagement on %s discussions is high, therefore responding now maximizes reach.", ticker)
	}
}

func synthDecision(actionType, ticker string, amount float64) string {
	return fmt.Sprintf(`<decisions><decision action="%s" ticker="%s" amount="%.2f"/></decisions>`,
		actionType, ticker, amount)
}

// #endregion generator
