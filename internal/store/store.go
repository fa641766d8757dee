// Package store persists trajectories and attribution results in
// SQLite so preparation runs are repeatable and inspectable.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/agentcredit/go-credit/internal/attribution"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS trajectories (
	trajectory_id  TEXT PRIMARY KEY,
	agent_id       TEXT NOT NULL,
	archetype      TEXT,
	window_id      TEXT,
	steps_json     TEXT NOT NULL,
	total_reward   REAL NOT NULL DEFAULT 0,
	final_pnl      REAL NOT NULL DEFAULT 0,
	final_balance  REAL NOT NULL DEFAULT 0,
	episode_length INTEGER NOT NULL DEFAULT 0,
	final_status   TEXT,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attribution_results (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	trajectory_id  TEXT NOT NULL,
	tick_number    INTEGER NOT NULL,
	has_outcome    INTEGER NOT NULL,
	calls_json     TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (trajectory_id) REFERENCES trajectories(trajectory_id)
);

CREATE TABLE IF NOT EXISTS trajectory_scores (
	trajectory_id  TEXT PRIMARY KEY,
	score          REAL NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (trajectory_id) REFERENCES trajectories(trajectory_id)
);

CREATE INDEX IF NOT EXISTS idx_attribution_traj
	ON attribution_results(trajectory_id, tick_number);
`

// #endregion schema

// #region store-struct
// Store persists trajectories and their attribution in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region save-trajectory
// SaveTrajectory inserts or replaces a trajectory. A trajectory without
// an ID gets a generated one; the (possibly updated) record is returned.
func (s *Store) SaveTrajectory(traj trajectory.Trajectory) (trajectory.Trajectory, error) {
	if traj.TrajectoryID == "" {
		traj.TrajectoryID = uuid.New().String()
	}

	stepsJSON, err := json.Marshal(traj.Steps)
	if err != nil {
		return traj, fmt.Errorf("marshal steps: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO trajectories
			(trajectory_id, agent_id, archetype, window_id, steps_json,
			 total_reward, final_pnl, final_balance, episode_length, final_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(trajectory_id) DO UPDATE SET
			steps_json = excluded.steps_json,
			total_reward = excluded.total_reward,
			final_pnl = excluded.final_pnl,
			final_balance = excluded.final_balance,
			episode_length = excluded.episode_length,
			final_status = excluded.final_status`,
		traj.TrajectoryID, traj.AgentID, traj.Archetype, traj.WindowID, string(stepsJSON),
		traj.TotalReward, traj.FinalPnL, traj.FinalBalance, traj.EpisodeLength, traj.FinalStatus,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return traj, fmt.Errorf("insert trajectory: %w", err)
	}
	return traj, nil
}

// #endregion save-trajectory

// #region load-trajectory
// LoadTrajectory retrieves one trajectory by ID.
func (s *Store) LoadTrajectory(id string) (trajectory.Trajectory, error) {
	var traj trajectory.Trajectory
	var stepsJSON string
	var archetype, windowID, finalStatus sql.NullString

	err := s.db.QueryRow(
		`SELECT trajectory_id, agent_id, archetype, window_id, steps_json,
			total_reward, final_pnl, final_balance, episode_length, final_status
		 FROM trajectories WHERE trajectory_id = ?`, id,
	).Scan(&traj.TrajectoryID, &traj.AgentID, &archetype, &windowID, &stepsJSON,
		&traj.TotalReward, &traj.FinalPnL, &traj.FinalBalance, &traj.EpisodeLength, &finalStatus)
	if err != nil {
		return trajectory.Trajectory{}, fmt.Errorf("load trajectory %s: %w", id, err)
	}

	if archetype.Valid {
		traj.Archetype = archetype.String
	}
	if windowID.Valid {
		traj.WindowID = windowID.String
	}
	if finalStatus.Valid {
		traj.FinalStatus = finalStatus.String
	}
	traj.Steps, err = trajectory.DecodeSteps([]byte(stepsJSON))
	if err != nil {
		return trajectory.Trajectory{}, fmt.Errorf("decode steps for %s: %w", id, err)
	}
	trajectory.Normalize(&traj)
	return traj, nil
}

// #endregion load-trajectory

// #region list-trajectories
// ListTrajectories returns the most recently stored trajectories,
// steps included. A limit of zero or less returns everything.
func (s *Store) ListTrajectories(limit int) ([]trajectory.Trajectory, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT trajectory_id FROM trajectories ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list trajectories: %w", err)
	}
	defer rows.Close()

	return s.loadAll(rows)
}

// ListWindow returns every trajectory recorded in one evaluation window,
// oldest first, so the window can be replayed or scored as a cohort.
func (s *Store) ListWindow(windowID string) ([]trajectory.Trajectory, error) {
	rows, err := s.db.Query(
		`SELECT trajectory_id FROM trajectories WHERE window_id = ? ORDER BY created_at ASC`, windowID,
	)
	if err != nil {
		return nil, fmt.Errorf("list window %s: %w", windowID, err)
	}
	defer rows.Close()

	return s.loadAll(rows)
}

func (s *Store) loadAll(rows *sql.Rows) ([]trajectory.Trajectory, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trajs := make([]trajectory.Trajectory, 0, len(ids))
	for _, id := range ids {
		traj, err := s.LoadTrajectory(id)
		if err != nil {
			return nil, err
		}
		trajs = append(trajs, traj)
	}
	return trajs, nil
}

// #endregion list-trajectories

// #region attribution
// SaveAttribution records per-tick attribution results for a
// trajectory, replacing any previous run.
func (s *Store) SaveAttribution(trajectoryID string, results []attribution.TickResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM attribution_results WHERE trajectory_id = ?`, trajectoryID,
	); err != nil {
		return fmt.Errorf("clear attribution: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range results {
		callsJSON, err := json.Marshal(r.Calls)
		if err != nil {
			return fmt.Errorf("marshal calls: %w", err)
		}
		hasOutcome := 0
		if r.HasOutcome {
			hasOutcome = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO attribution_results (trajectory_id, tick_number, has_outcome, calls_json, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			trajectoryID, r.TickNumber, hasOutcome, string(callsJSON), now,
		); err != nil {
			return fmt.Errorf("insert attribution: %w", err)
		}
	}
	return tx.Commit()
}

// LoadAttribution retrieves a trajectory's attribution results in tick
// order.
func (s *Store) LoadAttribution(trajectoryID string) ([]attribution.TickResult, error) {
	rows, err := s.db.Query(
		`SELECT tick_number, has_outcome, calls_json
		 FROM attribution_results WHERE trajectory_id = ? ORDER BY tick_number`, trajectoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("load attribution: %w", err)
	}
	defer rows.Close()

	var results []attribution.TickResult
	for rows.Next() {
		var r attribution.TickResult
		var hasOutcome int
		var callsJSON string
		if err := rows.Scan(&r.TickNumber, &hasOutcome, &callsJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.HasOutcome = hasOutcome != 0
		if err := json.Unmarshal([]byte(callsJSON), &r.Calls); err != nil {
			return nil, fmt.Errorf("unmarshal calls: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// #endregion attribution

// #region scores
// SaveScore records a trajectory's relative score.
func (s *Store) SaveScore(trajectoryID string, score float64) error {
	_, err := s.db.Exec(
		`INSERT INTO trajectory_scores (trajectory_id, score, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(trajectory_id) DO UPDATE SET score = excluded.score`,
		trajectoryID, score, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

// LoadScore retrieves a trajectory's stored score. The second return
// is false when no score has been recorded.
func (s *Store) LoadScore(trajectoryID string) (float64, bool, error) {
	var score float64
	err := s.db.QueryRow(
		`SELECT score FROM trajectory_scores WHERE trajectory_id = ?`, trajectoryID,
	).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load score: %w", err)
	}
	return score, true, nil
}

// #endregion scores
