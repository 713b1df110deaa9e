package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/storage/models"
	"github.com/nexusflow/signals/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		sales_file TEXT,
		sales_checksum TEXT,
		context_checksum TEXT,
		backlog_checksum TEXT,
		findings_count INTEGER DEFAULT 0,
		signals_added INTEGER DEFAULT 0,
		signals_updated INTEGER DEFAULT 0,
		error TEXT,
		latency_ms INTEGER,
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_stages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_stages_run ON run_stages(run_id);

	CREATE TABLE IF NOT EXISTS detection_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_run ON detection_attempts(run_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertRun(run *models.Run) error {
	query := `
		INSERT INTO runs (id, status, sales_file, sales_checksum, context_checksum, backlog_checksum, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		run.ID,
		run.Status,
		run.SalesFile,
		run.SalesChecksum,
		run.ContextChecksum,
		run.BacklogChecksum,
		run.StartedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	logger.Info("Run recorded", zap.String("run_id", run.ID), zap.String("sales_file", run.SalesFile))
	return nil
}

func (c *Client) FinishRun(run *models.Run) error {
	query := `
		UPDATE runs SET status = ?, findings_count = ?, signals_added = ?, signals_updated = ?,
			error = ?, latency_ms = ?, finished_at = ?
		WHERE id = ?
	`

	finishedAt := time.Now().Unix()
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.Unix()
	}

	_, err := c.db.Exec(
		query,
		run.Status,
		run.FindingsCount,
		run.SignalsAdded,
		run.SignalsUpdated,
		run.Error,
		run.LatencyMS,
		finishedAt,
		run.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	logger.Info("Run finished",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("findings", run.FindingsCount),
	)
	return nil
}

func (c *Client) InsertStage(stage *models.RunStage) error {
	query := `INSERT INTO run_stages (run_id, stage, status, detail, latency_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		stage.RunID,
		stage.Stage,
		stage.Status,
		stage.Detail,
		stage.LatencyMS,
		stage.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert run stage: %w", err)
	}

	return nil
}

func (c *Client) InsertAttempt(attempt *models.DetectionAttempt) error {
	query := `INSERT INTO detection_attempts (run_id, attempt, status, error, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		attempt.RunID,
		attempt.Attempt,
		attempt.Status,
		attempt.Error,
		attempt.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert detection attempt: %w", err)
	}

	return nil
}

func (c *Client) GetRun(id string) (*models.Run, error) {
	query := `
		SELECT id, status, sales_file, sales_checksum, context_checksum, backlog_checksum,
			findings_count, signals_added, signals_updated, COALESCE(error, ''), COALESCE(latency_ms, 0),
			started_at, finished_at
		FROM runs WHERE id = ?
	`

	var run models.Run
	var startedAt int64
	var finishedAt sql.NullInt64

	err := c.db.QueryRow(query, id).Scan(
		&run.ID,
		&run.Status,
		&run.SalesFile,
		&run.SalesChecksum,
		&run.ContextChecksum,
		&run.BacklogChecksum,
		&run.FindingsCount,
		&run.SignalsAdded,
		&run.SignalsUpdated,
		&run.Error,
		&run.LatencyMS,
		&startedAt,
		&finishedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StartedAt = time.Unix(startedAt, 0)
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0)
		run.FinishedAt = &t
	}

	return &run, nil
}

func (c *Client) ListRuns(limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, status, sales_file, sales_checksum, context_checksum, backlog_checksum,
			findings_count, signals_added, signals_updated, COALESCE(error, ''), COALESCE(latency_ms, 0),
			started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		var startedAt int64
		var finishedAt sql.NullInt64

		err := rows.Scan(
			&run.ID,
			&run.Status,
			&run.SalesFile,
			&run.SalesChecksum,
			&run.ContextChecksum,
			&run.BacklogChecksum,
			&run.FindingsCount,
			&run.SignalsAdded,
			&run.SignalsUpdated,
			&run.Error,
			&run.LatencyMS,
			&startedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt = time.Unix(startedAt, 0)
		if finishedAt.Valid {
			t := time.Unix(finishedAt.Int64, 0)
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (c *Client) GetAttempts(runID string) ([]models.DetectionAttempt, error) {
	query := `SELECT id, run_id, attempt, status, COALESCE(error, ''), created_at FROM detection_attempts WHERE run_id = ? ORDER BY attempt`

	rows, err := c.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.DetectionAttempt
	for rows.Next() {
		var a models.DetectionAttempt
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.RunID, &a.Attempt, &a.Status, &a.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0)
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}
