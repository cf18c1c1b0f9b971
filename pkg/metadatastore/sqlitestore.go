package metadatastore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// timeLayout is fixed-width so started_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps the training history in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Format: file:path?param=value
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are serialized by SQLite anyway
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// retryOnBusy retries an operation that failed with SQLITE_BUSY, on top of
// the busy_timeout pragma
func (s *SQLiteStore) retryOnBusy(operation func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "SQLITE_BUSY") {
			return err
		}
		// 10ms, 20ms, 40ms, ...
		time.Sleep(time.Duration(10*(1<<uint(i))) * time.Millisecond)
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS training_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		data_path TEXT NOT NULL,
		best_model TEXT,
		test_roc_auc REAL,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_training_runs_started_at ON training_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_training_runs_status ON training_runs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts or replaces a training run
func (s *SQLiteStore) SaveRun(run *models.TrainingRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("training run must have an id")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal training run: %w", err)
	}

	var finishedAt any
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.UTC().Format(timeLayout)
	}

	query := `
		INSERT OR REPLACE INTO training_runs (id, status, data_path, best_model, test_roc_auc, error, started_at, finished_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err = s.retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			run.ID,
			string(run.Status),
			run.DataPath,
			run.BestModel,
			run.TestROCAUC,
			run.Error,
			run.StartedAt.UTC().Format(timeLayout),
			finishedAt,
			string(data),
		)
		return err
	}, 5)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id
func (s *SQLiteStore) GetRun(id string) (*models.TrainingRun, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM training_runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get training run: %w", err)
	}

	var run models.TrainingRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal training run: %w", err)
	}
	return &run, nil
}

// ListRuns lists the most recent runs first
func (s *SQLiteStore) ListRuns(limit int) ([]*models.TrainingRun, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	rows, err := s.db.Query(`SELECT data FROM training_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.TrainingRun, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		var run models.TrainingRun
		if err := json.Unmarshal([]byte(data), &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal training run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
