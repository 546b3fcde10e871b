package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const runColumns = `id, directory, schema, status, started_at, completed_at, experiments, failed, error`

// CreateRun inserts a new run in the running state.
func (s *SQLiteStore) CreateRun(directory, schema string, experiments int) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:          generateID(),
		Directory:   directory,
		Schema:      schema,
		Status:      RunStatusRunning,
		StartedAt:   time.Now().UTC(),
		Experiments: experiments,
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("directory", directory))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, directory, schema, status, started_at, experiments) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Directory, run.Schema, string(run.Status), run.StartedAt, run.Experiments,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// CompleteRun finalizes a run with its status and failure count.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, failed int, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, failed = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), failed, errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordInvocation stores one program invocation of a run.
func (s *SQLiteStore) RecordInvocation(inv *Invocation) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if inv.ID == "" {
		inv.ID = generateID()
	}

	var errorPtr *string
	if inv.Error != "" {
		errorPtr = &inv.Error
	}

	_, err := s.db.Exec(
		`INSERT INTO invocations (id, run_id, seq, label, args, exit_code, duration_ms, started_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.RunID, inv.Seq, inv.Label, strings.Join(inv.Args, "\t"),
		inv.ExitCode, inv.Duration.Milliseconds(), inv.StartedAt.UTC(), errorPtr,
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation %d: %w", inv.Seq, err)
	}
	return nil
}

// ListInvocations returns the invocations of a run in execution order.
func (s *SQLiteStore) ListInvocations(runID string) ([]*Invocation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, seq, label, args, exit_code, duration_ms, started_at, error
		 FROM invocations WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	var invocations []*Invocation
	for rows.Next() {
		inv := &Invocation{}
		var args string
		var durationMS int64
		var errMsg sql.NullString
		if err := rows.Scan(&inv.ID, &inv.RunID, &inv.Seq, &inv.Label, &args,
			&inv.ExitCode, &durationMS, &inv.StartedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		if args != "" {
			inv.Args = strings.Split(args, "\t")
		}
		inv.Duration = time.Duration(durationMS) * time.Millisecond
		inv.Error = errMsg.String
		invocations = append(invocations, inv)
	}
	return invocations, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var status string
	var completedAt sql.NullTime
	var errMsg sql.NullString

	if err := row.Scan(&run.ID, &run.Directory, &run.Schema, &status, &run.StartedAt,
		&completedAt, &run.Experiments, &run.Failed, &errMsg); err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}
