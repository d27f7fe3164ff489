package store

import (
	"context"
	"fmt"
)

// BeginRun inserts a run with StatusRunning.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	inputs, err := marshalList(run.Inputs)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	flags, err := marshalList(run.Flags)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, inputs, flags, pass, status, error)
		VALUES (?, ?, ?, ?, ?, '')
	`, run.ID, inputs, flags, run.Pass, StatusRunning)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordAction appends an action to its run. The run must exist and the
// (run, seq) pair must be new.
func (s *Store) RecordAction(ctx context.Context, rec ActionRecord) error {
	command, err := marshalList(rec.Command)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO actions (run_id, seq, node, kind, command, output, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Seq, rec.Node, rec.Kind, command, rec.Output, rec.Status, rec.Error)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

// FinishRun sets the final status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ? WHERE id = ?
	`, status, errMsg, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: no run %q", runID)
	}
	return nil
}
