package store

import (
	"context"
	"database/sql"
	"fmt"
)

type scanner interface {
	Scan(dest ...any) error
}

// ReadRun returns a run and its actions ordered by seq.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, []ActionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, inputs, flags, pass, status, error
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, nil, err
	}

	actions, err := s.readActions(ctx, id)
	if err != nil {
		return Run{}, nil, err
	}
	return run, actions, nil
}

// ListRuns returns every run ordered by id.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, inputs, flags, pass, status, error
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (s *Store) readActions(ctx context.Context, runID string) ([]ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, node, kind, command, output, status, error
		FROM actions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	actions := []ActionRecord{}
	for rows.Next() {
		var rec ActionRecord
		var command string
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Node, &rec.Kind, &command, &rec.Output, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if rec.Command, err = unmarshalList(command); err != nil {
			return nil, err
		}
		actions = append(actions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return actions, nil
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var inputs, flags string
	if err := row.Scan(&run.ID, &inputs, &flags, &run.Pass, &run.Status, &run.Error); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if run.Inputs, err = unmarshalList(inputs); err != nil {
		return Run{}, err
	}
	if run.Flags, err = unmarshalList(flags); err != nil {
		return Run{}, err
	}
	return run, nil
}
