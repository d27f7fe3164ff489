package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tmlink/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// RunReport is one journaled run.
type RunReport struct {
	ID      string         `json:"id"`
	Status  string         `json:"status"`
	Pass    string         `json:"pass,omitempty"`
	Inputs  []string       `json:"inputs"`
	Flags   []string       `json:"flags,omitempty"`
	Error   string         `json:"error,omitempty"`
	Actions []ActionReport `json:"actions,omitempty"`
}

// ActionReport is one journaled action.
type ActionReport struct {
	Seq     int64    `json:"seq"`
	Node    string   `json:"node"`
	Kind    string   `json:"kind"`
	Command []string `json:"command"`
	Output  string   `json:"output"`
	Status  string   `json:"status"`
	Error   string   `json:"error,omitempty"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recorded build runs",
		Long: `List the runs recorded in a build journal, or show every action of one
run in execution order.

Example:
  tmlink journal --db ./tmlink.db
  tmlink journal --db ./tmlink.db --run 0192f0c4-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the actions of this run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	// Opening creates the database; a typo in --db should not.
	if _, err := os.Stat(opts.Database); err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "journal not found", err, nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err, nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeJournal, "failed to list runs", err, nil)
		}
		reports := make([]RunReport, len(runs))
		for i, r := range runs {
			reports[i] = runReport(r, nil)
		}
		if f.Format == "json" {
			return f.Success(reports)
		}
		if len(reports) == 0 {
			return f.Success("no runs")
		}
		lines := make([]string, len(reports))
		for i, r := range reports {
			lines[i] = formatRunLine(r)
		}
		return f.Success(strings.Join(lines, "\n"))
	}

	run, actions, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run %s not found", opts.RunID), nil, nil)
	}
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeJournal, "failed to read run", err, nil)
	}

	report := runReport(run, actions)
	if f.Format == "json" {
		return f.Success(report)
	}
	var b strings.Builder
	b.WriteString(formatRunLine(report))
	for _, a := range report.Actions {
		fmt.Fprintf(&b, "\n  %3d %-8s [%s] %s", a.Seq, a.Status, a.Node, strings.Join(a.Command, " "))
		if a.Error != "" {
			fmt.Fprintf(&b, "\n      error: %s", a.Error)
		}
	}
	return f.Success(b.String())
}

func runReport(r store.Run, actions []store.ActionRecord) RunReport {
	rep := RunReport{
		ID:     r.ID,
		Status: r.Status,
		Pass:   r.Pass,
		Inputs: r.Inputs,
		Flags:  r.Flags,
		Error:  r.Error,
	}
	for _, a := range actions {
		rep.Actions = append(rep.Actions, ActionReport{
			Seq:     a.Seq,
			Node:    a.Node,
			Kind:    a.Kind,
			Command: a.Command,
			Output:  a.Output,
			Status:  a.Status,
			Error:   a.Error,
		})
	}
	return rep
}

func formatRunLine(r RunReport) string {
	line := fmt.Sprintf("%s %s pass=%s inputs=%s", r.ID, r.Status, r.Pass, strings.Join(r.Inputs, ","))
	if len(r.Flags) > 0 {
		line += " flags=" + strings.Join(r.Flags, ",")
	}
	if r.Error != "" {
		line += " error=" + r.Error
	}
	return line
}
