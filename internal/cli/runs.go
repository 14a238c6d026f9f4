package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/qmetro/fidkit/internal/store"
)

// RunSummary is one row of the runs list payload.
type RunSummary struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Model     string `json:"model"`
	Algorithm string `json:"algorithm"`
	MaxLength int    `json:"max_length"`
	Seed      int64  `json:"seed"`
}

// RunDetail is the runs show payload.
type RunDetail struct {
	RunSummary
	ScoreFunc  string       `json:"score_func"`
	Candidates int          `json:"candidates"`
	Roles      []RoleReport `json:"roles"`
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded selection runs",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "run-log database path (required)")

	cmd.AddCommand(newRunsListCommand(rootOpts, &dbPath))
	cmd.AddCommand(newRunsShowCommand(rootOpts, &dbPath))
	cmd.AddCommand(newRunsDeleteCommand(rootOpts, &dbPath))

	return cmd
}

func newRunsListCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List recorded runs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(cmd, rootOpts)
			s, err := openRunStore(formatter, *dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				_ = formatter.Error(ErrCodeStore, err.Error(), nil)
				return WrapExitError(ExitCommandError, "listing runs failed", err)
			}

			summaries := make([]RunSummary, 0, len(runs))
			for _, run := range runs {
				summaries = append(summaries, summarize(run))
			}

			if formatter.Format == "json" {
				return formatter.Success(summaries)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(formatter.Writer, "No runs recorded")
				return nil
			}
			for _, s := range summaries {
				fmt.Fprintf(formatter.Writer, "%s  %s  %s  %s\n",
					s.ID, s.CreatedAt, s.Model, s.Algorithm)
			}
			return nil
		},
	}
}

func newRunsShowCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show one run with its fiducials",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(cmd, rootOpts)
			s, err := openRunStore(formatter, *dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.ReadRun(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				_ = formatter.Error(ErrCodeNotFound, err.Error(), args[0])
				return WrapExitError(ExitCommandError, "run not found", err)
			}
			if err != nil {
				_ = formatter.Error(ErrCodeStore, err.Error(), nil)
				return WrapExitError(ExitCommandError, "reading run failed", err)
			}

			detail := RunDetail{
				RunSummary: summarize(run),
				ScoreFunc:  run.ScoreFunc,
				Candidates: run.Candidates,
			}
			for _, role := range run.Roles {
				detail.Roles = append(detail.Roles, RoleReport{
					Role:     role.Role,
					Circuits: role.Circuits,
					Resolved: role.N,
					Minor:    role.Minor,
				})
			}

			if formatter.Format == "json" {
				return formatter.Success(detail)
			}
			fmt.Fprintf(formatter.Writer, "Run %s (%s)\n", detail.ID, detail.CreatedAt)
			fmt.Fprintf(formatter.Writer, "Model %s, %s/%s, max length %d, %d candidates\n",
				detail.Model, detail.Algorithm, detail.ScoreFunc, detail.MaxLength, detail.Candidates)
			for _, role := range detail.Roles {
				fmt.Fprintf(formatter.Writer, "\n%s (%d directions, minor %g):\n", role.Role, role.Resolved, role.Minor)
				for _, c := range role.Circuits {
					fmt.Fprintf(formatter.Writer, "  %s\n", c)
				}
			}
			return nil
		},
	}
}

func newRunsDeleteCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <run-id>",
		Short:         "Delete a recorded run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(cmd, rootOpts)
			s, err := openRunStore(formatter, *dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				_ = formatter.Error(ErrCodeStore, err.Error(), nil)
				return WrapExitError(ExitCommandError, "deleting run failed", err)
			}
			return formatter.Success(fmt.Sprintf("deleted %s", args[0]))
		},
	}
}

func openRunStore(formatter *OutputFormatter, dbPath string) (*store.Store, error) {
	if dbPath == "" {
		err := fmt.Errorf("--db is required")
		_ = formatter.Error(ErrCodeBadConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "missing database path", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "opening run log failed", err)
	}
	return s, nil
}

func summarize(run store.Run) RunSummary {
	return RunSummary{
		ID:        run.ID,
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339),
		Model:     run.ModelName,
		Algorithm: run.Algorithm,
		MaxLength: run.MaxLength,
		Seed:      run.Seed,
	}
}
