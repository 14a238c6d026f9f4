package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qmetro/fidkit/internal/circuit"
	"github.com/qmetro/fidkit/internal/fidsel"
	"github.com/qmetro/fidkit/internal/scoring"
	"github.com/qmetro/fidkit/internal/store"
)

// selectFlags holds the select command's flag values.
type selectFlags struct {
	algorithm  string
	scoreFunc  string
	maxLength  int
	exclude    []string
	keepIdent  bool
	prepOnly   bool
	measOnly   bool
	l1Penalty  float64
	opPenalty  float64
	seed       int64
	restarts   int
	alpha      float64
	threshold  float64
	slackFrac  float64
	fixedSlack float64
	fixedNum   int
	dbPath     string
}

// RoleReport is the per-role payload of a selection result.
type RoleReport struct {
	Role      string   `json:"role"`
	Circuits  []string `json:"circuits"`
	Resolved  int      `json:"resolved"`
	Dimension int      `json:"dimension,omitempty"`
	Minor     float64  `json:"minor"`
}

// SelectionReport is the select command's success payload.
type SelectionReport struct {
	Model      string      `json:"model"`
	Algorithm  string      `json:"algorithm"`
	Candidates int         `json:"candidates"`
	Prep       *RoleReport `json:"prep,omitempty"`
	Meas       *RoleReport `json:"meas,omitempty"`
	RunID      string      `json:"run_id,omitempty"`
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &selectFlags{}

	cmd := &cobra.Command{
		Use:   "select <model-file>",
		Short: "Select fiducial circuits for a model",
		Long: `Select preparation and measurement fiducial circuits for a model.

Enumerates candidate circuits up to --max-length, prunes duplicates and
identity-equivalent candidates, then searches for an informationally
complete subset per role with the chosen algorithm.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(rootOpts, flags, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&flags.algorithm, "algorithm", string(fidsel.AlgorithmGrasp), "search algorithm (grasp|local_search)")
	cmd.Flags().StringVar(&flags.scoreFunc, "score-func", string(scoring.FuncAll), "spectrum reduction (all|worst)")
	cmd.Flags().IntVar(&flags.maxLength, "max-length", fidsel.DefaultMaxCircuitLength, "maximum candidate circuit length")
	cmd.Flags().StringSliceVar(&flags.exclude, "exclude", nil, "operation labels to exclude from candidates")
	cmd.Flags().BoolVar(&flags.keepIdent, "keep-identity", false, "keep identity-equivalent operations in the candidate alphabet")
	cmd.Flags().BoolVar(&flags.prepOnly, "prep-only", false, "select preparation fiducials only")
	cmd.Flags().BoolVar(&flags.measOnly, "meas-only", false, "select measurement fiducials only")
	cmd.Flags().Float64Var(&flags.l1Penalty, "l1-penalty", 0, "penalty per selected fiducial")
	cmd.Flags().Float64Var(&flags.opPenalty, "op-penalty", fidsel.DefaultOpPenalty, "penalty per operation across selected fiducials")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "base random seed for grasp restarts")
	cmd.Flags().IntVar(&flags.restarts, "restarts", fidsel.DefaultRestarts, "number of grasp restarts")
	cmd.Flags().Float64Var(&flags.alpha, "alpha", fidsel.DefaultAlpha, "grasp candidate-list width in [0,1]")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", fidsel.DefaultThreshold, "grasp feasibility threshold on the minor score")
	cmd.Flags().Float64Var(&flags.slackFrac, "slack-frac", 1.0, "local-search multiplicative relaxation")
	cmd.Flags().Float64Var(&flags.fixedSlack, "fixed-slack", 0, "local-search additive relaxation (overrides --slack-frac)")
	cmd.Flags().IntVar(&flags.fixedNum, "fixed-num", 0, "exhaustively search sets of exactly this size")
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "record the run in this run-log database")

	return cmd
}

func runSelect(rootOpts *RootOptions, flags *selectFlags, modelPath string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, rootOpts)

	m, err := loadModel(formatter, modelPath)
	if err != nil {
		return err
	}

	opts, err := selectionOptions(flags)
	if err != nil {
		_ = formatter.Error(ErrCodeBadConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	result, err := fidsel.FindFiducials(m, opts, commandLogger(cmd, rootOpts))
	if err != nil {
		if fidsel.IsInfeasible(err) {
			_ = formatter.Error(ErrCodeInfeasible, err.Error(), nil)
			return WrapExitError(ExitFailure, "selection infeasible", err)
		}
		_ = formatter.Error(ErrCodeBadConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "selection failed", err)
	}

	report := SelectionReport{
		Model:      m.Name(),
		Algorithm:  flags.algorithm,
		Candidates: len(result.Candidates),
	}
	if result.Prep != nil {
		report.Prep = roleReport(m.Dimension(), result.Prep)
	}
	if result.Meas != nil {
		report.Meas = roleReport(m.Dimension(), result.Meas)
	}

	if flags.dbPath != "" {
		runID, err := recordRun(cmd, flags, m.Name(), report)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "recording run failed", err)
		}
		report.RunID = runID
	}

	return outputSelection(formatter, report)
}

// selectionOptions maps flags onto search options.
func selectionOptions(flags *selectFlags) (fidsel.Options, error) {
	opts := fidsel.Defaults()

	alg, err := fidsel.ParseAlgorithm(flags.algorithm)
	if err != nil {
		return opts, err
	}
	fn, err := scoring.ParseFunc(flags.scoreFunc)
	if err != nil {
		return opts, err
	}

	opts.Algorithm = alg
	opts.ScoreFunc = fn
	opts.MaxCircuitLength = flags.maxLength
	opts.ExcludedOperations = flags.exclude
	opts.OmitIdentity = !flags.keepIdent
	opts.PrepOnly = flags.prepOnly
	opts.MeasOnly = flags.measOnly
	opts.L1Penalty = flags.l1Penalty
	opts.OpPenalty = flags.opPenalty

	opts.Grasp.Seed = flags.seed
	opts.Grasp.Restarts = flags.restarts
	opts.Grasp.Alpha = flags.alpha
	opts.Grasp.Threshold = flags.threshold

	opts.Slack.SlackFrac = flags.slackFrac
	opts.Slack.FixedSlack = flags.fixedSlack
	if flags.fixedSlack > 0 {
		opts.Slack.SlackFrac = 0
	}
	opts.Slack.FixedNum = flags.fixedNum

	return opts, nil
}

func roleReport(dim int, rr *fidsel.RoleResult) *RoleReport {
	return &RoleReport{
		Role:      string(rr.Role),
		Circuits:  circuit.Keys(rr.Circuits),
		Resolved:  rr.Score.N,
		Dimension: dim,
		Minor:     rr.Score.Minor,
	}
}

func recordRun(cmd *cobra.Command, flags *selectFlags, modelName string, report SelectionReport) (string, error) {
	s, err := store.Open(flags.dbPath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	run := store.Run{
		ModelName:  modelName,
		Algorithm:  flags.algorithm,
		ScoreFunc:  flags.scoreFunc,
		MaxLength:  flags.maxLength,
		Candidates: report.Candidates,
		Seed:       flags.seed,
	}
	for _, rr := range []*RoleReport{report.Prep, report.Meas} {
		if rr == nil {
			continue
		}
		run.Roles = append(run.Roles, store.RoleRecord{
			Role:     rr.Role,
			N:        rr.Resolved,
			Minor:    rr.Minor,
			Circuits: rr.Circuits,
		})
	}

	written, err := s.WriteRun(cmd.Context(), run)
	if err != nil {
		return "", err
	}
	return written.ID, nil
}

func outputSelection(formatter *OutputFormatter, report SelectionReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "Model:      %s\n", report.Model)
	fmt.Fprintf(formatter.Writer, "Algorithm:  %s\n", report.Algorithm)
	fmt.Fprintf(formatter.Writer, "Candidates: %d\n", report.Candidates)
	for _, rr := range []*RoleReport{report.Prep, report.Meas} {
		if rr == nil {
			continue
		}
		fmt.Fprintf(formatter.Writer, "\n%s fiducials (%d/%d directions, minor %g):\n",
			rr.Role, rr.Resolved, rr.Dimension, rr.Minor)
		fmt.Fprintf(formatter.Writer, "  %s\n", strings.Join(rr.Circuits, "\n  "))
	}
	if report.RunID != "" {
		fmt.Fprintf(formatter.Writer, "\nRecorded as run %s\n", report.RunID)
	}
	return nil
}
