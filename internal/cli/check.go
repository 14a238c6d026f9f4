package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qmetro/fidkit/internal/fidsel"
	"github.com/qmetro/fidkit/internal/scoring"
)

// CheckReport is the check command's payload for both outcomes.
type CheckReport struct {
	Model     string   `json:"model"`
	Role      string   `json:"role"`
	Circuits  []string `json:"circuits"`
	Complete  bool     `json:"complete"`
	Resolved  int      `json:"resolved"`
	Dimension int      `json:"dimension"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "check <model-file> <circuit>...",
		Short: "Check a fiducial set for informational completeness",
		Long: `Check whether a list of fiducial circuits is informationally complete
for a model: complete sets resolve every direction of the model's state
space. Exits 0 when complete, 1 when not.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, role, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&role, "role", string(fidsel.RolePrep), "fiducial role (prep|meas)")

	return cmd
}

func runCheck(rootOpts *RootOptions, roleName, modelPath string, keys []string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, rootOpts)

	m, err := loadModel(formatter, modelPath)
	if err != nil {
		return err
	}

	role, err := fidsel.ParseRole(roleName)
	if err != nil {
		_ = formatter.Error(ErrCodeBadConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid role", err)
	}

	circuits, err := parseCircuits(formatter, keys)
	if err != nil {
		return err
	}

	score, spectrum, err := fidsel.ScoreFiducialSet(m, circuits, role, scoring.FuncAll)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "check failed", err)
	}

	report := CheckReport{
		Model:     m.Name(),
		Role:      string(role),
		Circuits:  keys,
		Complete:  score.N == len(spectrum),
		Resolved:  score.N,
		Dimension: m.Dimension(),
	}

	if err := outputCheck(formatter, report); err != nil {
		return err
	}
	if !report.Complete {
		return NewExitError(ExitFailure, fmt.Sprintf(
			"%s set resolves %d of %d directions", report.Role, report.Resolved, report.Dimension))
	}
	return nil
}

func outputCheck(formatter *OutputFormatter, report CheckReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	mark := "✓"
	verdict := "complete"
	if !report.Complete {
		mark = "✗"
		verdict = "incomplete"
	}
	fmt.Fprintf(formatter.Writer, "%s %s set {%s} is %s for %s (%d/%d directions)\n",
		mark, report.Role, strings.Join(report.Circuits, ", "), verdict,
		report.Model, report.Resolved, report.Dimension)
	return nil
}
