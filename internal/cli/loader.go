package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qmetro/fidkit/internal/circuit"
	"github.com/qmetro/fidkit/internal/model"
)

// newFormatter builds the per-command output formatter. Verbose logs go
// to stderr to avoid corrupting JSON output.
func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadModel loads and validates a model file, reporting failures in the
// configured format with a command-error exit code.
func loadModel(formatter *OutputFormatter, path string) (*model.Explicit, error) {
	m, err := model.Load(path)
	if err == nil {
		formatter.VerboseLog("Loaded model %s (dimension %d)", m.Name(), m.Dimension())
		return m, nil
	}

	var loadErr *model.LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(ErrCodeModelLoad, loadErr.Error(), loadErr.Field)
		return nil, WrapExitError(ExitCommandError, "model load failed", err)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return nil, WrapExitError(ExitCommandError, "model load failed", err)
}

// parseCircuits parses command-line circuit keys, e.g. "{}" or
// "Gxpi2:Gypi2".
func parseCircuits(formatter *OutputFormatter, keys []string) ([]circuit.Circuit, error) {
	circuits := make([]circuit.Circuit, 0, len(keys))
	for _, key := range keys {
		c, err := circuit.Parse(key)
		if err != nil {
			_ = formatter.Error(ErrCodeBadCircuit, err.Error(), key)
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("bad circuit %q", key), err)
		}
		circuits = append(circuits, c)
	}
	return circuits, nil
}
