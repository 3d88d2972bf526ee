package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lwir/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                 `json:"valid"`
	Insts       int                  `json:"insts"`
	Fingerprint string               `json:"fingerprint,omitempty"`
	Errors      []ir.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate an IR descriptor without generating code",
		Long: `Load the CUE package in <specs-dir>, compile its "ir" value and check
the descriptor: unique instruction and argument names, known kinds, scalar
type names, variadic placement and getter/setter policies.

All problems are reported at once.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadSpecs(specsDir)
	if err != nil {
		return failLoad(formatter, err)
	}
	formatter.logger().Debugw("loaded descriptor", "dir", specsDir, "files", loaded.FileCount, "insts", len(loaded.IR.Insts))

	if errs := ir.Validate(loaded.IR); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	fp, err := ir.Fingerprint(loaded.IR)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Insts: len(loaded.IR.Insts), Fingerprint: fp})
	}
	fmt.Fprintf(formatter.Writer, "✓ Descriptor valid: %d instruction(s)\n", len(loaded.IR.Insts))
	return nil
}

// failLoad reports a LoadSpecs failure as a command error.
func failLoad(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loadErr.Pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), msg)
		}
		return formatter.Fail(ExitCommandError, loadErr.Code, msg, nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}

// outputValidationErrors outputs every validation error.
// Validation failures exit with code 1.
func outputValidationErrors(formatter *OutputFormatter, errs []ir.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	return exitErr
}
