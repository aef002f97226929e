package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/unistate/internal/harness"
)

// ValidationError describes one scenario file that failed to validate.
type ValidationError struct {
	File    string `json:"file"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Scenarios []string          `json:"scenarios"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario|dir>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the scenario schema.

Checks YAML syntax, the schema (field names, value types, assertion
shapes) and that every step names a known mutation or action with
arguments that build. Directories are searched for .yaml and .yml files.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("path not found: %s", path), nil)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := findScenarioFiles(path, "")
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeGeneric, "failed to scan directory", err)
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, "no scenario files found", nil)
	}

	result := ValidationResult{Valid: true, Scenarios: []string{}}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				File:    file,
				Message: err.Error(),
				Code:    ErrCodeInvalidScenario,
			})
			continue
		}
		result.Scenarios = append(result.Scenarios, scenario.Name)
	}

	if formatter.IsJSON() {
		if !result.Valid {
			if err := formatter.Failure(ErrCodeInvalidScenario,
				fmt.Sprintf("%d scenario file(s) invalid", len(result.Errors)), result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "validation failed")
		}
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	for _, name := range result.Scenarios {
		fmt.Fprintf(w, "✓ %s\n", name)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "✗ %s\n  %s\n", e.File, e.Message)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario file(s) invalid", len(result.Errors)))
	}
	fmt.Fprintf(w, "All %d scenario(s) valid\n", len(result.Scenarios))
	return nil
}
