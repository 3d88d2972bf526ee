package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lwir/internal/emit"
	"github.com/roach88/lwir/internal/ir"
	"github.com/roach88/lwir/internal/job"
	"github.com/roach88/lwir/internal/render"
	"github.com/roach88/lwir/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Check         bool   // compare with the file on disk instead of writing
	Echo          bool   // print the generated document
	Ledger        string // SQLite ledger path, empty disables recording
	SkipUnchanged bool   // skip when the ledger shows identical inputs and output
}

// GenerateResult summarizes one generate invocation.
type GenerateResult struct {
	Output       string   `json:"output"`
	Insts        int      `json:"insts"`
	Unresolved   []string `json:"unresolved,omitempty"`
	IRHash       string   `json:"ir_hash"`
	TemplateHash string   `json:"template_hash"`
	InputsHash   string   `json:"inputs_hash"`
	OutputHash   string   `json:"output_hash,omitempty"`
	RunID        string   `json:"run_id,omitempty"`
	Skipped      bool     `json:"skipped,omitempty"`
	Checked      bool     `json:"checked,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <job.yaml>",
		Short: "Render a template from an IR descriptor",
		Long: `Load the job file, compile and validate its IR descriptor, run the
plugin chain and substitute every block into the template.

The output file is replaced only after the whole document has been
rendered. With --check nothing is written; the command exits 1 if the
file on disk differs from what would be generated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Check, "check", false, "fail if the output file is stale instead of writing it")
	cmd.Flags().BoolVar(&opts.Echo, "echo", false, "print the generated document")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "record the run in this SQLite ledger")
	cmd.Flags().BoolVar(&opts.SkipUnchanged, "skip-unchanged", false, "skip generation when the ledger shows identical inputs (requires --ledger)")

	return cmd
}

func runGenerate(opts *GenerateOptions, jobPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	log := formatter.logger()

	if opts.SkipUnchanged && opts.Ledger == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--skip-unchanged requires --ledger", nil)
	}

	j, err := job.Load(jobPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidJob, err.Error(), nil)
	}

	loaded, err := LoadSpecs(j.Specs)
	if err != nil {
		return failLoad(formatter, err)
	}
	if errs := ir.Validate(loaded.IR); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	desc := loaded.IR

	plugins, err := j.BuildPlugins()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidJob, err.Error(), nil)
	}

	template, err := render.ReadTemplate(j.Template)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeTemplate, err.Error(), nil)
	}

	result := GenerateResult{
		Output:       j.Output,
		Insts:        len(desc.Insts),
		TemplateHash: ir.TemplateHash(template),
	}
	if result.IRHash, err = ir.Fingerprint(desc); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	if result.InputsHash, err = ir.InputsHash(result.IRHash, result.TemplateHash, j.CanonicalPlugins()); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	log.Debugw("inputs", "ir", result.IRHash, "template", result.TemplateHash, "inputs", result.InputsHash)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var ledger *store.Store
	if opts.Ledger != "" && !opts.Check {
		ledger, err = store.Open(opts.Ledger)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLedger, err.Error(), nil)
		}
		defer ledger.Close()
	}

	if opts.SkipUnchanged && ledger != nil {
		skip, err := upToDate(ctx, ledger, j.Output, result.InputsHash)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLedger, err.Error(), nil)
		}
		if skip {
			log.Infow("inputs unchanged, skipping", "output", j.Output)
			result.Skipped = true
			return outputGenerateSuccess(formatter, result)
		}
	}

	renderOpts := render.Options{Logger: log}
	if opts.Echo {
		echoTo := formatter.Writer
		if formatter.Format == "json" {
			echoTo = formatter.ErrWriter
		}
		renderOpts.Echo = func(doc string) { io.WriteString(echoTo, doc) }
	}

	doc, err := render.Render(template, desc, plugins, renderOpts)
	if err != nil {
		return failRender(formatter, err)
	}
	result.OutputHash = ir.OutputHash(doc)
	result.Unresolved = render.Unresolved(doc)
	if len(result.Unresolved) > 0 {
		log.Debugw("placeholders left unresolved", "names", result.Unresolved)
	}

	if opts.Check {
		result.Checked = true
		current, err := os.ReadFile(j.Output)
		if err != nil && !os.IsNotExist(err) {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		if err != nil || string(current) != doc {
			_ = formatter.Error(ErrCodeStale, fmt.Sprintf("%s is stale; run lwir generate %s", j.Output, jobPath), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("%s: %s is stale", ErrCodeStale, j.Output))
		}
		return outputGenerateSuccess(formatter, result)
	}

	if err := render.WriteOutput(j.Output, doc); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
	}
	log.Infow("generated", "output", j.Output, "insts", result.Insts, "bytes", len(doc))

	if ledger != nil {
		run, err := ledger.RecordRun(ctx, store.Run{
			Job:              jobPath,
			OutputPath:       j.Output,
			IRHash:           result.IRHash,
			TemplateHash:     result.TemplateHash,
			InputsHash:       result.InputsHash,
			OutputHash:       result.OutputHash,
			InstCount:        result.Insts,
			GeneratorVersion: ir.GeneratorVersion,
			IRVersion:        ir.IRVersion,
		})
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLedger, err.Error(), nil)
		}
		result.RunID = run.ID
	}

	return outputGenerateSuccess(formatter, result)
}

// upToDate reports whether the last recorded run for output had the same
// inputs and the file on disk still holds what that run wrote.
func upToDate(ctx context.Context, ledger *store.Store, output, inputsHash string) (bool, error) {
	last, err := ledger.LastRun(ctx, output)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if last.InputsHash != inputsHash {
		return false, nil
	}
	current, err := os.ReadFile(output)
	if err != nil {
		return false, nil
	}
	return ir.OutputHash(string(current)) == last.OutputHash, nil
}

// failRender reports a plugin failure. Specification errors carry the
// offending plugin, instruction and argument as details.
func failRender(formatter *OutputFormatter, err error) error {
	var specErr *emit.SpecError
	if errors.As(err, &specErr) {
		details := map[string]string{"plugin": specErr.Plugin, "inst": specErr.Inst}
		if specErr.Arg != "" {
			details["arg"] = specErr.Arg
		}
		return formatter.Fail(ExitCommandError, ErrCodeSpecification, specErr.Error(), details)
	}
	return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}

func outputGenerateSuccess(formatter *OutputFormatter, result GenerateResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	switch {
	case result.Skipped:
		fmt.Fprintf(formatter.Writer, "✓ %s unchanged, skipped\n", result.Output)
	case result.Checked:
		fmt.Fprintf(formatter.Writer, "✓ %s is up to date\n", result.Output)
	default:
		fmt.Fprintf(formatter.Writer, "✓ Generated %s (%d instruction(s))\n", result.Output, result.Insts)
	}
	if len(result.Unresolved) > 0 {
		names := make([]string, len(result.Unresolved))
		for i, name := range result.Unresolved {
			names[i] = render.Placeholder(name)
		}
		fmt.Fprintf(formatter.Writer, "  unresolved: %s\n", strings.Join(names, " "))
	}
	return nil
}
