package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/lwir/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Ledger string
	Output string // restrict to one output path
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation runs",
		Long: `List the runs recorded in a generation ledger, oldest first, with the
fingerprints of their descriptor, template, inputs and output.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "SQLite ledger path (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "only show runs that wrote this path")
	_ = cmd.MarkFlagRequired("ledger")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Opening would create an empty ledger; a missing path is a typo.
	if _, err := os.Stat(opts.Ledger); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("ledger not found: %s", opts.Ledger), nil)
	}

	ledger, err := store.Open(opts.Ledger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLedger, err.Error(), nil)
	}
	defer ledger.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runs, err := ledger.Runs(ctx, opts.Output)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLedger, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tOUTPUT\tINSTS\tINPUTS\tOUTPUT HASH")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			r.Seq, r.ID, r.OutputPath, r.InstCount, short(r.InputsHash), short(r.OutputHash))
	}
	return tw.Flush()
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
