package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opsboard/server/pkg/batching"
	"github.com/opsboard/server/pkg/spreadsheet"
	"github.com/opsboard/server/pkg/upload"
)

type uploadOptions struct {
	assignee string
	target   string
	dryRun   bool
}

func newUploadCmd(global *globalOptions, open storeOpener) *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a .xlsx or .csv lead file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			rows, err := spreadsheet.ReadRows(f, args[0])
			_ = f.Close()
			if err != nil {
				return err
			}

			store, closeStore, err := open(ctx, global)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			orch := upload.New(store, global.limits(), global.retryPolicy(), batching.LogSink{Logger: slog.Default().With("component", "batching")})
			uploadOpts := upload.Options{Assignee: opts.assignee, TargetSegmentID: opts.target}

			if opts.dryRun {
				plan, summary, err := orch.Preview(ctx, rows, uploadOpts)
				if err != nil {
					return err
				}
				printPlan(cmd, plan)
				fmt.Fprintf(out, "dry run: %d rows read, %d rejected, %d records planned\n", summary.RowsRead, summary.RowsRejected, summary.TotalRecordsEncoded)
				return nil
			}

			uploadOpts.Progress = func(pct int) {
				fmt.Fprintf(out, "progress: %d%%\n", pct)
			}
			summary, err := orch.Run(ctx, rows, uploadOpts)
			fmt.Fprintln(out, summary.Describe())
			if err != nil {
				return fmt.Errorf("upload stopped after %d of %d segments: %w", summary.OperationsCompleted, summary.OperationsPlanned, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.assignee, "assignee", "", "Stamp every record as assigned to this user")
	cmd.Flags().StringVar(&opts.target, "target", "", "Write into this segment ID instead of the last open one")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the plan without writing")
	return cmd
}

func printPlan(cmd *cobra.Command, plan *batching.Plan) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "SEGMENT\tACTION\tRECORDS\tAPPENDED\n")
	for _, op := range plan.Operations {
		action := "create"
		if op.IsUpdate {
			action = "update"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", op.SegmentID, action, len(op.Records), op.Appended())
	}
	_ = tw.Flush()
}
