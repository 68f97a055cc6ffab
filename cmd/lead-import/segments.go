package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opsboard/server/pkg/domain/lead"
	"github.com/opsboard/server/pkg/upload"
)

func newSegmentsCmd(global *globalOptions, open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "segments",
		Short: "List stored segments and how full they are",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := open(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			segments, err := upload.Occupancy(cmd.Context(), store, "", global.capacity)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "SEGMENT\tRECORDS\tOPEN\n")
			for _, s := range segments {
				fmt.Fprintf(tw, "%s\t%d\t%t\n", s.ID, s.Records, s.Open)
			}
			return tw.Flush()
		},
	}
}

func newDecodeCmd(global *globalOptions, open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "decode SEGMENT_ID",
		Short: "Print the records of a segment as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := open(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			seg, err := store.GetSegment(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for i, encoded := range seg.Records {
				rec, err := lead.Decode(encoded)
				if err != nil {
					return fmt.Errorf("record %d of %s: %w", i, seg.ID, err)
				}
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
