package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	shared "github.com/opsboard/server/pkg"
	"github.com/opsboard/server/pkg/batching"
	"github.com/opsboard/server/pkg/bootstrap"
	"github.com/opsboard/server/pkg/infrastructure/database"
)

type globalOptions struct {
	project     string
	credentials string
	collection  string
	capacity    int
	maxBytes    int
	pacing      time.Duration
	backoff     time.Duration
	retries     int
	verbose     bool
}

func (o *globalOptions) limits() batching.Limits {
	return batching.Limits{MaxRecords: o.capacity, MaxBytes: o.maxBytes}
}

func (o *globalOptions) retryPolicy() batching.RetryPolicy {
	return batching.RetryPolicy{MaxRetries: o.retries, BackoffBase: o.backoff, PacingDelay: o.pacing}
}

// storeOpener connects to the segment store. The returned func releases it.
type storeOpener func(ctx context.Context, opts *globalOptions) (shared.SegmentStore, func() error, error)

func openFirestoreStore(ctx context.Context, opts *globalOptions) (shared.SegmentStore, func() error, error) {
	var clientOpts []option.ClientOption
	if opts.credentials != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.credentials))
	}
	client, err := firestore.NewClient(ctx, opts.project, clientOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("firestore init: %w", err)
	}
	return database.NewFirestoreAdapter(client, opts.collection), client.Close, nil
}

func newRootCmd(open storeOpener) *cobra.Command {
	cfg := bootstrap.LoadConfig()
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "lead-import",
		Short:         "Import lead spreadsheets into Firestore segments",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewJSONHandler(cmd.ErrOrStderr(), bootstrap.GetSlogHandlerOptions(level))
			slog.SetDefault(slog.New(&bootstrap.ComponentHandler{Handler: handler}).With("service", "lead-import-cli"))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.project, "project", cfg.ProjectID, "Google Cloud project ID")
	flags.StringVar(&opts.credentials, "credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "Service account key file")
	flags.StringVar(&opts.collection, "collection", cfg.SegmentsCollection, "Firestore collection holding the segments")
	flags.IntVar(&opts.capacity, "capacity", cfg.SegmentCapacity, "Maximum records per segment")
	flags.IntVar(&opts.maxBytes, "max-bytes", cfg.SegmentMaxBytes, "Maximum estimated segment document size in bytes (0 disables)")
	flags.DurationVar(&opts.pacing, "pacing", cfg.WritePacing, "Delay between segment writes")
	flags.DurationVar(&opts.backoff, "backoff", cfg.WriteBackoffBase, "Base retry backoff, doubled per attempt")
	flags.IntVar(&opts.retries, "retries", cfg.WriteMaxRetries, "Retries per segment write")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every planner and writer event")

	cmd.AddCommand(newUploadCmd(opts, open))
	cmd.AddCommand(newSegmentsCmd(opts, open))
	cmd.AddCommand(newDecodeCmd(opts, open))
	return cmd
}
