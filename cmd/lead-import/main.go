// Command lead-import uploads lead spreadsheets into Firestore segments and
// inspects the stored segments.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openFirestoreStore).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
