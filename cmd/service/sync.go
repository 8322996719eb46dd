// cmd/service/sync.go
package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"review-ladder/internal/syncer"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one full sync pass and exit",
		RunE:  runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	poll, err := a.pollClient()
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	s := syncer.NewSyncer(poll, a.store, a.rec, a.logger, syncer.Options{
		Interval:     a.cfg.SyncInterval,
		FullInterval: a.cfg.FullSyncInterval,
		Since:        a.cfg.Since,
	})
	res := s.RunPass(ctx, true)
	if res.Truncated {
		return fmt.Errorf("pull request listing truncated after %d pull requests", res.PullRequests)
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d pull requests failed to sync", res.Failed, res.PullRequests)
	}
	return ctx.Err()
}
