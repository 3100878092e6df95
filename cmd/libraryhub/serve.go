// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/libraryhub/libraryhub/internal/library"
)

// Default interval between background invariant audits.
const defaultAuditInterval = 5 * time.Minute

type serveConfig struct {
	auditInterval time.Duration
}

func newServeCmd(c *cli) *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the metrics and health server",
		Long: `Opens the store, serves Prometheus metrics and liveness/readiness probes,
and audits the copy counters periodically until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, c, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.auditInterval, "audit-interval", defaultAuditInterval, "interval between invariant audits (0 disables)")

	return cmd
}

// runServe blocks until the command context is cancelled.
func runServe(cmd *cobra.Command, c *cli, cfg *serveConfig) error {
	ctx := cmd.Context()

	openCtx, cancelOpen := context.WithTimeout(ctx, c.cfg.Timeout)
	backend, err := c.deps.BackendOpener(openCtx, c.cfg, c.logger)
	cancelOpen()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if closeErr := backend.Close(closeCtx); closeErr != nil {
			c.logger.Warn("error closing store", "error", closeErr)
		}
	}()

	obs := c.deps.ObservabilityServerFactory(c.cfg.Metrics.Addr, backend.Ping, c.logger)
	errCh, err := obs.Start()
	if err != nil {
		return oops.With("operation", "start observability server").Wrap(err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if stopErr := obs.Stop(stopCtx); stopErr != nil {
			c.logger.Warn("error stopping observability server", "error", stopErr)
		}
	}()

	metrics := obs.Metrics()
	a := c.newApp(backend, metrics)

	cmd.Printf("Serving metrics on %s\n", obs.Addr())
	c.logger.Info("libraryhub ready", "driver", backend.Driver, "metrics_addr", obs.Addr())

	var tick <-chan time.Time
	if cfg.auditInterval > 0 {
		ticker := time.NewTicker(cfg.auditInterval)
		defer ticker.Stop()
		tick = ticker.C
		c.audit(ctx, a.borrowing, metrics)
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("shutting down")
			return nil
		case serveErr, ok := <-errCh:
			if ok && serveErr != nil {
				return oops.With("operation", "observability server").Wrap(serveErr)
			}
			errCh = nil
		case <-tick:
			c.audit(ctx, a.borrowing, metrics)
		}
	}
}

// auditRecorder receives audit results.
type auditRecorder interface {
	RecordAudit(discrepancies, orphanedLoans int)
}

// audit runs one bounded audit and publishes the result. Failures are logged.
func (c *cli) audit(ctx context.Context, svc *library.BorrowingService, rec auditRecorder) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	report, err := svc.Audit(ctx)
	if err != nil {
		c.logger.Warn("audit failed", "error", err)
		return
	}
	rec.RecordAudit(len(report.Discrepancies), report.OrphanedLoans)
	c.logger.Info("audit complete",
		"books_checked", report.BooksChecked,
		"discrepancies", len(report.Discrepancies),
		"orphaned_loans", report.OrphanedLoans)
}
