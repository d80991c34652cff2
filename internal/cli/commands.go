package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/momo-checkout/internal/app"
	"github.com/wekeepgrowing/momo-checkout/internal/usecase"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the payment tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(_ context.Context, a *app.App) error {
				if err := a.Migrate(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", a.Config.Database.Driver)
				return nil
			})
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <reference>",
		Short: "Show a payment session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				session, err := a.Services.Sessions.GetByReference(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), session)
			})
		},
	}
}

func newEventsCommand(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events <reference>",
		Short: "List the audit log of a payment session, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				session, err := a.Services.Sessions.GetByReference(ctx, args[0])
				if err != nil {
					return err
				}
				events, err := a.Services.Sessions.Events(ctx, session.ID, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), events)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of events")
	return cmd
}

func newReconcileCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <reference>",
		Short: "Query the gateway for a session and apply the answer",
		Long: `reconcile asks the gateway for the current state of a charge. A conclusive
answer completes or fails the session through the same path as the webhook.
Sessions past the absolute timeout with no answer are expired.

Operator reconciles are not subject to the minimum dwell time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				result, err := a.Services.Reconciler.Reconcile(ctx, args[0], usecase.TriggerOperator)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"action":         result.Action,
					"gateway_status": result.GatewayStatus,
					"session":        result.Session,
				})
			})
		},
	}
}

func newSweepCommand(opts *options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile one batch of stale sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				report, err := a.Services.Sweeper.Sweep(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Abort the sweep after this long")
	return cmd
}
