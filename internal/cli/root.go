// Package cli implements paymentctl, the operator tool for the payment service.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/momo-checkout/internal/app"
	"github.com/wekeepgrowing/momo-checkout/internal/config"
	"github.com/wekeepgrowing/momo-checkout/pkg/logger"
)

type options struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the paymentctl command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "paymentctl",
		Short: "Operate mobile money payment sessions",
		Long: `paymentctl inspects and repairs mobile money payment sessions.

It reads the same configuration as the payment server (configs/payment.yaml,
PAYMENT_* environment overrides) and talks to the same database and gateway.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the config file (overrides $CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	root.AddCommand(newMigrateCommand(opts))
	root.AddCommand(newStatusCommand(opts))
	root.AddCommand(newEventsCommand(opts))
	root.AddCommand(newReconcileCommand(opts))
	root.AddCommand(newSweepCommand(opts))
	root.AddCommand(newWatchCommand(opts))

	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		if err := os.Setenv("CONFIG_PATH", o.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logs go to stderr so stdout stays machine readable
	cfg.Log.Output = "stderr"
	cfg.Log.Format = "console"
	if o.verbose {
		cfg.Log.Level = "debug"
	} else {
		cfg.Log.Level = "warn"
	}
	return cfg, nil
}

// withApp loads configuration, wires the service and runs fn.
func (o *options) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer zapLogger.Sync()

	a, err := app.New(cfg, zapLogger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
