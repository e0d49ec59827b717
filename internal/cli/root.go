// Package cli implements the geeq command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/GeeQuery/geequery-orm/config"
	"github.com/GeeQuery/geequery-orm/internal/logging"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

type appKey struct{}

// app is the state shared by the commands of one invocation.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

func fromContext(ctx context.Context) *app {
	if a, ok := ctx.Value(appKey{}).(*app); ok {
		return a
	}
	return &app{cfg: config.Default(), log: logging.Nop()}
}

// NewRootCmd returns the geeq command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:     "geeq",
		Short:   "Inspect SQL dialect profiles and key generation",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			log, _ := logging.New(cmd.ErrOrStderr(), cfg.Log)
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{cfg: cfg, log: log}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (YAML)")
	pf.String("dialect", "", "default dialect profile")
	pf.String("dsn", "", "database connection URL")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")
	pf.Duration("slow-query", 0, "slow query threshold")
	pf.Bool("manual-sequence", false, "keep caller-assigned keys")
	pf.Bool("single-site", false, "disable datasource routing")

	_ = root.RegisterFlagCompletionFunc("log-format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newDialectsCmd(),
		newURLCmd(),
		newRenderCmd(),
		newProbeCmd(),
		newConfigCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration.

With --watch the config file is reloaded whenever it changes and the new
configuration is printed until the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := fromContext(cmd.Context())
			if !watch {
				return printConfig(cmd, a.cfg)
			}
			path, _ := cmd.Root().PersistentFlags().GetString("config")
			if path == "" {
				return errors.New("config: --watch needs a --config file")
			}
			w, err := config.Watch(path, cmd.Root().PersistentFlags(),
				config.WithWatchLogger(a.log),
				config.OnChange(func(c *config.Config) {
					if err := printConfig(cmd, c); err != nil {
						a.log.Warn("print config", "error", err)
					}
				}))
			if err != nil {
				return err
			}
			if err := printConfig(cmd, w.Config()); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload and print the config file on every change")
	return cmd
}

func printConfig(cmd *cobra.Command, cfg *config.Config) error {
	out, err := cfg.YAML()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
