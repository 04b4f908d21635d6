// Package cli builds the cobra entrypoints shared by the api and worker
// processes.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gigflow/internal/platform/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Context carries what a process needs once flags are resolved.
type Context struct {
	Ctx    context.Context
	Config config.Config
	Logger *slog.Logger
}

type RunFunc func(*Context) error

// NewCommand returns a root command whose flags override env and config file
// values through viper.
func NewCommand(use string, short string, run RunFunc) *cobra.Command {
	v := viper.New()
	var logLevel string

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(&Context{Ctx: ctx, Config: cfg, Logger: logger})
		},
	}

	registerFlags(cmd.Flags())
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cobra.CheckErr(bindFlags(v, cmd.Flags()))
	return cmd
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "optional config file (yaml, toml or json)")
	flags.String("http-port", "", "HTTP listen port")
	flags.String("postgres-dsn", "", "Postgres DSN; empty keeps hiring state in memory")
	flags.String("allowed-origin", "", "allowed websocket Origin; empty allows any")
	flags.Bool("allow-frame-register", false, "accept websocket register frames from sessions without X-User-Id")
	flags.Duration("hire-lock-timeout", 0, "maximum wait for a posting unit of work")
	flags.Int("hire-max-attempts", 0, "hire attempts on transient failure")
	flags.Duration("outbox-poll-interval", 0, "outbox relay poll interval")
}

// bindFlags maps each flag onto its config key. Unset flags fall through to
// env and defaults.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	keys := map[string]string{
		"config":               config.KeyConfigFile,
		"http-port":            config.KeyHTTPPort,
		"postgres-dsn":         config.KeyPostgresDSN,
		"allowed-origin":       config.KeyAllowedOrigin,
		"allow-frame-register": config.KeyAllowFrameRegister,
		"hire-lock-timeout":    config.KeyHireLockTimeout,
		"hire-max-attempts":    config.KeyHireMaxAttempts,
		"outbox-poll-interval": config.KeyOutboxPollInterval,
	}
	for flagName, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flagName)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flagName, err)
		}
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}
