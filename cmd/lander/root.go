package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/lander"
	"github.com/aretw0/lander/internal/config"
	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/pkg/adapters/redis"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lander",
	Short: "Lander runs scripted lead funnels",
	Long: `Lander plays short scripted funnels: a chat-like sequence of questions, a simulated
eligibility check and a result page with a reference code and a reservation countdown.
Funnels can be played in the terminal or served over HTTP and MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands). Unset flags fall back to LANDER_* variables.
	rootCmd.PersistentFlags().String("scripts", "", "Directory of funnel scripts (default: embedded funnels)")
	rootCmd.PersistentFlags().String("redis", "", "Redis URL to serve published funnels from (env LANDER_REDIS_URL)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file")
}

// setup resolves the configuration, flags first, and builds the logger.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if cmd.Flags().Changed("scripts") {
		cfg.ScriptsDir, _ = cmd.Flags().GetString("scripts")
	}
	if cmd.Flags().Changed("redis") {
		cfg.RedisURL, _ = cmd.Flags().GetString("redis")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat, _ = cmd.Flags().GetString("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.NewWithFormat(cmd.ErrOrStderr(), cfg.Level(), cfg.LogFormat), nil
}

// open builds a Lander over the configured script source. extra may add options that
// depend on the resolved configuration.
func open(cmd *cobra.Command, extra func(config.Config, *slog.Logger) []lander.Option) (*lander.Lander, config.Config, *slog.Logger, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, cfg, nil, err
	}

	opts := []lander.Option{lander.WithLogger(logger)}
	dir := cfg.ScriptsDir
	if cfg.RedisURL != "" {
		rl, err := redis.NewFromURL(cfg.RedisURL, redis.WithLogger(logger))
		if err != nil {
			return nil, cfg, nil, err
		}
		if err := rl.Ping(cmd.Context()); err != nil {
			rl.Close()
			return nil, cfg, nil, fmt.Errorf("redis unavailable: %w", err)
		}
		opts = append(opts, lander.WithLoader(rl))
		dir = "redis"
	}
	if extra != nil {
		opts = append(opts, extra(cfg, logger)...)
	}

	l, err := lander.New(dir, opts...)
	if err != nil {
		return nil, cfg, nil, err
	}
	return l, cfg, logger, nil
}
