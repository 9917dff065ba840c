package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/lander"
	"github.com/aretw0/lander/pkg/adapters/redis"
	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push [funnel...]",
	Short: "Publish funnel scripts to Redis",
	Long: `Validates funnel scripts from --scripts (or the embedded set) and publishes them to the
Redis server named by --redis, so every "lander serve --redis" instance serves the same funnels.
With no arguments every funnel is published.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cfg.RedisURL == "" {
			return errors.New("push needs --redis or LANDER_REDIS_URL")
		}

		src, err := lander.New(cfg.ScriptsDir, lander.WithLogger(logger))
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := redis.NewFromURL(cfg.RedisURL, redis.WithLogger(logger))
		if err != nil {
			return err
		}
		defer dst.Close()

		ids := args
		if len(ids) == 0 {
			if ids, err = src.Loader().List(); err != nil {
				return err
			}
		}
		for _, id := range ids {
			script, err := src.Loader().Load(id)
			if err != nil {
				return err
			}
			if err := dst.Put(cmd.Context(), script); err != nil {
				return fmt.Errorf("push %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
}
