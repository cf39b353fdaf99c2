package main

import (
	"fmt"
	"time"

	"threadline/internal/clilog"
	"threadline/internal/config"
	"threadline/internal/database"
	"threadline/internal/seed"
	"threadline/internal/service"

	"github.com/spf13/cobra"
)

var recountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Recompute post like and reply counts from the stored edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, _ := cmd.Flags().GetInt("batch")
		log := clilog.WithCommand("recount")

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx := commandContext(cmd)
		store, err := database.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close(ctx)

		start := time.Now()
		res, err := service.NewCounterReconciler(store.Posts, store.Likes).RecountAll(ctx, batch)
		if err != nil {
			log.Error().Err(err).Int("scanned", res.Scanned).Msg("recount failed")
			return err
		}
		log.Info().
			Str("store", store.Backend()).
			Int("scanned", res.Scanned).
			Int("repaired", res.Repaired).
			Dur("took", time.Since(start)).
			Msg("recount complete")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the store with fake profiles, threads and interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts seed.Options
		opts.Users, _ = cmd.Flags().GetInt("users")
		opts.Posts, _ = cmd.Flags().GetInt("posts")
		opts.RepliesPerPost, _ = cmd.Flags().GetInt("replies")
		opts.LikesPerPost, _ = cmd.Flags().GetInt("likes")
		opts.FollowsPerUser, _ = cmd.Flags().GetInt("follows")
		opts.Seed, _ = cmd.Flags().GetInt64("seed")
		log := clilog.WithCommand("seed")

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.IsProduction() {
			return fmt.Errorf("refusing to seed a production store")
		}
		ctx := commandContext(cmd)
		store, err := database.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close(ctx)

		res, err := seed.Run(ctx, store, opts)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		log.Info().
			Int("profiles", res.Profiles).
			Int("threads", res.Threads).
			Int("replies", res.Replies).
			Int("likes", res.Likes).
			Int("follows", res.Follows).
			Msg("seed complete")
		return nil
	},
}

func init() {
	recountCmd.Flags().Int("batch", 200, "Posts per batch")

	seedCmd.Flags().Int("users", 20, "Profiles to create")
	seedCmd.Flags().Int("posts", 50, "Threads to create")
	seedCmd.Flags().Int("replies", 3, "Replies per thread")
	seedCmd.Flags().Int("likes", 5, "Likes per thread")
	seedCmd.Flags().Int("follows", 4, "Accounts each profile follows")
	seedCmd.Flags().Int64("seed", 0, "Random seed (0 picks one)")
}
