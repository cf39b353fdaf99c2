// Command threadctl runs maintenance jobs against a threadline store and
// drives a running threadline server from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"threadline/internal/client"
	"threadline/internal/clilog"
	"threadline/internal/config"
	"threadline/internal/middleware"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "threadctl",
	Short: "threadctl - threadline maintenance and client tool",
	Long: `threadctl repairs and seeds a threadline store directly, and talks to a
running threadline server for likes, follows and feeds.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		clilog.Init(clilog.Config{Level: level, JSONOutput: jsonLogs})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("threadctl version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit JSON logs")
	rootCmd.PersistentFlags().String("api", client.DefaultBaseURL, "Base URL of the threadline API")
	rootCmd.PersistentFlags().String("token", "", "Bearer token for API calls")
	rootCmd.PersistentFlags().String("as", "", "Sign a short-lived token for this user id with the configured JWT secret")

	rootCmd.AddCommand(recountCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(feedCmd)
}

// apiClient builds a client from the persistent flags.
func apiClient(cmd *cobra.Command) (*client.API, error) {
	baseURL, _ := cmd.Flags().GetString("api")
	token, _ := cmd.Flags().GetString("token")
	as, _ := cmd.Flags().GetString("as")

	if token == "" && as != "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if token, err = middleware.SignToken(cfg, as, time.Hour); err != nil {
			return nil, fmt.Errorf("sign token: %w", err)
		}
	}
	return client.NewAPI(baseURL, client.WithToken(token)), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
