package cmd

import (
	"fmt"
	"os"
	"time"

	"submerger/config"
	"submerger/core"
	"submerger/database"
	"submerger/logger"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch all subscriptions, merge and persist the result",
	Run: func(cmd *cobra.Command, args []string) {
		fetcher := core.NewFetcher(
			time.Duration(config.AppConfig.Fetch.TimeoutSeconds)*time.Second,
			config.AppConfig.Fetch.UserAgent,
		)
		service := core.NewRefreshService(database.Store{}, fetcher.Fetch)

		if err := service.RefreshAll(cmd.Context()); err != nil {
			logger.Error("Refresh failed: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Refresh successful")
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
