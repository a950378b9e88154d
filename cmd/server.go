package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"submerger/api"
	"submerger/config"
	"submerger/core"
	"submerger/database"
	"submerger/logger"

	"github.com/spf13/cobra"
)

var serverPort string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the subscription merger API server and background refresh scheduler",
	Long: `Runs the HTTP API for subscription CRUD, custom rules and merged results,
plus the periodic background refresh. Press Ctrl+C to shut down gracefully.`,
	Run: func(cmd *cobra.Command, args []string) {
		portToUse := serverPort
		if !cmd.Flags().Changed("port") {
			portToUse = config.AppConfig.Server.Port
		}
		if portToUse == "" {
			logger.Error("Server port is empty after checking flag and config, defaulting to 8900")
			portToUse = "8900"
		}

		fetcher := core.NewFetcher(
			time.Duration(config.AppConfig.Fetch.TimeoutSeconds)*time.Second,
			config.AppConfig.Fetch.UserAgent,
		)
		refreshService := core.NewRefreshService(database.Store{}, fetcher.Fetch)
		scheduler := core.NewScheduler(
			refreshService,
			time.Duration(config.AppConfig.Refresh.IntervalMinutes)*time.Minute,
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if config.AppConfig.Refresh.Enabled {
			scheduler.Start(ctx)
		}

		apiRouter := api.NewRouter(refreshService)
		mainMux := http.NewServeMux()
		mainMux.Handle("/api/", http.StripPrefix("/api", apiRouter))
		mainMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Clash Subscription Merger is running"})
		})

		server := &http.Server{
			Addr:    ":" + portToUse,
			Handler: mainMux,
		}

		serverErr := make(chan error, 1)
		go func() {
			logger.Info("Starting server on port %s...", portToUse)
			serverErr <- server.ListenAndServe()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info("Received signal %s, shutting down...", sig)
		case err := <-serverErr:
			if err != nil && err != http.ErrServerClosed {
				logger.Error("Server exited unexpectedly: %v", err)
			}
		}

		if config.AppConfig.Refresh.Enabled {
			scheduler.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error: %v", err)
		}
		logger.Info("Server stopped.")
	},
}

func init() {
	serverCmd.Flags().StringVarP(&serverPort, "port", "p", "8900", "Port for the server to listen on")
	rootCmd.AddCommand(serverCmd)
}
