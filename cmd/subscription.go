package cmd

import (
	"fmt"
	"os"
	"text/tabwriter" // For aligned table output

	"submerger/config"
	"submerger/database"
	"submerger/logger"
	"submerger/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

// --- Flags ---
var (
	subAddURL  string
	subAddName string
	importFile string
)

// --- Base Command ---

var subscriptionCmd = &cobra.Command{
	Use:     "subscription",
	Short:   "Manage stored subscription sources",
	Long:    `Allows you to list, add, remove or bulk-import the subscription URLs that feed the merge pipeline.`,
	Aliases: []string{"sub"},
}

// --- List Command ---

var subscriptionListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all stored subscriptions",
	Aliases: []string{"ls"},
	Run: func(cmd *cobra.Command, args []string) {
		logger.Info("Executing 'subscription list' command")
		subs, err := database.GetAllSubscriptions()
		if err != nil {
			logger.Error("Failed to query subscriptions: %v", err)
			fmt.Fprintln(os.Stderr, "Error retrieving subscriptions from database.")
			os.Exit(1)
		}

		if len(subs) == 0 {
			fmt.Println("No subscriptions stored yet.")
			return
		}

		writer := new(tabwriter.Writer)
		writer.Init(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(writer, "ID\tNAME\tURL")
		for _, sub := range subs {
			name := sub.Name
			if name == "" {
				name = "-"
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\n", sub.ID, name, sub.URL)
		}
		writer.Flush()
	},
}

// --- Add Command ---

var subscriptionAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a subscription URL",
	Run: func(cmd *cobra.Command, args []string) {
		if subAddURL == "" {
			fmt.Fprintln(os.Stderr, "Error: --url is required.")
			os.Exit(1)
		}
		sub := models.Subscription{
			ID:   uuid.New().String(),
			URL:  subAddURL,
			Name: subAddName,
		}
		created, err := database.AddSubscription(sub)
		if err != nil {
			logger.Error("Failed to add subscription '%s': %v", subAddURL, err)
			fmt.Fprintln(os.Stderr, "Error adding subscription to database.")
			os.Exit(1)
		}
		fmt.Printf("Subscription added with ID %s\n", created.ID)
	},
}

// --- Remove Command ---

var subscriptionRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Short:   "Remove a subscription by ID",
	Aliases: []string{"rm", "delete"},
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := database.DeleteSubscription(args[0]); err != nil {
			logger.Error("Failed to delete subscription '%s': %v", args[0], err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Subscription %s removed.\n", args[0])
	},
}

// --- Import Command ---

var subscriptionImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import subscriptions from a JSON export",
	Long: `Reads a JSON export from another subscription manager and imports every
entry with a usable URL. The locations of the subscriptions array and of the
url/name fields inside each entry are configurable GJSON paths (import.*
settings), so exports with different shapes can be consumed without code
changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		if importFile == "" {
			fmt.Fprintln(os.Stderr, "Error: --file is required.")
			os.Exit(1)
		}
		data, err := os.ReadFile(importFile)
		if err != nil {
			logger.Error("Failed to read import file '%s': %v", importFile, err)
			fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
			os.Exit(1)
		}

		arrayPath := config.AppConfig.Import.SubscriptionsArrayPath
		entries := gjson.GetBytes(data, arrayPath)
		if !entries.Exists() || !entries.IsArray() {
			logger.Error("Import file '%s' has no array at GJSON path '%s'", importFile, arrayPath)
			fmt.Fprintf(os.Stderr, "Error: no subscription array found at path '%s'.\n", arrayPath)
			os.Exit(1)
		}

		imported := 0
		skipped := 0
		for _, entry := range entries.Array() {
			url := entry.Get(config.AppConfig.Import.URLField).String()
			if url == "" {
				skipped++
				continue
			}
			sub := models.Subscription{
				ID:   uuid.New().String(),
				URL:  url,
				Name: entry.Get(config.AppConfig.Import.NameField).String(),
			}
			if _, err := database.AddSubscription(sub); err != nil {
				logger.Error("Failed to import subscription '%s': %v", url, err)
				skipped++
				continue
			}
			imported++
		}
		logger.Info("Imported %d subscriptions from '%s' (%d skipped).", imported, importFile, skipped)
		fmt.Printf("Imported %d subscriptions (%d skipped).\n", imported, skipped)
	},
}

func init() {
	subscriptionAddCmd.Flags().StringVar(&subAddURL, "url", "", "subscription URL (required)")
	subscriptionAddCmd.Flags().StringVar(&subAddName, "name", "", "display name, also used as the merge prefix")
	subscriptionImportCmd.Flags().StringVar(&importFile, "file", "", "path to the JSON export file (required)")

	subscriptionCmd.AddCommand(subscriptionListCmd)
	subscriptionCmd.AddCommand(subscriptionAddCmd)
	subscriptionCmd.AddCommand(subscriptionRemoveCmd)
	subscriptionCmd.AddCommand(subscriptionImportCmd)
	rootCmd.AddCommand(subscriptionCmd)
}
