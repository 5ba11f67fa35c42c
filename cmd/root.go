package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mess-server",
	Short: "A cafeteria management server with scan-based billing",
	Long: `Mess Server runs the backend of a cafeteria management system.
Students register a face once; at the counter a single scan of the tray and
the face detects the food, matches it against the menu, identifies the
student, and records the transaction.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
