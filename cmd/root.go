package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facegate",
	Short: "Face-recognition door access daemon",
	Long: `Facegate watches a camera, recognizes enrolled faces, and drives a
door lock. A match opens the door for a fixed hold period and sends a
rate-limited notification. Subjects are enrolled and removed through the
CLI or the daemon's HTTP API.`,
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
