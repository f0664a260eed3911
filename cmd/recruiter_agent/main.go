// Package main provides the entry point for the recruiter agent: the HTTP API
// server and one-shot pipeline runs from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "recruiter_agent",
	Short: "Recruiter hiring-signal pipeline",
	Long: `Recruiter Agent turns a recruiter's website into an ideal-customer profile, sources
companies that are hiring, validates and ranks them, finds decision-makers and drafts
an outreach message. It runs as a REST API (serve) or once from the command line (run).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (defaults to ./configs/config.yaml or ./config.yaml)")

	rootCmd.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newGraphCmd(),
		newValidateCmd(),
		newTokenCmd(),
	)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
