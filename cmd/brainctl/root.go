package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL  string
	authToken  string
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:          "brainctl",
	Short:        "Command line client for the docbrain server",
	SilenceUsage: true,
}

func init() {
	defaultServer := os.Getenv("DOCBRAIN_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:3000"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "server base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("DOCBRAIN_TOKEN"), "admin bearer token")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print raw JSON responses")
}
