package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "qrng",
	Short: "Buffered quantum random numbers",
	Long: `qrng serves random numbers drawn from a buffer of hex digits fetched
from a quantum random number provider.

Quick start:
  qrng serve              # Start the HTTP API
  qrng draw integer       # One-shot draw from [0, 256)

Management:
  qrng stats              # Show the persisted buffer
  qrng validate           # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "qrng.yaml", "config file path")
}
