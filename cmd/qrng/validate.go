package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/artpar/qrng/bootstrap"
	"github.com/artpar/qrng/config"
	"github.com/artpar/qrng/domain/provider"
	"github.com/artpar/qrng/domain/sizing"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the qrng configuration file.

Checks:
  - YAML syntax is valid
  - Values are in range
  - Provider answers a small request (optional)
  - Store can be opened (optional)

Examples:
  qrng validate
  qrng validate --check-provider --check-store
  qrng validate --config /etc/qrng/config.yaml`,
	RunE: runValidate,
}

var (
	validateCheckProvider bool
	validateCheckStore    bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckProvider, "check-provider", false, "check that the provider returns valid data")
	validateCmd.Flags().BoolVar(&validateCheckStore, "check-store", false, "check that the store can be opened")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	// Check file exists
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	// Load and validate config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config syntax valid\n", checkMark)

	genCfg, err := bootstrap.GeneratorConfig(cfg)
	if err != nil {
		fmt.Fprintf(out, "  %s Cache settings valid\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Cache settings valid\n", checkMark)

	// Show config summary
	fmt.Fprintf(out, "  %s Provider: %s (%s)\n", checkMark, cfg.Provider.URL, cfg.Provider.Mode)
	fmt.Fprintf(out, "  %s Cache: %d digits, %s refill\n", checkMark, genCfg.CacheSize, genCfg.Mode)
	fmt.Fprintf(out, "  %s Store: %s %s\n", checkMark, cfg.Store.Driver, cfg.Store.DSN)

	if validateCheckProvider {
		if err := checkProvider(cfg.Provider); err != nil {
			fmt.Fprintf(out, "  %s Provider reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Provider reachable\n", checkMark)
		}
	}

	if validateCheckStore {
		if err := checkStore(cfg.Store); err != nil {
			fmt.Fprintf(out, "  %s Store opens\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Store opens\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkProvider(cfg config.ProviderConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req := sizing.Request{BlockCount: 1, BlockSize: 1}
	resp, err := bootstrap.NewProvider(cfg, zerolog.Nop()).Fetch(ctx, req)
	if err != nil {
		return err
	}
	_, err = provider.Validate(resp, req)
	return err
}

func checkStore(cfg config.StoreConfig) error {
	store, err := bootstrap.OpenStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	if store != nil {
		return store.Close()
	}
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
