package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/artpar/qrng/bootstrap"
	"github.com/artpar/qrng/config"
	"github.com/artpar/qrng/core/formatter"
	"github.com/artpar/qrng/domain/buffer"
	"github.com/spf13/cobra"
)

var statsOutput string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the persisted buffer",
	Long: `Show the buffer persisted by the configured store without contacting
the provider.

Examples:
  qrng stats
  qrng stats --output json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "table",
		"output format ("+strings.Join(formatter.List(), ", ")+")")
}

type persistedStats struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn,omitempty"`
	Key      string `json:"key"`
	Found    bool   `json:"found"`
	Valid    bool   `json:"valid"`
	Digits   int    `json:"digits"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

var statsColumns = []string{"driver", "dsn", "key", "capacity", "status", "found", "valid", "digits", "error"}

func (s persistedStats) record() map[string]any {
	record := map[string]any{
		"driver":   s.Driver,
		"key":      s.Key,
		"capacity": s.Capacity,
		"status":   s.Status,
		"found":    s.Found,
		"valid":    s.Valid,
		"digits":   s.Digits,
	}
	if s.DSN != "" {
		record["dsn"] = s.DSN
	}
	if s.Error != "" {
		record["error"] = s.Error
	}
	return record
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	stats, err := loadPersistedStats(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	f, ok := formatter.Get(statsOutput)
	if !ok {
		return fmt.Errorf("unknown output format %q (available: %s)", statsOutput, strings.Join(formatter.List(), ", "))
	}

	columns := make([]string, 0, len(statsColumns))
	record := stats.record()
	for _, col := range statsColumns {
		if _, ok := record[col]; ok {
			columns = append(columns, col)
		}
	}
	return f.FormatRecord(cmd.OutOrStdout(), "buffer", record, formatter.FormatOptions{Columns: columns})
}

func loadPersistedStats(ctx context.Context, cfg *config.Config) (persistedStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	stats := persistedStats{
		Driver:   cfg.Store.Driver,
		DSN:      cfg.Store.DSN,
		Key:      cfg.Store.Key,
		Capacity: cfg.Cache.Size,
	}

	store, err := bootstrap.OpenStore(ctx, cfg.Store)
	if err != nil {
		return stats, err
	}
	if store == nil {
		stats.Status = "disabled"
		return stats, nil
	}
	defer store.Close()

	value, found, err := store.Load(ctx, cfg.Store.Key)
	if err != nil {
		return stats, fmt.Errorf("load buffer: %w", err)
	}
	stats.Found = found
	if !found {
		stats.Status = "empty"
		return stats, nil
	}

	digits, err := buffer.DecodeSnapshot(value)
	if err != nil {
		stats.Status = "corrupt"
		stats.Error = err.Error()
		return stats, nil
	}
	stats.Status = "ok"
	stats.Valid = true
	stats.Digits = len(digits)
	return stats, nil
}
