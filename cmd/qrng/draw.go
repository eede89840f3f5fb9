package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/artpar/qrng/app"
	"github.com/artpar/qrng/bootstrap"
	"github.com/spf13/cobra"
)

var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Draw random values once and exit",
	Long: `Draw random values from a freshly filled buffer.

The generator runs in wait mode, so each draw blocks until the provider
has delivered enough digits. Logs go to stderr, values to stdout.

Examples:
  qrng draw integer --min 1 --max 7
  qrng draw hex --length 32
  qrng draw float --count 5
  qrng draw choice heads tails
  qrng draw shuffle a b c d`,
}

var (
	drawCount  int
	drawMin    int64
	drawMax    int64
	drawLength int
)

var drawIntegerCmd = &cobra.Command{
	Use:   "integer",
	Short: "Draw integers from [min, max)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var min, max *int64
		if cmd.Flags().Changed("min") {
			min = &drawMin
		}
		if cmd.Flags().Changed("max") {
			max = &drawMax
		}
		return withGenerator(cmd, func(ctx context.Context, g *app.Generator, out io.Writer) error {
			for i := 0; i < drawCount; i++ {
				v, err := g.Integer(ctx, min, max)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v)
			}
			return nil
		})
	},
}

var drawHexCmd = &cobra.Command{
	Use:   "hex",
	Short: "Draw raw hex digits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenerator(cmd, func(ctx context.Context, g *app.Generator, out io.Writer) error {
			for i := 0; i < drawCount; i++ {
				v, err := g.Hexadecimal(ctx, drawLength)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v)
			}
			return nil
		})
	},
}

var drawFloatCmd = &cobra.Command{
	Use:   "float",
	Short: "Draw floats from [0, 1)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenerator(cmd, func(ctx context.Context, g *app.Generator, out io.Writer) error {
			for i := 0; i < drawCount; i++ {
				v, err := g.Float(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v)
			}
			return nil
		})
	},
}

var drawBooleanCmd = &cobra.Command{
	Use:   "boolean",
	Short: "Draw booleans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenerator(cmd, func(ctx context.Context, g *app.Generator, out io.Writer) error {
			for i := 0; i < drawCount; i++ {
				v, err := g.Boolean(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v)
			}
			return nil
		})
	},
}

var drawChoiceCmd = &cobra.Command{
	Use:   "choice <item>...",
	Short: "Pick one of the arguments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenerator(cmd, func(ctx context.Context, g *app.Generator, out io.Writer) error {
			for i := 0; i < drawCount; i++ {
				v, err := app.Choice(ctx, g, args)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v)
			}
			return nil
		})
	},
}

var drawShuffleCmd = &cobra.Command{
	Use:   "shuffle <item>...",
	Short: "Print the arguments in random order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenerator(cmd, func(ctx context.Context, g *app.Generator, out io.Writer) error {
			for i := 0; i < drawCount; i++ {
				v, err := app.Shuffle(ctx, g, args)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, strings.Join(v, " "))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(drawCmd)
	drawCmd.AddCommand(drawIntegerCmd, drawHexCmd, drawFloatCmd, drawBooleanCmd, drawChoiceCmd, drawShuffleCmd)

	drawCmd.PersistentFlags().IntVarP(&drawCount, "count", "n", 1, "number of draws")
	drawIntegerCmd.Flags().Int64Var(&drawMin, "min", 0, "inclusive lower bound (default max-256)")
	drawIntegerCmd.Flags().Int64Var(&drawMax, "max", 256, "exclusive upper bound (default min+256)")
	drawHexCmd.Flags().IntVarP(&drawLength, "length", "l", 6, "number of hex digits")
}

// withGenerator builds a wait-mode generator, warms it up and runs fn.
func withGenerator(cmd *cobra.Command, fn func(ctx context.Context, g *app.Generator, out io.Writer) error) error {
	if drawCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := bootstrap.New(ctx, bootstrap.Options{
		ConfigPath: cfgFile,
		Mode:       app.RefillWait,
		LogOutput:  os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}
	defer a.Shutdown()

	if err := bootstrap.Warmup(ctx, a.Generator, a.Config.Cache.WarmupTimeout, a.Logger); err != nil {
		return fmt.Errorf("random data unavailable: %w", err)
	}

	return fn(ctx, a.Generator, cmd.OutOrStdout())
}
