/*
MIT License

# Copyright (c) 2025 OcomSoft

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/ocomsoft/schemashift/internal/runner"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Long: `Apply every pending change script in version order.

Each migration runs inside its own transaction. A failing migration is rolled
back and the command stops; earlier migrations stay applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), "up", func(ctx context.Context, r *runner.Runner) error {
			results, err := r.Up(ctx)
			if runner.IsNoMigrations(err) {
				fmt.Printf("%s No pending migrations\n", green("✓"))
				return nil
			}
			printResults(r, results)
			return err
		})
	},
}

var upToCmd = &cobra.Command{
	Use:   "up-to VERSION",
	Short: "Apply pending migrations up to and including VERSION",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		return withRunner(cmd.Context(), "up-to", func(ctx context.Context, r *runner.Runner) error {
			results, err := r.UpTo(ctx, target)
			if runner.IsNoMigrations(err) {
				fmt.Printf("%s No pending migrations\n", green("✓"))
				return nil
			}
			printResults(r, results)
			return err
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recently applied migration",
	Long: `Roll back the most recently applied migration.

Change scripts are reversed by replaying the inverse of their operations.
Scripts that use an irreversible operation need an explicit down section.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), "down", func(ctx context.Context, r *runner.Runner) error {
			result, err := r.Down(ctx)
			if runner.IsNothingToRollBack(err) {
				fmt.Printf("%s Nothing to roll back\n", yellow("⚠"))
				return nil
			}
			if result != nil {
				printResults(r, []*goose.MigrationResult{result})
			}
			return err
		})
	},
}

var downToCmd = &cobra.Command{
	Use:   "down-to VERSION",
	Short: "Roll back migrations newer than VERSION",
	Long: `Roll back every applied migration with a version greater than VERSION.
Use 0 to roll back everything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		return withRunner(cmd.Context(), "down-to", func(ctx context.Context, r *runner.Runner) error {
			results, err := r.DownTo(ctx, target)
			if runner.IsNothingToRollBack(err) {
				fmt.Printf("%s Nothing to roll back\n", yellow("⚠"))
				return nil
			}
			printResults(r, results)
			return err
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), "status", func(ctx context.Context, r *runner.Runner) error {
			current, err := r.Version(ctx)
			if err != nil {
				return err
			}
			statuses, err := r.Status(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%s Current version: %s\n\n", cyan("ℹ"), cyan(current))
			for _, s := range statuses {
				label := migrationLabel(r, s.Source.Version)
				if s.State == goose.StateApplied {
					fmt.Printf("  %s %-40s applied %s\n", green("✓"), label, s.AppliedAt.Local().Format(time.DateTime))
					continue
				}
				fmt.Printf("  %s %-40s pending\n", yellow("•"), label)
			}
			return nil
		})
	},
}

// withRunner loads config, opens a runner and hands it to fn.
func withRunner(ctx context.Context, command string, fn func(context.Context, *runner.Runner) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mode := ""
	if cfg.Output.DryRun {
		mode = yellow(" (dry run)")
	}
	fmt.Printf("%s Running %s against %s%s...\n", blue("▶"), command, cfg.Database.Type, mode)

	r, err := openRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	return fn(ctx, r)
}

func printResults(r *runner.Runner, results []*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		label := migrationLabel(r, res.Source.Version)
		if res.Error != nil {
			fmt.Printf("  %s %s %s: %v\n", red("✗"), res.Direction, label, res.Error)
			continue
		}
		fmt.Printf("  %s %s %s (%s)\n", green("✓"), res.Direction, label, res.Duration.Round(time.Millisecond))
	}
}

func parseVersion(arg string) (int64, error) {
	v, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid version %q", arg)
	}
	return v, nil
}

func init() {
	rootCmd.AddCommand(upCmd, upToCmd, downCmd, downToCmd, statusCmd)
}
