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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocomsoft/schemashift/internal/version"
)

var (
	configFile    string // Config file path
	migrationsDir string
	dryRun        bool
	verbose       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "schemashift",
	Short: "Reversible schema migrations for Go",
	Long: `Apply and roll back schema changes written as YAML change scripts.

Each script in the migrations directory is named <version>_<name>.yaml and
holds either a reversible "change" list or explicit "up" and "down" lists.
Rolling back a change script replays the inverse of its operations, so most
migrations never need a hand written down section.

SQLite tables are rebuilt through a copy when ALTER TABLE cannot express the
change. PostgreSQL, MySQL and SQL Server use native ALTER statements.

Applied versions are tracked in a goose version table.`,
	SilenceUsage: true,
}

// GetRootCmd returns the root command for embedding in other applications
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: migrations/schemashift.config.yaml)")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "", "Migrations directory (overrides migration.directory)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print the SQL instead of executing it")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Show detailed processing information")

	rootCmd.Version = version.GetVersion()
	rootCmd.SetVersionTemplate(version.GetDisplayVersion() + "\n")
}
