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
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ocomsoft/schemashift/internal/config"
	"github.com/ocomsoft/schemashift/internal/types"
)

var (
	initDatabaseType string
	initDSN          string
)

const defaultIgnoreContent = `# Change scripts matching these patterns are not loaded.
# Uses .gitignore syntax, matched against file names in this directory.
#
# drafts/
# *_wip.yaml
`

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the migrations directory and config file",
	Long: `Initialize the migrations directory structure.

This command:
- Creates the migrations/ directory if it doesn't exist
- Writes schemashift.config.yaml with the chosen database type
- Writes an ignore file for excluding change scripts

Existing files are left untouched.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initDatabaseType, "database", "sqlite",
		"Target database type (postgresql, mysql, sqlserver, sqlite)")
	initCmd.Flags().StringVar(&initDSN, "dsn", "", "Data source name written to the config file")
}

func runInit(_ *cobra.Command, _ []string) error {
	if verbose {
		color.Cyan("Initializing schemashift")
		color.Cyan("========================")
	}

	dbType, err := types.ParseDatabaseType(initDatabaseType)
	if err != nil {
		return fmt.Errorf("invalid database type: %w", err)
	}

	cfg := config.DefaultConfig()
	cfg.Database.Type = string(dbType)
	if initDSN != "" {
		cfg.Database.DSN = initDSN
	}
	if migrationsDir != "" {
		cfg.Migration.Directory = migrationsDir
	}
	cfg.Output.Verbose = verbose

	dir := cfg.Migration.Directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}
	if verbose {
		color.Green("Created migrations directory: %s\n", dir)
		color.Yellow("Database type: %s\n", dbType)
	}

	configPath := configFile
	if configPath == "" {
		configPath = filepath.Join(dir, filepath.Base(config.GetConfigPath()))
	}
	created := []string{}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.Save(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		created = append(created, configPath)
	} else {
		color.Yellow("Config file already exists: %s\n", configPath)
	}

	ignorePath := filepath.Join(dir, cfg.Migration.IgnoreFile)
	if _, err := os.Stat(ignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(ignorePath, []byte(defaultIgnoreContent), 0644); err != nil {
			return fmt.Errorf("failed to write ignore file: %w", err)
		}
		created = append(created, ignorePath)
	}

	if len(created) == 0 {
		color.Yellow("Project already initialized.")
		color.Cyan("Use 'schemashift create NAME' to add a migration.")
		return nil
	}

	color.Green("✅ schemashift initialized successfully!\n\n")
	color.Green("Created:\n")
	for _, path := range created {
		color.Cyan("  - %s\n", path)
	}
	color.Blue("\nNext steps:\n")
	color.White("  1. Set database.dsn in %s\n", configPath)
	color.White("  2. Add a migration with: schemashift create add_users\n")
	color.White("  3. Apply it with: schemashift up\n")

	return nil
}
