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
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

const scriptTemplate = `# %s
#
# Operations listed under change are reversed automatically on rollback.
# Replace change with up and down sections when an operation cannot be
# reversed (change_column, drop_table without columns, remove_column).
#
# change:
#   - create_table:
#       name: users
#       columns:
#         - name: email
#           type: string
#           limit: 255
#       indexes:
#         - columns: [email]
#           unique: true
#   - add_column:
#       table: users
#       name: last_login_at
#       type: datetime
#       null: true
change: []
`

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new change script",
	Long: `Create an empty change script named <timestamp>_<name>.yaml in the
migrations directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := scriptName(args[0])
	if name == "" {
		return fmt.Errorf("invalid migration name %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := cfg.Migration.Directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}

	file := fmt.Sprintf("%s_%s.yaml", time.Now().UTC().Format("20060102150405"), name)
	path := filepath.Join(dir, file)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("migration %s already exists", path)
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf(scriptTemplate, file)), 0644); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Created %s\n", green("✓"), path)
	return nil
}

// scriptName turns "Add Users" into add_users.
func scriptName(raw string) string {
	return strings.Trim(nonWord.ReplaceAllString(strings.ToLower(raw), "_"), "_")
}
