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
package migration

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sirupsen/logrus"

	"github.com/ocomsoft/schemashift/internal/errors"
)

// DefaultIgnoreFile lists, in gitignore syntax, files of the migrations
// directory that are not change scripts.
const DefaultIgnoreFile = ".schemashiftignore"

// Loader reads YAML change scripts named <version>_<name>.yaml from a
// directory.
type Loader struct {
	dir        string
	ignoreFile string
	logger     logrus.FieldLogger
}

type LoaderOption func(*Loader)

// WithIgnoreFile sets the ignore file name, relative to the directory.
func WithIgnoreFile(name string) LoaderOption {
	return func(l *Loader) {
		l.ignoreFile = name
	}
}

func WithLogger(logger logrus.FieldLogger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{dir: dir, ignoreFile: DefaultIgnoreFile}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		l.logger = logger
	}
	return l
}

// Load parses every change script in the directory and returns them
// ordered by version.
func (l *Loader) Load() ([]*Migration, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	ignored, err := l.ignoreMatcher()
	if err != nil {
		return nil, err
	}

	var migrations []*Migration
	seen := make(map[int64]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isScript(name) {
			continue
		}
		if ignored != nil && ignored.MatchesPath(name) {
			l.logger.WithField("file", name).Debug("Ignoring migration file")
			continue
		}
		version, title, ok := parseFileName(name)
		if !ok {
			l.logger.WithField("file", name).Debug("Skipping file without a version prefix")
			continue
		}
		if other, dup := seen[version]; dup {
			return nil, errors.NewValidationError("version", fmt.Sprintf("version %d is used by both %s and %s", version, other, name))
		}
		seen[version] = name

		m, err := l.LoadFile(filepath.Join(l.dir, name), version, title)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	l.logger.WithField("count", len(migrations)).Debug("Loaded migrations")
	return migrations, nil
}

// LoadFile parses one change script.
func (l *Loader) LoadFile(path string, version int64, name string) (*Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseScript(path, version, name, data)
}

func (l *Loader) ignoreMatcher() (*ignore.GitIgnore, error) {
	if l.ignoreFile == "" {
		return nil, nil
	}
	path := filepath.Join(l.dir, l.ignoreFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore file %s: %w", path, err)
	}
	return matcher, nil
}

func isScript(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// parseFileName splits 20240101120000_create_users.yaml into its version
// and name.
func parseFileName(file string) (int64, string, bool) {
	base := strings.TrimSuffix(file, filepath.Ext(file))
	prefix, name, found := strings.Cut(base, "_")
	if !found || name == "" {
		return 0, "", false
	}
	version, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || version < 1 {
		return 0, "", false
	}
	return version, name, true
}
