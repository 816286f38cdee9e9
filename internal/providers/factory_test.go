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
package providers

import (
	"testing"

	"github.com/ocomsoft/schemashift/internal/sink/sinktest"
	"github.com/ocomsoft/schemashift/internal/types"
)

func TestRegistryNew(t *testing.T) {
	r := NewRegistry()

	for _, dbType := range types.SupportedDatabases {
		p, err := r.New(dbType, &sinktest.Recorder{}, nil)
		if err != nil {
			t.Errorf("New(%s) failed: %v", dbType, err)
			continue
		}
		if p.Dialect() != dbType {
			t.Errorf("New(%s) returned a %s provider", dbType, p.Dialect())
		}
	}

	if _, err := r.New("oracle", &sinktest.Recorder{}, nil); err == nil {
		t.Error("Expected an error for an unknown database type")
	}
}

func TestRegistryDriverName(t *testing.T) {
	r := NewRegistry()

	tests := map[types.DatabaseType]string{
		types.DatabaseSQLite:     "sqlite3",
		types.DatabasePostgreSQL: "postgres",
		types.DatabaseMySQL:      "mysql",
		types.DatabaseSQLServer:  "sqlserver",
	}
	for dbType, want := range tests {
		got, err := r.DriverName(dbType)
		if err != nil || got != want {
			t.Errorf("DriverName(%s) = %q, %v; want %q", dbType, got, err, want)
		}
	}
	if _, err := r.DriverName("oracle"); err == nil {
		t.Error("Expected an error for an unknown database type")
	}
}

func TestRegistryDialects(t *testing.T) {
	got := NewRegistry().Dialects()
	want := []types.DatabaseType{types.DatabaseMySQL, types.DatabasePostgreSQL, types.DatabaseSQLite, types.DatabaseSQLServer}
	if len(got) != len(want) {
		t.Fatalf("Dialects() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Dialects()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
