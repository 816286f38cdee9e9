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
package version

import (
	"strings"
	"testing"
)

func TestDisplayVersion(t *testing.T) {
	if got := GetDisplayVersion(); got != "schemashift v"+Version {
		t.Errorf("GetDisplayVersion() = %q", got)
	}
	if !strings.HasPrefix(GetFullVersion(), GetDisplayVersion()+" (built ") {
		t.Errorf("GetFullVersion() = %q", GetFullVersion())
	}
}

func TestBuildInfoPrefersLdflags(t *testing.T) {
	old := GitCommit
	defer func() { GitCommit = old }()

	GitCommit = "abc123"
	info := GetBuildInfo()
	if info["gitCommit"] != "abc123" {
		t.Errorf("gitCommit = %q, want abc123", info["gitCommit"])
	}
	for _, key := range []string{"version", "buildDate", "goVersion", "platform", "compiler"} {
		if info[key] == "" {
			t.Errorf("build info is missing %s", key)
		}
	}
}
