package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var update = flag.Bool("update", false, "rewrite golden files")

// Golden compares got with testdata/<name>.golden. Running the tests with
// -update or LOCKIN_GOLDEN_UPDATE=1 rewrites the file instead.
func Golden(t *testing.T, name string, got []byte) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")
	if *update || os.Getenv("LOCKIN_GOLDEN_UPDATE") != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, got, 0644))
		return
	}

	want, err := os.ReadFile(path)
	require.NoError(t, err, "missing golden file %s", path)

	// Checkouts on Windows may carry CRLF.
	assert.Equal(t, unixNewlines(string(want)), unixNewlines(string(got)), "output mismatch for %s", name)
}

// GoldenString is like Golden but takes a string.
func GoldenString(t *testing.T, name string, got string) {
	t.Helper()
	Golden(t, name, []byte(got))
}

func unixNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
