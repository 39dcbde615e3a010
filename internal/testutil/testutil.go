// Package testutil holds helpers shared by the CLI, watch and scaffold tests.
package testutil

import (
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/drey/pkg/mirror"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// NewMirror starts an in-memory Redis server and returns a mirror client
// named name connected to it. Both are closed when the test ends.
func NewMirror(t *testing.T, name string) (*mirror.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := mirror.NewClient(&redis.Options{Addr: mr.Addr()}, name)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

// InTempDir switches the working directory to a fresh temporary directory
// for the rest of the test and returns its path.
func InTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(originalDir) })

	return dir
}
