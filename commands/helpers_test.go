package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/network-plane/slash"
	"github.com/network-plane/slash/prompts"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testBuilder(t *testing.T) *prompts.Builder {
	t.Helper()
	b, err := prompts.NewBuilder(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	return b
}

func testEngine(t *testing.T, cmds ...slash.Command) *slash.Engine {
	t.Helper()
	e, err := slash.New(cmds)
	require.NoError(t, err)
	return e
}

// writeTree creates files below a fresh temp dir and returns its path.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}
