package slash

import (
	"runtime"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceOpenFiles(t *testing.T) {
	ws := NewWorkspace("demo", "/src", afero.NewMemMapFs())
	ws.OpenFile("b.go")
	ws.OpenFile("./a.go")
	ws.OpenFile("dir/../c.go")
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, ws.OpenFiles())

	ws.CloseFile("b.go")
	assert.Equal(t, []string{"a.go", "c.go"}, ws.OpenFiles())
}

func TestWorkspaceAttributes(t *testing.T) {
	ws := NewWorkspace("demo", "/src", afero.NewMemMapFs())
	_, ok := ws.Get("model")
	assert.False(t, ok)
	ws.Set("model", "small")
	v, ok := ws.Get("model")
	assert.True(t, ok)
	assert.Equal(t, "small", v)
}

func TestWorkspaceHandleResolve(t *testing.T) {
	ws := NewWorkspace("demo", "/src", afero.NewMemMapFs())
	h := HandleOf(ws)
	got, err := h.Resolve()
	require.NoError(t, err)
	assert.Same(t, ws, got)
	runtime.KeepAlive(ws)
}

func TestNilWorkspaceHandle(t *testing.T) {
	h := HandleOf(nil)
	assert.Nil(t, h)
	_, err := h.Resolve()
	assert.ErrorIs(t, err, ErrContextUnavailable)
}

func TestWorkspaceHandleDoesNotKeepWorkspaceAlive(t *testing.T) {
	h := func() *WorkspaceHandle {
		return HandleOf(NewWorkspace("gone", "/src", afero.NewMemMapFs()))
	}()
	require.Eventually(t, func() bool {
		runtime.GC()
		_, err := h.Resolve()
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err := h.Resolve()
	assert.ErrorIs(t, err, ErrContextUnavailable)
}
