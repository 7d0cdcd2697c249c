package slash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"workflow", false},
		{"git:log", false},
		{"file-2", false},
		{"", true},
		{"/workflow", true},
		{"two words", true},
		{"tab\there", true},
		{"café", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newWorkflowCommand()))
	assert.Error(t, r.Register(newWorkflowCommand()), "duplicate")
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newFuncCommand("bad name", nil)))
	assert.Panics(t, func() { r.MustRegister(newWorkflowCommand()) })

	require.NoError(t, r.Register(newFuncCommand("Workflow", nil)), "names are case-sensitive")
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"Workflow", "workflow"}, r.Names())
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(newWorkflowCommand())
	r.MustRegister(newFuncCommand("file", nil))

	cmd, err := r.Resolve("workflow")
	require.NoError(t, err)
	assert.Equal(t, "workflow", cmd.Name())

	_, err = r.Resolve("workfow")
	require.ErrorIs(t, err, ErrUnknownCommand)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"did you mean /workflow?"}, e.Hints)

	_, err = r.Resolve("zzzzzzzzzz")
	require.ErrorIs(t, err, ErrUnknownCommand)
	require.ErrorAs(t, err, &e)
	assert.Empty(t, e.Hints)
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(newWorkflowCommand())
	assert.True(t, r.Unregister("workflow"))
	assert.False(t, r.Unregister("workflow"))
	_, ok := r.Lookup("workflow")
	assert.False(t, ok)
}

func TestRegistryCommandsSorted(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(newFuncCommand("zeta", nil))
	r.MustRegister(newFuncCommand("alpha", nil))
	cmds := r.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "alpha", cmds[0].Name())
	assert.Equal(t, "zeta", cmds[1].Name())
}
