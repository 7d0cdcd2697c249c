package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/network-plane/slash"
)

func TestRegisterDefaults(t *testing.T) {
	reg := slash.NewRegistry()
	require.NoError(t, RegisterDefaults(reg, testBuilder(t)))
	assert.Equal(t, []string{FileName, HelpName, SymbolsName, WorkflowName}, reg.Names())
	assert.Error(t, RegisterDefaults(reg, testBuilder(t)), "defaults cannot be registered twice")
}

func TestHelpListsCommands(t *testing.T) {
	reg := slash.NewRegistry()
	require.NoError(t, RegisterDefaults(reg, testBuilder(t)))
	tmpl, err := ParseTemplate("review", []byte(reviewTemplate))
	require.NoError(t, err)
	require.NoError(t, reg.Register(tmpl))

	e, err := slash.New(nil, slash.WithRegistry(reg))
	require.NoError(t, err)
	out, err := e.Run(testContext(t), slash.Invocation{Name: HelpName})
	require.NoError(t, err)

	assert.Contains(t, out.Text, "Available commands:")
	assert.Contains(t, out.Text, "/file <ARG...>")
	assert.Contains(t, out.Text, "/review <MODE> [FILES...]")
	assert.Contains(t, out.Text, "Insert prompt to opt into the edit workflow")
	require.Len(t, out.Sections, 1)
	assert.Equal(t, "Help", out.Sections[0].Label)

	help, ok := reg.Lookup(HelpName)
	require.True(t, ok)
	assert.False(t, slash.AcceptsArguments(help))
}
