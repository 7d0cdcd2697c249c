package prompts

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedWorkflow(t *testing.T) {
	b, err := NewBuilder(afero.NewMemMapFs(), "")
	require.NoError(t, err)

	assert.True(t, b.Has(WorkflowTemplate))
	assert.Equal(t, []string{WorkflowTemplate}, b.Names())

	text, err := b.GenerateWorkflowPrompt("")
	require.NoError(t, err)
	assert.NotEmpty(t, text)
	assert.Contains(t, text, "<workflow>")
	assert.NotContains(t, text, "follow its conventions")
}

func TestRenderWithData(t *testing.T) {
	b, err := NewBuilder(afero.NewMemMapFs(), "")
	require.NoError(t, err)

	text, err := b.Render(WorkflowTemplate, WorkflowData{Language: "Go"})
	require.NoError(t, err)
	assert.Contains(t, text, "The project is written in Go")

	generated, err := b.GenerateWorkflowPrompt("Go")
	require.NoError(t, err)
	assert.Equal(t, text, generated)
}

func TestOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/prompts/workflow.tmpl", []byte("custom workflow"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/prompts/review.tmpl", []byte("review {{.}}"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/prompts/notes.txt", []byte("ignored"), 0o644))

	b, err := NewBuilder(fs, "/prompts")
	require.NoError(t, err)

	text, err := b.GenerateWorkflowPrompt("")
	require.NoError(t, err)
	assert.Equal(t, "custom workflow", text)

	text, err = b.Render("review", "main.go")
	require.NoError(t, err)
	assert.Equal(t, "review main.go", text)
	assert.False(t, b.Has("notes"))
}

func TestMissingOverrideDirIsIgnored(t *testing.T) {
	b, err := NewBuilder(afero.NewMemMapFs(), "/nowhere")
	require.NoError(t, err)
	assert.True(t, b.Has(WorkflowTemplate))
}

func TestBrokenOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/workflow.tmpl", []byte("{{ .Broken"), 0o644))

	_, err := NewBuilder(fs, "/p")
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/p", 0o755))
	b, err := NewBuilder(fs, "/p")
	require.NoError(t, err)
	assert.False(t, b.Has("extra"))

	require.NoError(t, afero.WriteFile(fs, "/p/extra.tmpl", []byte("x"), 0o644))
	require.NoError(t, b.Reload())
	assert.True(t, b.Has("extra"))
}

func TestRenderUnknown(t *testing.T) {
	b, err := NewBuilder(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	_, err = b.Render("nope", nil)
	assert.ErrorContains(t, err, "not found")
}
