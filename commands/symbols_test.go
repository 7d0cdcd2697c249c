package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/network-plane/slash"
)

type fakeLanguage struct {
	workspace []slash.Symbol
	documents map[string][]slash.Symbol
}

func (f fakeLanguage) WorkspaceSymbols(ctx context.Context, query string) ([]slash.Symbol, error) {
	return f.workspace, nil
}

func (f fakeLanguage) DocumentSymbols(ctx context.Context, path string) ([]slash.Symbol, error) {
	symbols, ok := f.documents[path]
	if !ok {
		return nil, errors.New("no such document")
	}
	return symbols, nil
}

var testLanguage = fakeLanguage{
	workspace: []slash.Symbol{
		{Name: "Run", Kind: "func", Path: "main.go", Line: 10},
	},
	documents: map[string][]slash.Symbol{
		"engine.go": {
			{Name: "Engine", Kind: "type", Path: "engine.go", Line: 5},
			{Name: "Execute", Kind: "method", Path: "engine.go", Line: 40, Container: "Engine"},
		},
	},
}

func TestSymbolsWorkspace(t *testing.T) {
	e := testEngine(t, NewSymbols())
	out, err := e.Run(testContext(t), slash.Invocation{Name: SymbolsName, Language: testLanguage})
	require.NoError(t, err)
	assert.Equal(t, "Symbols in workspace:\n  func Run (main.go:10)\n", out.Text)
	require.Len(t, out.Sections, 2)
	assert.Equal(t, "  func Run (main.go:10)\n", out.Slice(out.Sections[0]))
	assert.Equal(t, slash.IconLibrary, out.Sections[1].Icon)
	assert.Equal(t, out.Text, out.Slice(out.Sections[1]))
}

func TestSymbolsDocuments(t *testing.T) {
	e := testEngine(t, NewSymbols())
	out, err := e.Run(testContext(t), slash.Invocation{
		Name:      SymbolsName,
		Arguments: []string{"engine.go"},
		Language:  testLanguage,
	})
	require.NoError(t, err)
	assert.Equal(t, "Symbols in engine.go:\n  type Engine (engine.go:5)\n  method Engine.Execute (engine.go:40)\n", out.Text)
	require.Len(t, out.Sections, 3)
	assert.Equal(t, "Engine.Execute", out.Sections[1].Label)
	assert.JSONEq(t, `{"name":"Execute","kind":"method","path":"engine.go","line":40,"container":"Engine"}`, string(out.Sections[1].Metadata))
}

func TestSymbolsFailures(t *testing.T) {
	e := testEngine(t, NewSymbols())

	_, err := e.Run(testContext(t), slash.Invocation{Name: SymbolsName})
	assert.ErrorIs(t, err, slash.ErrContextUnavailable)

	_, err = e.Run(testContext(t), slash.Invocation{Name: SymbolsName, Arguments: []string{"missing.go"}, Language: testLanguage})
	assert.ErrorIs(t, err, slash.ErrGenerationFailure)
	assert.ErrorContains(t, err, "missing.go")
}

func TestSymbolsCompleteArgument(t *testing.T) {
	ws := slash.NewWorkspace("test", "/src", afero.NewMemMapFs())
	ws.OpenFile("engine.go")
	ws.OpenFile("main.go")

	results, err := NewSymbols().CompleteArgument(context.Background(), slash.CompletionRequest{
		Arguments: []string{"en"},
		Workspace: slash.HandleOf(ws),
	})
	require.NoError(t, err)
	assert.Equal(t, []slash.ArgumentCompletion{{Label: "engine.go", NewText: "engine.go", RunCommand: true}}, results)
}
