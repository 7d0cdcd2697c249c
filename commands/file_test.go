package commands

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/network-plane/slash"
)

func fileWorkspace(t *testing.T) *slash.Workspace {
	t.Helper()
	root := writeTree(t, map[string]string{
		"a.go":      "package a\n",
		"dir/b.go":  "package b",
		"dir/c.txt": "notes\n",
		"bin.dat":   "\x00\x01\x02",
	})
	return slash.NewWorkspace("test", root, nil)
}

func runFile(t *testing.T, ws *slash.Workspace, args ...string) (slash.Output, error) {
	t.Helper()
	out, err := NewFile().Run(context.Background(), slash.RunRequest{
		Arguments: args,
		Workspace: slash.HandleOf(ws),
	})
	if err == nil {
		require.NoError(t, out.Validate())
	}
	return out, err
}

func TestFileSingle(t *testing.T) {
	ws := fileWorkspace(t)
	out, err := runFile(t, ws, "a.go")
	require.NoError(t, err)
	assert.Equal(t, "```a.go\npackage a\n```\n", out.Text)
	require.Len(t, out.Sections, 1)

	s := out.Sections[0]
	assert.Equal(t, slash.IconFile, s.Icon)
	assert.Equal(t, "a.go", s.Label)
	assert.Equal(t, out.Text, out.Slice(s))
	var meta FileMetadata
	require.NoError(t, json.Unmarshal(s.Metadata, &meta))
	assert.Equal(t, "a.go", meta.Path)
}

func TestFilePatternAddsFolderSection(t *testing.T) {
	ws := fileWorkspace(t)
	out, err := runFile(t, ws, "./dir/*")
	require.NoError(t, err)
	assert.Equal(t, "```dir/b.go\npackage b\n```\n```dir/c.txt\nnotes\n```\n", out.Text)
	require.Len(t, out.Sections, 3)
	assert.Equal(t, "dir/b.go", out.Sections[0].Label)
	assert.Equal(t, "dir/c.txt", out.Sections[1].Label)

	folder := out.Sections[2]
	assert.Equal(t, slash.IconFolder, folder.Icon)
	assert.Equal(t, "dir/*", folder.Label)
	assert.Equal(t, slash.Range{Start: 0, End: len(out.Text)}, folder.Range)
}

func TestFileRecursivePatternAndDedup(t *testing.T) {
	ws := fileWorkspace(t)
	out, err := runFile(t, ws, "**/*.go", "a.go")
	require.NoError(t, err)
	labels := []string{}
	for _, s := range out.Sections {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{"a.go", "dir/b.go", "**/*.go"}, labels)
}

func TestFileBinary(t *testing.T) {
	ws := fileWorkspace(t)
	out, err := runFile(t, ws, "bin.dat")
	require.NoError(t, err)
	assert.Equal(t, "```bin.dat\n(binary file omitted)\n```\n", out.Text)
}

func TestFileErrors(t *testing.T) {
	ws := fileWorkspace(t)
	for _, args := range [][]string{{"../secret"}, {"nomatch*"}, {"  "}, {"dir/[bad"}} {
		_, err := runFile(t, ws, args...)
		assert.ErrorIs(t, err, slash.ErrInvalidArguments, args)
	}

	_, err := NewFile().Run(context.Background(), slash.RunRequest{Arguments: []string{"a.go"}})
	assert.ErrorIs(t, err, slash.ErrContextUnavailable)
}

func TestFileRequiresArgument(t *testing.T) {
	e := testEngine(t, NewFile())
	_, err := e.Execute(testContext(t), slash.Invocation{Name: FileName})
	assert.ErrorIs(t, err, slash.ErrInvalidArguments)
}

func TestFileThroughEngine(t *testing.T) {
	ws := fileWorkspace(t)
	e := testEngine(t, NewFile())
	out, err := e.Run(testContext(t), slash.Invocation{
		Name:      FileName,
		Arguments: []string{"a.go"},
		Workspace: slash.HandleOf(ws),
	})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "package a")
}

func TestFileCompleteArgument(t *testing.T) {
	ws := fileWorkspace(t)
	ws.OpenFile("dir/b.go")
	f := NewFile()
	complete := func(partial string) []slash.ArgumentCompletion {
		t.Helper()
		results, err := f.CompleteArgument(context.Background(), slash.CompletionRequest{
			Arguments: []string{partial},
			Workspace: slash.HandleOf(ws),
		})
		require.NoError(t, err)
		return results
	}

	assert.Equal(t, []slash.ArgumentCompletion{
		{Label: "dir/b.go", NewText: "dir/b.go", RunCommand: true},
		{Label: "dir/", NewText: "dir/"},
	}, complete("d"))

	assert.Equal(t, []slash.ArgumentCompletion{
		{Label: "dir/b.go", NewText: "dir/b.go", RunCommand: true},
		{Label: "dir/c.txt", NewText: "dir/c.txt", RunCommand: true},
	}, complete("dir/"))

	assert.Empty(t, complete("zzz"))
	assert.NotNil(t, complete("zzz"))

	_, err := f.CompleteArgument(context.Background(), slash.CompletionRequest{})
	assert.ErrorIs(t, err, slash.ErrContextUnavailable)
}

func TestEscapeMeta(t *testing.T) {
	assert.Equal(t, `a\*b\?\[c\]\{d\}`, escapeMeta("a*b?[c]{d}"))
	assert.Equal(t, "plain/path", escapeMeta("plain/path"))
}
