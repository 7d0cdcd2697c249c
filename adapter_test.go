package slash

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextCommandDefaults(t *testing.T) {
	cmd := NewTextCommand("note", "Insert a note", func(ctx context.Context, req RunRequest) (string, error) {
		return "a note", nil
	})
	assert.Equal(t, "note", cmd.Name())
	assert.Equal(t, "Insert a note", cmd.MenuText())
	assert.False(t, cmd.RequiresArgument())
	assert.True(t, AcceptsArguments(cmd))
	assert.Equal(t, IconSlash, IconOf(cmd))

	results, err := cmd.CompleteArgument(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Empty(t, results)

	out, err := cmd.Run(context.Background(), RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, WholeText("a note", IconSlash, "note"), out)
}

func TestTextCommandOptions(t *testing.T) {
	cmd := NewTextCommand("greet", "Greet someone",
		func(ctx context.Context, req RunRequest) (string, error) {
			return "hello " + strings.Join(req.Arguments, " "), nil
		},
		WithIcon(IconInfo),
		WithLabel("Greeting"),
		WithMenuText("greet <name>"),
		WithRequiredArgument(),
		WithCompletions(func(ctx context.Context, req CompletionRequest) ([]ArgumentCompletion, error) {
			return []ArgumentCompletion{{Label: "world", NewText: "world", RunCommand: true}}, nil
		}),
	)
	assert.Equal(t, "greet <name>", cmd.MenuText())
	assert.Equal(t, "Greet someone", cmd.Description())
	assert.True(t, cmd.RequiresArgument())
	assert.Equal(t, IconInfo, IconOf(cmd))

	e := testEngine(t, cmd)
	results, err := e.Complete(awaitCtx(t), "greet", CompletionRequest{Arguments: []string{"w"}}).Await(awaitCtx(t))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "world", results[0].NewText)

	out, err := e.Run(awaitCtx(t), Invocation{Name: "greet", Arguments: []string{"world"}})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out.Text)
	require.Len(t, out.Sections, 1)
	assert.Equal(t, "Greeting", out.Sections[0].Label)
	assert.Equal(t, IconInfo, out.Sections[0].Icon)

	_, err = e.Run(awaitCtx(t), Invocation{Name: "greet"})
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestTextCommandWithoutArguments(t *testing.T) {
	cmd := NewTextCommand("date", "Insert the date", func(context.Context, RunRequest) (string, error) {
		return "today", nil
	}, WithoutArguments())
	assert.False(t, AcceptsArguments(cmd))
}

func TestTextCommandFailure(t *testing.T) {
	cmd := NewTextCommand("broken", "Always fails", func(context.Context, RunRequest) (string, error) {
		return "", errors.New("no text")
	})
	e := testEngine(t, cmd)
	_, err := e.Run(awaitCtx(t), Invocation{Name: "broken"})
	assert.ErrorIs(t, err, ErrGenerationFailure)
	assert.ErrorContains(t, err, "no text")
}
