package slash

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingCompleter blocks on the argument "block" and otherwise echoes the
// last argument as a single candidate.
func blockingCompleter(started chan<- *CancelToken) *funcCommand {
	cmd := newFuncCommand("slow", nil)
	cmd.complete = func(ctx context.Context, req CompletionRequest) ([]ArgumentCompletion, error) {
		if len(req.Arguments) > 0 && req.Arguments[0] == "block" {
			started <- req.Cancel
			<-ctx.Done()
			return nil, ctx.Err()
		}
		last := req.Arguments[len(req.Arguments)-1]
		return []ArgumentCompletion{{Label: last, NewText: last, RunCommand: true}}, nil
	}
	return cmd
}

func TestCompletionSupersedesPreviousRequest(t *testing.T) {
	started := make(chan *CancelToken, 1)
	e := testEngine(t, blockingCompleter(started))
	c := e.Completer()
	ctx := awaitCtx(t)

	first := c.Request(ctx, "input", "slow", []string{"block"}, nil)
	firstToken := <-started
	assert.Equal(t, SiteRequested, c.State("input"))

	second := c.Request(ctx, "input", "slow", []string{"main.go"}, nil)
	assert.True(t, firstToken.Cancelled(), "issuing a new request cancels the outstanding one")

	_, err := first.Await(ctx)
	assert.ErrorIs(t, err, ErrCancelled)

	results, err := second.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ArgumentCompletion{{Label: "main.go", NewText: "main.go", RunCommand: true}}, results)
	assert.Equal(t, SiteCompleted, c.State("input"))
}

func TestCompletionSitesAreIndependent(t *testing.T) {
	started := make(chan *CancelToken, 1)
	e := testEngine(t, blockingCompleter(started))
	c := e.Completer()
	ctx := awaitCtx(t)

	blocked := c.Request(ctx, "left", "slow", []string{"block"}, nil)
	tok := <-started
	_, err := c.Request(ctx, "right", "slow", []string{"x"}, nil).Await(ctx)
	require.NoError(t, err)
	assert.False(t, tok.Cancelled())

	c.Cancel("left")
	_, err = blocked.Await(ctx)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, SiteCancelled, c.State("left"))
	assert.Equal(t, SiteIdle, c.State("elsewhere"))
}

func TestCompletePresetToken(t *testing.T) {
	e := testEngine(t, newWorkflowCommand())
	tok := NewCancelToken()
	tok.Cancel()

	_, err := e.Complete(awaitCtx(t), "workflow", CompletionRequest{Cancel: tok}).Await(awaitCtx(t))
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestCompleteUnknownCommand(t *testing.T) {
	e := testEngine(t, newWorkflowCommand())
	_, err := e.Complete(awaitCtx(t), "nope", CompletionRequest{}).Await(awaitCtx(t))
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestCompleteNilResultsBecomeEmpty(t *testing.T) {
	e := testEngine(t, newFuncCommand("quiet", nil))
	results, err := e.Complete(awaitCtx(t), "quiet", CompletionRequest{}).Await(awaitCtx(t))
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSuggestDegradesFailures(t *testing.T) {
	failing := newFuncCommand("failing", nil)
	failing.complete = func(context.Context, CompletionRequest) ([]ArgumentCompletion, error) {
		return nil, errors.New("index unavailable")
	}
	panicking := newFuncCommand("panicking", nil)
	panicking.complete = func(context.Context, CompletionRequest) ([]ArgumentCompletion, error) {
		panic("bad index")
	}
	e := testEngine(t, failing, panicking)
	c := e.Completer()

	for _, name := range []string{"failing", "panicking", "missing"} {
		t.Run(name, func(t *testing.T) {
			results := c.Suggest(awaitCtx(t), "site", name, []string{""}, nil)
			assert.NotNil(t, results)
			assert.Empty(t, results)
		})
	}
}

func TestCompleteCommand(t *testing.T) {
	e := testEngine(t, newWorkflowCommand(), newFuncCommand("file", nil))
	c := e.Completer()

	all := c.CompleteCommand("")
	require.Len(t, all, 2)
	assert.Equal(t, "file", all[0].NewText)
	assert.Equal(t, "workflow", all[1].NewText)

	wf := c.CompleteCommand("wf")
	require.Len(t, wf, 1)
	assert.Equal(t, ArgumentCompletion{
		Label:      "workflow  Insert the workflow prompt",
		NewText:    "workflow",
		RunCommand: true,
	}, wf[0])

	fi := c.CompleteCommand("fi")
	require.Len(t, fi, 1)
	assert.False(t, fi[0].RunCommand)

	assert.Empty(t, c.CompleteCommand("zzz"))
}
