package slash

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const workflowText = "Follow the edit workflow.\n"

// workflowCommand mirrors a static prompt-insertion command.
type workflowCommand struct {
	Base
}

func newWorkflowCommand() *workflowCommand {
	return &workflowCommand{Base: Base{CommandName: "workflow", Summary: "Insert the workflow prompt"}}
}

func (c *workflowCommand) Icon() IconName        { return IconRoute }
func (c *workflowCommand) AcceptsArguments() bool { return false }

func (c *workflowCommand) CompleteArgument(ctx context.Context, req CompletionRequest) ([]ArgumentCompletion, error) {
	return NoCompletions(ctx, req)
}

func (c *workflowCommand) Run(ctx context.Context, req RunRequest) (Output, error) {
	return WholeText(workflowText, IconRoute, "Workflow"), nil
}

// funcCommand delegates to optional funcs.
type funcCommand struct {
	Base
	run      func(ctx context.Context, req RunRequest) (Output, error)
	complete func(ctx context.Context, req CompletionRequest) ([]ArgumentCompletion, error)
}

func (c *funcCommand) CompleteArgument(ctx context.Context, req CompletionRequest) ([]ArgumentCompletion, error) {
	if c.complete == nil {
		return nil, nil
	}
	return c.complete(ctx, req)
}

func (c *funcCommand) Run(ctx context.Context, req RunRequest) (Output, error) {
	if c.run == nil {
		return Output{}, nil
	}
	return c.run(ctx, req)
}

func newFuncCommand(name string, run func(ctx context.Context, req RunRequest) (Output, error)) *funcCommand {
	return &funcCommand{Base: Base{CommandName: name, Summary: name + " command"}, run: run}
}

// blockingRun waits for cancellation.
func blockingRun(ctx context.Context, req RunRequest) (Output, error) {
	<-ctx.Done()
	return Output{}, ctx.Err()
}

func testEngine(t *testing.T, cmds ...Command) *Engine {
	t.Helper()
	e, err := New(cmds)
	require.NoError(t, err)
	return e
}

func awaitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
