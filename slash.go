// Package slash runs "/command arg..." directives typed into an assistant
// panel. Commands implement a small contract (identity, argument completion
// and execution); the Engine dispatches invocations through a Registry, runs
// them asynchronously with cooperative cancellation and returns Outputs made
// of text plus labelled sections that callers splice into their document.
package slash

import "context"

// New builds an engine with cmds registered.
func New(cmds []Command, options ...Option) (*Engine, error) {
	e := NewEngine(options...)
	if err := e.Register(cmds...); err != nil {
		return nil, err
	}
	return e, nil
}

// ExecuteLine parses a typed invocation and executes it. Fields of base other
// than Name and Arguments are passed through.
func (e *Engine) ExecuteLine(ctx context.Context, line string, base Invocation) (*Execution, error) {
	name, args, err := ParseInvocation(line)
	if err != nil {
		return nil, err
	}
	base.Name = name
	base.Arguments = args
	return e.Execute(ctx, base)
}

// RunLine is ExecuteLine followed by Await.
func (e *Engine) RunLine(ctx context.Context, line string, base Invocation) (Output, error) {
	exec, err := e.ExecuteLine(ctx, line, base)
	if err != nil {
		return Output{}, err
	}
	return exec.Await(ctx)
}
