package slash

import "context"

// TextFunc produces the whole text of a simple command.
type TextFunc func(ctx context.Context, req RunRequest) (string, error)

// TextCommand adapts a TextFunc into a Command whose output is one section
// spanning the generated text.
type TextCommand struct {
	Base
	icon     IconName
	label    string
	noArgs   bool
	generate TextFunc
	complete func(ctx context.Context, req CompletionRequest) ([]ArgumentCompletion, error)
}

// TextOption configures a TextCommand.
type TextOption func(*TextCommand)

// WithIcon sets the command and section icon.
func WithIcon(icon IconName) TextOption {
	return func(c *TextCommand) { c.icon = icon }
}

// WithLabel sets the section label. It defaults to the command name.
func WithLabel(label string) TextOption {
	return func(c *TextCommand) { c.label = label }
}

// WithMenuText sets the menu label.
func WithMenuText(text string) TextOption {
	return func(c *TextCommand) { c.Menu = text }
}

// WithRequiredArgument marks the command as needing an argument.
func WithRequiredArgument() TextOption {
	return func(c *TextCommand) { c.ArgumentRequired = true }
}

// WithoutArguments marks the command as taking no arguments at all.
func WithoutArguments() TextOption {
	return func(c *TextCommand) { c.noArgs = true }
}

// WithCompletions supplies argument completion.
func WithCompletions(fn func(ctx context.Context, req CompletionRequest) ([]ArgumentCompletion, error)) TextOption {
	return func(c *TextCommand) { c.complete = fn }
}

// NewTextCommand wraps fn as a command.
func NewTextCommand(name, description string, fn TextFunc, opts ...TextOption) *TextCommand {
	c := &TextCommand{
		Base:     Base{CommandName: name, Summary: description},
		icon:     IconSlash,
		label:    name,
		generate: fn,
		complete: NoCompletions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Icon returns the command icon.
func (c *TextCommand) Icon() IconName { return c.icon }

// AcceptsArguments reports whether arguments are taken.
func (c *TextCommand) AcceptsArguments() bool { return !c.noArgs }

// CompleteArgument delegates to the configured completion func.
func (c *TextCommand) CompleteArgument(ctx context.Context, req CompletionRequest) ([]ArgumentCompletion, error) {
	return c.complete(ctx, req)
}

// Run generates the text and wraps it in a single section.
func (c *TextCommand) Run(ctx context.Context, req RunRequest) (Output, error) {
	text, err := c.generate(ctx, req)
	if err != nil {
		return Output{}, err
	}
	return WholeText(text, c.icon, c.label), nil
}
