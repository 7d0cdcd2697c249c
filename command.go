package slash

import "context"

// Command is the interface implemented by every slash command. Implementations
// are shared between concurrent invocations and must not hold mutable state
// beyond what they were constructed with.
type Command interface {
	// Name is the token typed after the slash.
	Name() string
	Description() string
	MenuText() string
	// RequiresArgument reports whether the command refuses an empty argument list.
	RequiresArgument() bool
	// CompleteArgument returns candidates for the argument being typed. An
	// empty result is not an error.
	CompleteArgument(ctx context.Context, req CompletionRequest) ([]ArgumentCompletion, error)
	// Run produces the command output.
	Run(ctx context.Context, req RunRequest) (Output, error)
}

// Streamer is implemented by commands that deliver output incrementally.
// The engine prefers Stream over Run when both are available.
type Streamer interface {
	Stream(ctx context.Context, req RunRequest, w *StreamWriter) error
}

// Iconer is implemented by commands with a dedicated menu icon.
type Iconer interface {
	Icon() IconName
}

// ArgumentAccepter is implemented by commands that take no arguments at all,
// so the UI can skip offering argument completion.
type ArgumentAccepter interface {
	AcceptsArguments() bool
}

// CompletionRequest carries the inputs of CompleteArgument.
type CompletionRequest struct {
	// Arguments typed so far; the last one may be partial.
	Arguments []string
	Cancel    *CancelToken
	Workspace *WorkspaceHandle
}

// RunRequest carries the inputs of Run.
type RunRequest struct {
	Arguments []string
	// PriorSections are sections spliced by earlier invocations, in document
	// coordinates.
	PriorSections []AnchoredSection
	Snapshot      Snapshot
	Workspace     *WorkspaceHandle
	// Language is nil when no language service is attached.
	Language LanguageService
	Cancel   *CancelToken
}

// ArgumentCompletion is a single completion candidate.
type ArgumentCompletion struct {
	// Label is shown in the completion menu.
	Label string `json:"label"`
	// NewText replaces the argument being completed.
	NewText string `json:"new_text"`
	// RunCommand is true when accepting the candidate completes the invocation.
	RunCommand bool `json:"run_command"`
	// ReplacePrevious replaces every typed argument rather than only the last.
	ReplacePrevious bool `json:"replace_previous,omitempty"`
}

// Base supplies command identity for embedding.
type Base struct {
	CommandName      string
	Summary          string
	Menu             string
	ArgumentRequired bool
}

// Name returns the command name.
func (b Base) Name() string { return b.CommandName }

// Description returns the summary.
func (b Base) Description() string { return b.Summary }

// MenuText returns the menu label, defaulting to the description.
func (b Base) MenuText() string {
	if b.Menu != "" {
		return b.Menu
	}
	return b.Summary
}

// RequiresArgument reports whether an argument is mandatory.
func (b Base) RequiresArgument() bool { return b.ArgumentRequired }

// IconOf returns the command icon, IconSlash when it declares none.
func IconOf(cmd Command) IconName {
	if i, ok := cmd.(Iconer); ok {
		if icon := i.Icon(); icon != "" {
			return icon
		}
	}
	return IconSlash
}

// AcceptsArguments reports whether cmd takes arguments.
func AcceptsArguments(cmd Command) bool {
	if a, ok := cmd.(ArgumentAccepter); ok {
		return a.AcceptsArguments()
	}
	return true
}

// NoCompletions is a CompleteArgument helper for commands without candidates.
func NoCompletions(context.Context, CompletionRequest) ([]ArgumentCompletion, error) {
	return []ArgumentCompletion{}, nil
}
