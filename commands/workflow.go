// Package commands holds the slash commands shipped with slash.
package commands

import (
	"context"

	"github.com/network-plane/slash"
)

// WorkflowName is the registry name of the workflow command.
const WorkflowName = "workflow"

// WorkflowLabel labels the single section of the workflow output.
const WorkflowLabel = "Workflow"

// PromptGenerator produces the workflow prompt text.
type PromptGenerator interface {
	GenerateWorkflowPrompt(language string) (string, error)
}

// Workflow inserts the prompt that opts the assistant into the edit workflow.
type Workflow struct {
	slash.Base
	prompts PromptGenerator
}

// NewWorkflow returns the workflow command.
func NewWorkflow(prompts PromptGenerator) *Workflow {
	return &Workflow{
		Base: slash.Base{
			CommandName: WorkflowName,
			Summary:     "Insert prompt to opt into the edit workflow",
		},
		prompts: prompts,
	}
}

// Icon implements slash.Iconer.
func (w *Workflow) Icon() slash.IconName { return slash.IconRoute }

// AcceptsArguments implements slash.ArgumentAccepter.
func (w *Workflow) AcceptsArguments() bool { return false }

// CompleteArgument never offers candidates.
func (w *Workflow) CompleteArgument(ctx context.Context, req slash.CompletionRequest) ([]slash.ArgumentCompletion, error) {
	return slash.NoCompletions(ctx, req)
}

// Run renders the prompt as one section spanning the whole text. Arguments
// are ignored. The workspace language attribute, when present, is passed to
// the prompt.
func (w *Workflow) Run(ctx context.Context, req slash.RunRequest) (slash.Output, error) {
	if w.prompts == nil {
		return slash.Output{}, slash.ContextUnavailable(WorkflowName, "prompt builder")
	}
	var language string
	if ws, err := req.Workspace.Resolve(); err == nil {
		language, _ = ws.Get(slash.AttrLanguage)
	}
	text, err := w.prompts.GenerateWorkflowPrompt(language)
	if err != nil {
		return slash.Output{}, slash.GenerationFailure(WorkflowName, err)
	}
	return slash.WholeText(text, slash.IconRoute, WorkflowLabel), nil
}
