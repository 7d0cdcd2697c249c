package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/network-plane/slash"
)

// SymbolsName is the registry name of the symbols command.
const SymbolsName = "symbols"

// Symbols lists symbols from the language service: workspace-wide without
// arguments, or per document for each path argument.
type Symbols struct {
	slash.Base
}

// NewSymbols returns the symbols command.
func NewSymbols() *Symbols {
	return &Symbols{Base: slash.Base{
		CommandName: SymbolsName,
		Summary:     "Insert an outline of symbols",
		Menu:        "Insert symbols",
	}}
}

// Icon implements slash.Iconer.
func (s *Symbols) Icon() slash.IconName { return slash.IconCode }

// CompleteArgument offers open files.
func (s *Symbols) CompleteArgument(ctx context.Context, req slash.CompletionRequest) ([]slash.ArgumentCompletion, error) {
	ws, err := req.Workspace.Resolve()
	if err != nil {
		return nil, err
	}
	partial := ""
	if n := len(req.Arguments); n > 0 {
		partial = req.Arguments[n-1]
	}
	out := []slash.ArgumentCompletion{}
	for _, p := range ws.OpenFiles() {
		if strings.HasPrefix(p, partial) {
			out = append(out, slash.ArgumentCompletion{Label: p, NewText: p, RunCommand: true})
		}
	}
	return out, nil
}

// Run queries the language service and renders one line per symbol, each in
// its own section, inside a section per document.
func (s *Symbols) Run(ctx context.Context, req slash.RunRequest) (slash.Output, error) {
	if req.Language == nil {
		return slash.Output{}, slash.ContextUnavailable(SymbolsName, "language service")
	}

	var (
		text     strings.Builder
		sections []slash.Section
	)
	emit := func(title string, symbols []slash.Symbol) {
		start := text.Len()
		fmt.Fprintf(&text, "Symbols in %s:\n", title)
		for _, sym := range symbols {
			lineStart := text.Len()
			name := sym.Name
			if sym.Container != "" {
				name = sym.Container + "." + sym.Name
			}
			fmt.Fprintf(&text, "  %s %s (%s:%d)\n", sym.Kind, name, sym.Path, sym.Line)
			meta, _ := json.Marshal(sym)
			sections = append(sections, slash.Section{
				Range:    slash.Range{Start: lineStart, End: text.Len()},
				Icon:     slash.IconCode,
				Label:    name,
				Metadata: meta,
			})
		}
		sections = append(sections, slash.Section{
			Range: slash.Range{Start: start, End: text.Len()},
			Icon:  slash.IconLibrary,
			Label: title,
		})
	}

	if len(req.Arguments) == 0 {
		symbols, err := req.Language.WorkspaceSymbols(ctx, "")
		if err != nil {
			return slash.Output{}, slash.GenerationFailure(SymbolsName, err)
		}
		emit("workspace", symbols)
		return slash.Output{Text: text.String(), Sections: sections}, nil
	}
	for _, p := range req.Arguments {
		if err := ctx.Err(); err != nil {
			return slash.Output{}, err
		}
		symbols, err := req.Language.DocumentSymbols(ctx, p)
		if err != nil {
			return slash.Output{}, slash.GenerationFailure(SymbolsName, fmt.Errorf("%s: %w", p, err))
		}
		emit(p, symbols)
	}
	return slash.Output{Text: text.String(), Sections: sections}, nil
}
