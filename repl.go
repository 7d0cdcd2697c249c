package slash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// REPL is an interactive conversation panel: plain lines are appended to the
// buffer and slash invocations are executed, rendered and spliced in.
type REPL struct {
	engine    *Engine
	buffer    *Buffer
	renderer  *Renderer
	workspace *Workspace
	language  LanguageService
	prompt    string
	site      string
	maxDepth  int
}

// REPLOption configures a REPL.
type REPLOption func(*REPL)

// WithPrompt sets the prompt string.
func WithPrompt(prompt string) REPLOption {
	return func(r *REPL) { r.prompt = prompt }
}

// WithWorkspace attaches the workspace commands may consult.
func WithWorkspace(w *Workspace) REPLOption {
	return func(r *REPL) { r.workspace = w }
}

// WithLanguageService attaches a language service.
func WithLanguageService(ls LanguageService) REPLOption {
	return func(r *REPL) { r.language = ls }
}

// WithRenderer overrides the renderer.
func WithRenderer(rd *Renderer) REPLOption {
	return func(r *REPL) {
		if rd != nil {
			r.renderer = rd
		}
	}
}

// WithBuffer uses an existing conversation buffer.
func WithBuffer(b *Buffer) REPLOption {
	return func(r *REPL) {
		if b != nil {
			r.buffer = b
		}
	}
}

// WithExpansionDepth bounds how deep outputs may expand nested invocations.
func WithExpansionDepth(n int) REPLOption {
	return func(r *REPL) { r.maxDepth = n }
}

// NewREPL constructs a REPL over engine.
func NewREPL(engine *Engine, opts ...REPLOption) *REPL {
	r := &REPL{
		engine:   engine,
		buffer:   NewBuffer(""),
		renderer: NewRenderer(os.Stdout),
		prompt:   "> ",
		site:     "repl",
		maxDepth: 3,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Buffer returns the conversation buffer.
func (r *REPL) Buffer() *Buffer { return r.buffer }

// Run starts the interactive loop. It returns nil on exit, EOF or interrupt.
func (r *REPL) Run(ctx context.Context, rl *readline.Instance) error {
	if rl == nil {
		return errors.New("readline instance is required")
	}
	rl.Config.AutoComplete = r.AutoCompleter(ctx)
	rl.SetPrompt(r.prompt)
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := rl.SaveHistory(line); err != nil {
			r.renderer.Warn(fmt.Sprintf("saving history: %v", err))
		}
		if exit := r.HandleLine(ctx, line); exit {
			r.renderer.Info("Shutting down.")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// HandleLine processes one line of input and reports whether the user asked
// to leave.
func (r *REPL) HandleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "exit", "quit", "q":
		return true
	case "tasks":
		r.renderer.RenderTasks(r.engine.Tasks().Tasks())
		return false
	case "cancel":
		if len(fields) < 2 {
			r.renderer.Warn("usage: cancel <task-id>")
		} else if !r.engine.Tasks().Cancel(fields[1]) {
			r.renderer.Warn(fmt.Sprintf("no task %s", fields[1]))
		}
		return false
	case "buffer":
		r.showBuffer()
		return false
	}
	if IsInvocation(trimmed) {
		r.invoke(ctx, trimmed)
		return false
	}
	r.buffer.Append(line + "\n")
	return false
}

func (r *REPL) invoke(ctx context.Context, line string) {
	r.buffer.Append(line + "\n")
	r.run(ctx, line, 0, r.buffer.Len())
}

// run executes line and splices its output at offset at. Invocations found in
// an output flagged RunCommandsInText are run in turn, each output landing
// right after the line that produced it. It returns the bytes inserted.
func (r *REPL) run(ctx context.Context, line string, depth, at int) int {
	exec, err := r.engine.ExecuteLine(ctx, line, Invocation{
		PriorSections: r.buffer.Sections(),
		Snapshot:      r.buffer.Snapshot(),
		Workspace:     HandleOf(r.workspace),
		Language:      r.language,
	})
	if err != nil {
		r.renderer.RenderError(err)
		return 0
	}
	for ev := range exec.Events(ctx) {
		if ev.Kind == EventContent {
			r.renderer.WriteText(ev.Text)
		}
	}
	out, err := exec.Await(ctx)
	r.renderer.EndLine()
	if err != nil {
		r.renderer.RenderError(err)
		return 0
	}
	if out.Text != "" && !strings.HasSuffix(out.Text, "\n") {
		out.Text += "\n"
	}
	if _, err := r.buffer.Splice(at, exec.Name(), line, out); err != nil {
		r.renderer.RenderError(err)
		return 0
	}
	r.renderer.RenderSections(out.Sections)
	inserted := len(out.Text)

	if !out.RunCommandsInText {
		return inserted
	}
	if depth >= r.maxDepth {
		r.renderer.Warn(fmt.Sprintf("not expanding commands nested deeper than %d", r.maxDepth))
		return inserted
	}
	offset := 0
	for _, nested := range strings.SplitAfter(out.Text, "\n") {
		offset += len(nested)
		if !IsInvocation(nested) {
			continue
		}
		n := r.run(ctx, strings.TrimSpace(nested), depth+1, at+offset)
		offset += n
		inserted += n
	}
	return inserted
}

func (r *REPL) showBuffer() {
	r.renderer.WriteText(r.buffer.Text())
	r.renderer.EndLine()
	sections := r.buffer.Sections()
	rows := make([][]string, 0, len(sections))
	for _, s := range sections {
		rows = append(rows, []string{s.Range.String(), s.Command, string(s.Icon), s.Label})
	}
	if len(rows) > 0 {
		r.renderer.WriteTable([]string{"Range", "Command", "Icon", "Label"}, rows)
	}
}

// AutoCompleter returns a readline completer offering command names and
// argument completions.
func (r *REPL) AutoCompleter(ctx context.Context) readline.AutoCompleter {
	return &lineCompleter{ctx: ctx, repl: r}
}

type lineCompleter struct {
	ctx  context.Context
	repl *REPL
}

// Do implements readline.AutoCompleter. Candidates are returned as the
// suffixes extending the word under the cursor.
func (c *lineCompleter) Do(line []rune, pos int) ([][]rune, int) {
	typed := string(line[:pos])
	if !IsInvocation(typed) && typed != Prefix {
		return nil, 0
	}
	name, args := SplitPartial(typed)
	completer := c.repl.engine.Completer()

	var (
		partial    string
		candidates []ArgumentCompletion
	)
	if len(args) == 0 {
		partial = name
		candidates = completer.CompleteCommand(name)
	} else {
		partial = args[len(args)-1]
		candidates = completer.Suggest(c.ctx, c.repl.site, name, args, HandleOf(c.repl.workspace))
	}

	var out [][]rune
	for _, cand := range candidates {
		if cand.ReplacePrevious || !strings.HasPrefix(cand.NewText, partial) {
			continue
		}
		suffix := cand.NewText[len(partial):]
		if !cand.RunCommand {
			suffix += " "
		}
		out = append(out, []rune(suffix))
	}
	return out, len([]rune(partial))
}
