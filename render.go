package slash

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// OutputLevel enumerates verbosity levels.
type OutputLevel int

const (
	OutputQuiet OutputLevel = iota
	OutputNormal
	OutputVerbose
)

// Renderer prints command output and failures for a terminal.
type Renderer struct {
	mu     sync.Mutex
	level  OutputLevel
	writer io.Writer
	open   bool
}

// NewRenderer builds a Renderer targeting w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{level: OutputNormal, writer: w}
}

// Level returns current verbosity.
func (r *Renderer) Level() OutputLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// SetLevel updates verbosity.
func (r *Renderer) SetLevel(level OutputLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = level
}

// Info writes an informational message unless quiet.
func (r *Renderer) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.level > OutputQuiet {
		r.lead()
		fmt.Fprintln(r.writer, msg)
	}
}

// Warn writes a warning message.
func (r *Renderer) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lead()
	fmt.Fprintf(r.writer, "WARNING: %s\n", msg)
}

// Error writes an error message.
func (r *Renderer) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lead()
	fmt.Fprintf(r.writer, "ERROR: %s\n", msg)
}

// RenderOutput prints the output text. In verbose mode the sections follow
// as a table.
func (r *Renderer) RenderOutput(out Output) {
	r.WriteText(out.Text)
	r.EndLine()
	r.RenderSections(out.Sections)
}

// WriteText prints streamed text as is.
func (r *Renderer) WriteText(text string) {
	if text == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.writer, text)
	r.open = !strings.HasSuffix(text, "\n")
}

// EndLine terminates a partially written line.
func (r *Renderer) EndLine() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lead()
}

// lead starts a fresh line if text was left open. Callers hold mu.
func (r *Renderer) lead() {
	if r.open {
		fmt.Fprintln(r.writer)
		r.open = false
	}
}

// RenderSections prints a section table in verbose mode.
func (r *Renderer) RenderSections(sections []Section) {
	if r.Level() < OutputVerbose || len(sections) == 0 {
		return
	}
	rows := make([][]string, 0, len(sections))
	for i, s := range sections {
		rows = append(rows, []string{strconv.Itoa(i), s.Range.String(), string(s.Icon), s.Label})
	}
	r.WriteTable([]string{"#", "Range", "Icon", "Label"}, rows)
}

// RenderError prints a failure in place of the output it replaced.
func (r *Renderer) RenderError(err error) {
	if err == nil {
		return
	}
	var e *Error
	if !errors.As(err, &e) {
		r.Error(err.Error())
		return
	}
	switch e.Severity {
	case SeverityInfo:
		r.Info(e.Error())
	case SeverityWarning:
		r.Warn(e.Error())
	default:
		r.Error(e.Error())
	}
	for _, hint := range e.Hints {
		r.Info("hint: " + hint)
	}
}

// RenderTasks prints a task listing.
func (r *Renderer) RenderTasks(tasks []TaskInfo) {
	if len(tasks) == 0 {
		r.Info("No tasks.")
		return
	}
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		msg := ""
		if task.Error != nil {
			msg = task.Error.Error()
		}
		rows = append(rows, []string{task.ID, task.Name, string(task.Status), task.Duration.Truncate(time.Millisecond).String(), msg})
	}
	r.WriteTable([]string{"ID", "Name", "Status", "Duration", "Error"}, rows)
}

// WriteJSON renders v as indented JSON.
func (r *Renderer) WriteJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = fmt.Fprintln(r.writer, string(data))
	return err
}

// WriteTable renders tabular output without border markers.
func (r *Renderer) WriteTable(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.level < OutputNormal {
		return
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(strings.TrimSpace(h))
	}
	for _, row := range rows {
		for i := range widths {
			if i < len(row) && len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}
	fmt.Fprintln(r.writer, formatHeader(headers, widths))
	for _, row := range rows {
		fmt.Fprintln(r.writer, formatRow(row, widths))
	}
}

func formatHeader(headers []string, widths []int) string {
	cells := make([]string, len(widths))
	for i := range widths {
		value := ""
		if i < len(headers) {
			value = strings.TrimSpace(headers[i])
		}
		cells[i] = fmt.Sprintf(" %-*s ", widths[i], value)
	}
	return "|" + strings.Join(cells, "|") + "|"
}

func formatRow(row []string, widths []int) string {
	var b strings.Builder
	b.Grow(len(widths) * 8)
	b.WriteString("  ")
	for i := range widths {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		fmt.Fprintf(&b, "%-*s", widths[i], value)
		if i < len(widths)-1 {
			b.WriteString("   ")
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Writer returns the underlying writer.
func (r *Renderer) Writer() io.Writer { return r.writer }
