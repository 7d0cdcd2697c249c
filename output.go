package slash

import (
	"encoding/json"
	"fmt"
	"sort"
)

// IconName identifies the icon a renderer shows next to a section.
type IconName string

const (
	IconSlash   IconName = "slash"
	IconRoute   IconName = "route"
	IconFile    IconName = "file"
	IconFolder  IconName = "folder"
	IconCode    IconName = "code"
	IconLibrary IconName = "library"
	IconPrompt  IconName = "prompt"
	IconInfo    IconName = "info"
	IconError   IconName = "error"
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int { return r.End - r.Start }

// Valid reports whether the range lies within a text of length n.
func (r Range) Valid(n int) bool {
	return 0 <= r.Start && r.Start <= r.End && r.End <= n
}

// Offset returns the range shifted by delta bytes.
func (r Range) Offset(delta int) Range {
	return Range{Start: r.Start + delta, End: r.End + delta}
}

func (r Range) String() string { return fmt.Sprintf("%d..%d", r.Start, r.End) }

// Section annotates a range of a command's output text.
// Metadata is opaque to the engine and passed through to rendering.
type Section struct {
	Range    Range           `json:"range"`
	Icon     IconName        `json:"icon"`
	Label    string          `json:"label"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Output is the terminal value of a command run.
type Output struct {
	Text              string    `json:"text"`
	Sections          []Section `json:"sections,omitempty"`
	RunCommandsInText bool      `json:"run_commands_in_text,omitempty"`
}

// WholeText builds an output whose single section spans all of text.
func WholeText(text string, icon IconName, label string) Output {
	return Output{
		Text: text,
		Sections: []Section{{
			Range: Range{Start: 0, End: len(text)},
			Icon:  icon,
			Label: label,
		}},
	}
}

// Validate checks that every section range lies within the output text.
// Sections may overlap or nest.
func (o Output) Validate() error {
	for i, s := range o.Sections {
		if !s.Range.Valid(len(o.Text)) {
			return fmt.Errorf("section %d (%q) range %s outside text of length %d", i, s.Label, s.Range, len(o.Text))
		}
	}
	return nil
}

// Slice returns the text covered by the section.
func (o Output) Slice(s Section) string {
	if !s.Range.Valid(len(o.Text)) {
		return ""
	}
	return o.Text[s.Range.Start:s.Range.End]
}

// Translate returns the sections shifted into a host coordinate space
// where the output text starts at offset.
func (o Output) Translate(offset int) []Section {
	out := make([]Section, len(o.Sections))
	for i, s := range o.Sections {
		s.Range = s.Range.Offset(offset)
		out[i] = s
	}
	return out
}

// EventKind enumerates output stream events.
type EventKind string

const (
	EventStartSection EventKind = "start_section"
	EventContent      EventKind = "content"
	EventEndSection   EventKind = "end_section"
)

// Event is one element of a command's output stream. Sections are opened and
// closed by ID, so overlapping sections survive the stream.
type Event struct {
	Kind        EventKind       `json:"kind"`
	SectionID   int             `json:"section_id,omitempty"`
	Text        string          `json:"text,omitempty"`
	RunCommands bool            `json:"run_commands,omitempty"`
	Icon        IconName        `json:"icon,omitempty"`
	Label       string          `json:"label,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

type boundary struct {
	pos   int
	start bool
	index int
	other int // the opposite end of the section
}

// Events linearizes the output into a stream that Collect folds back into an
// identical Output. Section IDs are the section indexes. An output whose
// ranges fall outside its text is rejected.
func (o Output) Events() ([]Event, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	bounds := make([]boundary, 0, len(o.Sections)*2)
	for i, s := range o.Sections {
		bounds = append(bounds,
			boundary{pos: s.Range.Start, start: true, index: i, other: s.Range.End},
			boundary{pos: s.Range.End, start: false, index: i, other: s.Range.Start},
		)
	}
	sort.SliceStable(bounds, func(i, j int) bool {
		a, b := bounds[i], bounds[j]
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		aEmpty, bEmpty := a.pos == a.other, b.pos == b.other
		// Ends of non-empty sections close before anything opens at the same
		// offset; empty sections open and close last.
		rank := func(x boundary, empty bool) int {
			switch {
			case empty && x.start:
				return 2
			case empty:
				return 3
			case x.start:
				return 1
			default:
				return 0
			}
		}
		ra, rb := rank(a, aEmpty), rank(b, bEmpty)
		if ra != rb {
			return ra < rb
		}
		switch ra {
		case 0:
			// Inner sections close first.
			if a.other != b.other {
				return a.other > b.other
			}
			return a.index > b.index
		case 1:
			// Outer sections open first.
			if a.other != b.other {
				return a.other > b.other
			}
			return a.index < b.index
		default:
			return a.index < b.index
		}
	})

	events := make([]Event, 0, len(bounds)+len(bounds)/2+1)
	emitted := false
	last := 0
	flush := func(pos int) {
		if pos > last {
			events = append(events, Event{Kind: EventContent, Text: o.Text[last:pos], RunCommands: o.RunCommandsInText})
			emitted = true
			last = pos
		}
	}
	for _, b := range bounds {
		flush(b.pos)
		s := o.Sections[b.index]
		if b.start {
			events = append(events, Event{
				Kind:      EventStartSection,
				SectionID: b.index,
				Icon:      s.Icon,
				Label:     s.Label,
				Metadata:  s.Metadata,
			})
		} else {
			events = append(events, Event{Kind: EventEndSection, SectionID: b.index})
		}
	}
	flush(len(o.Text))
	if !emitted && o.RunCommandsInText {
		events = append(events, Event{Kind: EventContent, RunCommands: true})
	}
	return events, nil
}

// Collector folds an event stream into an Output.
type Collector struct {
	text        []byte
	runCommands bool
	open        map[int]*Section
	done        map[int]Section
}

// Push applies one event.
func (c *Collector) Push(ev Event) error {
	if c.open == nil {
		c.open = map[int]*Section{}
		c.done = map[int]Section{}
	}
	switch ev.Kind {
	case EventContent:
		c.text = append(c.text, ev.Text...)
		c.runCommands = c.runCommands || ev.RunCommands
	case EventStartSection:
		if _, ok := c.open[ev.SectionID]; ok {
			return fmt.Errorf("section %d already open", ev.SectionID)
		}
		if _, ok := c.done[ev.SectionID]; ok {
			return fmt.Errorf("section %d already closed", ev.SectionID)
		}
		c.open[ev.SectionID] = &Section{
			Range:    Range{Start: len(c.text)},
			Icon:     ev.Icon,
			Label:    ev.Label,
			Metadata: ev.Metadata,
		}
	case EventEndSection:
		s, ok := c.open[ev.SectionID]
		if !ok {
			return fmt.Errorf("section %d closed without being opened", ev.SectionID)
		}
		s.Range.End = len(c.text)
		c.done[ev.SectionID] = *s
		delete(c.open, ev.SectionID)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return nil
}

// Output returns the folded output. Every opened section must be closed.
func (c *Collector) Output() (Output, error) {
	if len(c.open) > 0 {
		ids := make([]int, 0, len(c.open))
		for id := range c.open {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		return Output{}, fmt.Errorf("sections %v were never closed", ids)
	}
	out := Output{Text: string(c.text), RunCommandsInText: c.runCommands}
	if len(c.done) == 0 {
		return out, nil
	}
	ids := make([]int, 0, len(c.done))
	for id := range c.done {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out.Sections = make([]Section, 0, len(ids))
	for _, id := range ids {
		out.Sections = append(out.Sections, c.done[id])
	}
	return out, nil
}

// Collect folds a complete event stream into an Output.
func Collect(events []Event) (Output, error) {
	var c Collector
	for i, ev := range events {
		if err := c.Push(ev); err != nil {
			return Output{}, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return c.Output()
}

// StreamWriter lets a Streamer emit output incrementally.
type StreamWriter struct {
	emit func(Event) error
	next int
}

// NewStreamWriter returns a writer delivering events to emit.
func NewStreamWriter(emit func(Event) error) *StreamWriter {
	return &StreamWriter{emit: emit}
}

// StartSection opens a section at the current end of the text and returns its ID.
func (w *StreamWriter) StartSection(icon IconName, label string, metadata json.RawMessage) (int, error) {
	id := w.next
	w.next++
	return id, w.emit(Event{Kind: EventStartSection, SectionID: id, Icon: icon, Label: label, Metadata: metadata})
}

// Write appends text to the output.
func (w *StreamWriter) Write(text string, runCommands bool) error {
	return w.emit(Event{Kind: EventContent, Text: text, RunCommands: runCommands})
}

// EndSection closes a section opened by StartSection.
func (w *StreamWriter) EndSection(id int) error {
	return w.emit(Event{Kind: EventEndSection, SectionID: id})
}
