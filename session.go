package slash

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Snapshot is an immutable, point-in-time view of the host document.
type Snapshot interface {
	Text() string
	Version() uint64
}

type textSnapshot struct {
	text    string
	version uint64
}

func (s textSnapshot) Text() string    { return s.text }
func (s textSnapshot) Version() uint64 { return s.version }

// StaticSnapshot wraps a string as a Snapshot.
func StaticSnapshot(text string) Snapshot { return textSnapshot{text: text} }

// AnchoredSection is a section translated into document coordinates.
type AnchoredSection struct {
	Section
	Command    string `json:"command"`
	Invocation string `json:"invocation,omitempty"`
}

// Buffer is an in-memory conversation document. Commands never touch it:
// callers splice command output in after an execution resolves.
type Buffer struct {
	mu       sync.RWMutex
	text     string
	version  uint64
	sections []AnchoredSection
}

// NewBuffer constructs a buffer with initial text.
func NewBuffer(initial string) *Buffer {
	return &Buffer{text: initial}
}

// Snapshot returns the current immutable view.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return textSnapshot{text: b.text, version: b.version}
}

// Len returns the document length in bytes.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.text)
}

// Text returns the document text.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Append adds plain text at the end of the document.
func (b *Buffer) Append(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insert(len(b.text), text)
}

// Splice inserts a command output at byte offset at, translates its sections
// into document coordinates and records them. Existing sections after the
// insertion point move; sections spanning it grow.
func (b *Buffer) Splice(at int, command, invocation string, out Output) ([]AnchoredSection, error) {
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("splice %s: %w", command, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if at < 0 || at > len(b.text) {
		return nil, fmt.Errorf("splice %s: offset %d outside document of length %d", command, at, len(b.text))
	}
	b.insert(at, out.Text)
	added := make([]AnchoredSection, 0, len(out.Sections))
	for _, s := range out.Translate(at) {
		added = append(added, AnchoredSection{Section: s, Command: command, Invocation: invocation})
	}
	b.sections = append(b.sections, added...)
	sort.SliceStable(b.sections, func(i, j int) bool {
		return b.sections[i].Range.Start < b.sections[j].Range.Start
	})
	return added, nil
}

func (b *Buffer) insert(at int, text string) {
	if text == "" {
		return
	}
	n := len(text)
	for i := range b.sections {
		r := &b.sections[i].Range
		switch {
		case r.Start >= at:
			*r = r.Offset(n)
		case r.End > at:
			r.End += n
		}
	}
	var sb strings.Builder
	sb.Grow(len(b.text) + n)
	sb.WriteString(b.text[:at])
	sb.WriteString(text)
	sb.WriteString(b.text[at:])
	b.text = sb.String()
	b.version++
}

// Sections returns a copy of the recorded sections ordered by start offset.
func (b *Buffer) Sections() []AnchoredSection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]AnchoredSection, len(b.sections))
	copy(out, b.sections)
	return out
}

// SectionText returns the document text covered by s.
func (b *Buffer) SectionText(s AnchoredSection) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !s.Range.Valid(len(b.text)) {
		return ""
	}
	return b.text[s.Range.Start:s.Range.End]
}
