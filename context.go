package slash

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"weak"

	"github.com/spf13/afero"
)

// Workspace is the editor session that commands may consult for context.
type Workspace struct {
	Name string
	Root string
	// FS is rooted at Root.
	FS afero.Fs

	mu    sync.RWMutex
	open  map[string]struct{}
	attrs map[string]string
}

// NewWorkspace constructs a workspace over root. A nil fs means the OS
// filesystem below root.
func NewWorkspace(name, root string, fs afero.Fs) *Workspace {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), root)
	}
	return &Workspace{
		Name:  name,
		Root:  root,
		FS:    fs,
		open:  map[string]struct{}{},
		attrs: map[string]string{},
	}
}

// OpenFile marks a workspace-relative path as open in the editor.
func (w *Workspace) OpenFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open[filepath.ToSlash(filepath.Clean(path))] = struct{}{}
}

// CloseFile unmarks an open path.
func (w *Workspace) CloseFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.open, filepath.ToSlash(filepath.Clean(path)))
}

// OpenFiles lists open paths in sorted order.
func (w *Workspace) OpenFiles() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	files := make([]string, 0, len(w.open))
	for f := range w.open {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// AttrLanguage is the workspace attribute naming the project language.
const AttrLanguage = "language"

// Set stores a session attribute.
func (w *Workspace) Set(key, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attrs[key] = value
}

// Get retrieves a session attribute.
func (w *Workspace) Get(key string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.attrs[key]
	return v, ok
}

// WorkspaceHandle is a non-owning reference to a Workspace. The workspace may
// go away at any time; Resolve then reports ContextUnavailable.
type WorkspaceHandle struct {
	ptr weak.Pointer[Workspace]
}

// HandleOf returns a weak handle to w, or nil when w is nil.
func HandleOf(w *Workspace) *WorkspaceHandle {
	if w == nil {
		return nil
	}
	return &WorkspaceHandle{ptr: weak.Make(w)}
}

// Resolve returns the workspace if it is still alive.
func (h *WorkspaceHandle) Resolve() (*Workspace, error) {
	if h == nil {
		return nil, ContextUnavailable("", "workspace")
	}
	w := h.ptr.Value()
	if w == nil {
		return nil, ContextUnavailable("", "workspace")
	}
	return w, nil
}

// Symbol is a language-service symbol.
type Symbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Container string `json:"container,omitempty"`
}

// LanguageService is the optional delegate some commands query during Run.
type LanguageService interface {
	WorkspaceSymbols(ctx context.Context, query string) ([]Symbol, error)
	DocumentSymbols(ctx context.Context, path string) ([]Symbol, error)
}
