// Package prompts renders the text templates behind prompt-inserting
// commands. Built-in templates are embedded; a directory of *.tmpl files can
// override them by name.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/spf13/afero"

	"github.com/network-plane/slash/internal/logging"
)

//go:embed templates/*.tmpl
var embedded embed.FS

const ext = ".tmpl"

// WorkflowTemplate is the name of the edit workflow prompt.
const WorkflowTemplate = "workflow"

// WorkflowData is passed to the workflow template.
type WorkflowData struct {
	// Language of the project, if known.
	Language string
}

// Builder renders named prompt templates.
type Builder struct {
	fs          afero.Fs
	overrideDir string

	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewBuilder loads the embedded templates and any overrides found in
// overrideDir on fsys. An empty overrideDir disables overrides.
func NewBuilder(fsys afero.Fs, overrideDir string) (*Builder, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	b := &Builder{fs: fsys, overrideDir: overrideDir}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload re-reads the embedded templates and the override directory.
func (b *Builder) Reload() error {
	templates := map[string]*template.Template{}

	entries, err := fs.ReadDir(embedded, "templates")
	if err != nil {
		return fmt.Errorf("read embedded templates: %w", err)
	}
	for _, entry := range entries {
		data, err := fs.ReadFile(embedded, path.Join("templates", entry.Name()))
		if err != nil {
			return fmt.Errorf("read embedded template %s: %w", entry.Name(), err)
		}
		if err := add(templates, entry.Name(), string(data)); err != nil {
			return err
		}
	}

	if b.overrideDir != "" {
		if err := b.loadOverrides(templates); err != nil {
			return err
		}
	}

	b.mu.Lock()
	b.templates = templates
	b.mu.Unlock()
	return nil
}

func (b *Builder) loadOverrides(templates map[string]*template.Template) error {
	ok, err := afero.DirExists(b.fs, b.overrideDir)
	if err != nil {
		return fmt.Errorf("stat prompt overrides: %w", err)
	}
	if !ok {
		logging.Debug().Str("dir", b.overrideDir).Msg("prompt override directory not found")
		return nil
	}
	infos, err := afero.ReadDir(b.fs, b.overrideDir)
	if err != nil {
		return fmt.Errorf("read prompt overrides: %w", err)
	}
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ext) {
			continue
		}
		data, err := afero.ReadFile(b.fs, filepath.Join(b.overrideDir, info.Name()))
		if err != nil {
			return fmt.Errorf("read prompt override %s: %w", info.Name(), err)
		}
		if err := add(templates, info.Name(), string(data)); err != nil {
			return err
		}
		logging.Debug().Str("template", info.Name()).Msg("prompt override loaded")
	}
	return nil
}

func add(templates map[string]*template.Template, file, text string) error {
	name := strings.TrimSuffix(file, ext)
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", file, err)
	}
	templates[name] = tmpl
	return nil
}

// Has reports whether a template exists.
func (b *Builder) Has(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.templates[name]
	return ok
}

// Names lists the available templates.
func (b *Builder) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.templates))
	for name := range b.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render executes the named template with data.
func (b *Builder) Render(name string, data any) (string, error) {
	b.mu.RLock()
	tmpl, ok := b.templates[name]
	b.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// GenerateWorkflowPrompt renders the edit workflow prompt. language may be
// empty.
func (b *Builder) GenerateWorkflowPrompt(language string) (string, error) {
	return b.Render(WorkflowTemplate, WorkflowData{Language: language})
}
