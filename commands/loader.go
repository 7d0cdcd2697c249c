package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/network-plane/slash"
	"github.com/network-plane/slash/internal/logging"
)

// TemplatePattern selects command files below the commands directory.
const TemplatePattern = "**/*.md"

// Loader registers template commands found in a directory. Files in nested
// directories are named "dir:name".
type Loader struct {
	fs       afero.Fs
	dir      string
	registry slash.RegistryWriter

	mu     sync.Mutex
	loaded []string
}

// NewLoader creates a loader for dir on fsys.
func NewLoader(fsys afero.Fs, dir string, registry slash.RegistryWriter) *Loader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Loader{fs: fsys, dir: dir, registry: registry}
}

// Dir returns the directory being loaded.
func (l *Loader) Dir() string { return l.dir }

// Load replaces the commands registered by the previous Load with the
// current directory contents. Files that fail to parse or collide with an
// existing command are skipped and logged.
func (l *Loader) Load() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, name := range l.loaded {
		l.registry.Unregister(name)
	}
	l.loaded = nil

	ok, err := afero.DirExists(l.fs, l.dir)
	if err != nil || !ok {
		return nil, err
	}

	var templates []*Template
	err = afero.Walk(l.fs, l.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.dir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if match, _ := doublestar.Match(TemplatePattern, rel); !match {
			return nil
		}
		data, err := afero.ReadFile(l.fs, path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("skipping unreadable command file")
			return nil
		}
		name := strings.ReplaceAll(strings.TrimSuffix(rel, ".md"), "/", ":")
		tmpl, err := ParseTemplate(name, data)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("skipping invalid command file")
			return nil
		}
		tmpl.Source = path
		templates = append(templates, tmpl)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, tmpl := range templates {
		if err := l.registry.Register(tmpl); err != nil {
			logging.Warn().Err(err).Str("path", tmpl.Source).Msg("skipping command")
			continue
		}
		l.loaded = append(l.loaded, tmpl.Name())
	}
	sort.Strings(l.loaded)
	logging.Debug().Str("dir", l.dir).Strs("commands", l.loaded).Msg("template commands loaded")
	return append([]string(nil), l.loaded...), nil
}

// Loaded returns the names registered by the last Load.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.loaded...)
}
