package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/network-plane/slash"
)

// FileName is the registry name of the file command.
const FileName = "file"

const maxFileCompletions = 50

// FileMetadata is attached to every file section.
type FileMetadata struct {
	Path string `json:"path"`
}

// File inserts workspace files matching glob patterns, fenced by path.
type File struct {
	slash.Base
}

// NewFile returns the file command.
func NewFile() *File {
	return &File{Base: slash.Base{
		CommandName:      FileName,
		Summary:          "Insert file contents",
		Menu:             "Insert file",
		ArgumentRequired: true,
	}}
}

// Icon implements slash.Iconer.
func (f *File) Icon() slash.IconName { return slash.IconFile }

// CompleteArgument lists paths extending the argument being typed. Open
// files come first.
func (f *File) CompleteArgument(ctx context.Context, req slash.CompletionRequest) ([]slash.ArgumentCompletion, error) {
	ws, err := req.Workspace.Resolve()
	if err != nil {
		return nil, err
	}
	partial := ""
	if n := len(req.Arguments); n > 0 {
		partial = req.Arguments[n-1]
	}
	partial = strings.TrimPrefix(partial, "./")

	var out []slash.ArgumentCompletion
	seen := map[string]bool{}
	for _, p := range ws.OpenFiles() {
		if strings.HasPrefix(p, partial) {
			out = append(out, slash.ArgumentCompletion{Label: p, NewText: p, RunCommand: true})
			seen[p] = true
		}
	}

	fsys := afero.NewIOFS(ws.FS)
	matches, err := doublestar.Glob(fsys, escapeMeta(partial)+"*")
	if err != nil {
		return nil, slash.InvalidArguments(FileName, "bad path %q: %v", partial, err)
	}
	sort.Strings(matches)
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seen[m] || len(out) >= maxFileCompletions {
			continue
		}
		info, err := fs.Stat(fsys, m)
		if err != nil {
			continue
		}
		if info.IsDir() {
			out = append(out, slash.ArgumentCompletion{Label: m + "/", NewText: m + "/"})
			continue
		}
		out = append(out, slash.ArgumentCompletion{Label: m, NewText: m, RunCommand: true})
	}
	if out == nil {
		out = []slash.ArgumentCompletion{}
	}
	return out, nil
}

// Run reads every file matched by the argument patterns. Each file gets a
// section; a pattern matching several files also gets a folder section
// around them.
func (f *File) Run(ctx context.Context, req slash.RunRequest) (slash.Output, error) {
	ws, err := req.Workspace.Resolve()
	if err != nil {
		return slash.Output{}, err
	}
	fsys := afero.NewIOFS(ws.FS)

	var (
		text     strings.Builder
		sections []slash.Section
		seen     = map[string]bool{}
	)
	for _, arg := range req.Arguments {
		pattern, err := cleanPattern(arg)
		if err != nil {
			return slash.Output{}, err
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return slash.Output{}, slash.InvalidArguments(FileName, "bad pattern %q: %v", arg, err)
		}
		sort.Strings(matches)

		start := text.Len()
		count := 0
		for _, p := range matches {
			if seen[p] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return slash.Output{}, err
			}
			seen[p] = true
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return slash.Output{}, slash.GenerationFailure(FileName, fmt.Errorf("read %s: %w", p, err))
			}
			sections = append(sections, writeFile(&text, p, data))
			count++
		}
		if count > 1 {
			sections = append(sections, slash.Section{
				Range: slash.Range{Start: start, End: text.Len()},
				Icon:  slash.IconFolder,
				Label: pattern,
			})
		}
	}
	if len(seen) == 0 {
		return slash.Output{}, slash.InvalidArguments(FileName, "no files match %s", strings.Join(req.Arguments, " "))
	}
	return slash.Output{Text: text.String(), Sections: sections}, nil
}

func writeFile(text *strings.Builder, p string, data []byte) slash.Section {
	start := text.Len()
	fmt.Fprintf(text, "```%s\n", p)
	if bytes.IndexByte(data, 0) >= 0 {
		text.WriteString("(binary file omitted)\n")
	} else {
		text.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			text.WriteByte('\n')
		}
	}
	text.WriteString("```\n")
	meta, _ := json.Marshal(FileMetadata{Path: p})
	return slash.Section{
		Range:    slash.Range{Start: start, End: text.Len()},
		Icon:     slash.IconFile,
		Label:    p,
		Metadata: meta,
	}
}

func cleanPattern(arg string) (string, error) {
	p := strings.TrimPrefix(strings.TrimSpace(arg), "./")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", slash.InvalidArguments(FileName, "empty pattern")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", slash.InvalidArguments(FileName, "pattern %q leaves the workspace", arg)
		}
	}
	return path.Clean(p), nil
}

func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
