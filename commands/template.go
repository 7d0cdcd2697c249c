package commands

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/network-plane/slash"
)

// frontmatter is the YAML header of a markdown command file.
type frontmatter struct {
	Description       string          `yaml:"description"`
	Menu              string          `yaml:"menu"`
	RequiresArgument  bool            `yaml:"requires_argument"`
	Icon              string          `yaml:"icon"`
	Label             string          `yaml:"label"`
	RunCommandsInText bool            `yaml:"run_commands_in_text"`
	Args              []slash.ArgSpec `yaml:"args"`
}

// Template is a command defined by a markdown file: YAML frontmatter for
// metadata and a body expanded with the invocation arguments.
type Template struct {
	slash.Base
	icon        slash.IconName
	label       string
	body        string
	args        []slash.ArgSpec
	runCommands bool
	// Source is the file the command was loaded from.
	Source string
}

var frontmatterDelim = []byte("---")

// ParseTemplate builds a template command named name from file contents.
func ParseTemplate(name string, data []byte) (*Template, error) {
	if err := slash.ValidateName(name); err != nil {
		return nil, err
	}
	var meta frontmatter
	body := data
	if head, rest, ok := splitFrontmatter(data); ok {
		if err := yaml.Unmarshal(head, &meta); err != nil {
			return nil, fmt.Errorf("frontmatter of %s: %w", name, err)
		}
		body = rest
	}
	for i, arg := range meta.Args {
		if arg.Name == "" {
			return nil, fmt.Errorf("argument %d of %s has no name", i, name)
		}
		if arg.Repeatable && i != len(meta.Args)-1 {
			return nil, fmt.Errorf("only the last argument of %s may be repeatable", name)
		}
	}

	t := &Template{
		Base: slash.Base{
			CommandName:      name,
			Summary:          meta.Description,
			Menu:             meta.Menu,
			ArgumentRequired: meta.RequiresArgument,
		},
		icon:        slash.IconPrompt,
		label:       meta.Label,
		body:        strings.TrimSpace(string(body)),
		args:        meta.Args,
		runCommands: meta.RunCommandsInText,
	}
	if meta.Icon != "" {
		t.icon = slash.IconName(meta.Icon)
	}
	if t.label == "" {
		t.label = name
	}
	if t.Summary == "" {
		t.Summary = "Insert the " + name + " prompt"
	}
	for _, arg := range meta.Args {
		if arg.Required {
			t.ArgumentRequired = true
		}
	}
	return t, nil
}

func splitFrontmatter(data []byte) ([]byte, []byte, bool) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !bytes.HasPrefix(data, frontmatterDelim) {
		return nil, nil, false
	}
	lines := bytes.SplitAfter(data, []byte("\n"))
	if len(lines) < 2 || !bytes.Equal(bytes.TrimSpace(lines[0]), frontmatterDelim) {
		return nil, nil, false
	}
	offset := len(lines[0])
	for _, line := range lines[1:] {
		if bytes.Equal(bytes.TrimSpace(line), frontmatterDelim) {
			return data[len(lines[0]):offset], data[offset+len(line):], true
		}
		offset += len(line)
	}
	return nil, nil, false
}

// Icon implements slash.Iconer.
func (t *Template) Icon() slash.IconName { return t.icon }

// Args returns the declared arguments.
func (t *Template) Args() []slash.ArgSpec { return t.args }

// Usage renders the invocation syntax.
func (t *Template) Usage() string { return slash.FormatUsage(t, t.args) }

// CompleteArgument offers the enum values of the argument being typed.
func (t *Template) CompleteArgument(ctx context.Context, req slash.CompletionRequest) ([]slash.ArgumentCompletion, error) {
	pos := len(req.Arguments) - 1
	partial := ""
	if pos < 0 {
		pos = 0
	} else {
		partial = req.Arguments[pos]
	}
	spec, last, ok := t.argAt(pos)
	if !ok || len(spec.EnumValues) == 0 {
		return []slash.ArgumentCompletion{}, nil
	}

	values := spec.EnumValues
	if partial != "" {
		ranks := fuzzy.RankFindFold(partial, spec.EnumValues)
		sort.Sort(ranks)
		values = make([]string, 0, len(ranks))
		for _, r := range ranks {
			values = append(values, r.Target)
		}
	}
	out := make([]slash.ArgumentCompletion, 0, len(values))
	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label := v
		if spec.Description != "" {
			label = v + "  " + spec.Description
		}
		out = append(out, slash.ArgumentCompletion{
			Label:      label,
			NewText:    v,
			RunCommand: last && !spec.Repeatable,
		})
	}
	return out, nil
}

// argAt returns the declared argument at a position and whether it is the last one.
func (t *Template) argAt(pos int) (slash.ArgSpec, bool, bool) {
	n := len(t.args)
	switch {
	case n == 0:
		return slash.ArgSpec{}, false, false
	case pos < n:
		return t.args[pos], pos == n-1, true
	case t.args[n-1].Repeatable:
		return t.args[n-1], true, true
	default:
		return slash.ArgSpec{}, false, false
	}
}

var placeholder = regexp.MustCompile(`\$(ARGUMENTS|\d+|\{\w+\})`)

// Run expands the body with the arguments.
func (t *Template) Run(ctx context.Context, req slash.RunRequest) (slash.Output, error) {
	named := map[string]string{}
	if len(t.args) > 0 {
		values, err := slash.ParseArguments(t.Name(), req.Arguments, t.args)
		if err != nil {
			return slash.Output{}, err
		}
		named = values.Map()
	}
	if err := ctx.Err(); err != nil {
		return slash.Output{}, err
	}
	text := placeholder.ReplaceAllStringFunc(t.body, func(match string) string {
		key := match[1:]
		switch {
		case key == "ARGUMENTS":
			return strings.Join(req.Arguments, " ")
		case strings.HasPrefix(key, "{"):
			if v, ok := named[strings.Trim(key, "{}")]; ok {
				return v
			}
			return match
		default:
			n, _ := strconv.Atoi(key)
			if n >= 1 && n <= len(req.Arguments) {
				return req.Arguments[n-1]
			}
			return ""
		}
	})
	out := slash.WholeText(text, t.icon, t.label)
	out.RunCommandsInText = t.runCommands
	return out, nil
}
