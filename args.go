package slash

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"
)

// Prefix marks a line as a command invocation.
const Prefix = "/"

// IsInvocation reports whether line starts with a slash command.
func IsInvocation(line string) bool {
	line = strings.TrimLeft(line, " \t")
	return strings.HasPrefix(line, Prefix) && len(line) > 1 && line[1] != ' ' && line[1] != '/'
}

// ParseInvocation splits "/name arg0 arg1" into the name and its arguments.
// Arguments follow shell quoting rules; "$" is kept literally.
func ParseInvocation(line string) (string, []string, error) {
	line = strings.TrimSpace(line)
	if !IsInvocation(line) {
		return "", nil, InvalidArguments("", "%q is not a command invocation", line)
	}
	fields, err := splitWords(strings.TrimPrefix(line, Prefix))
	if err != nil {
		return "", nil, InvalidArguments("", "parse %q: %v", line, err)
	}
	if len(fields) == 0 {
		return "", nil, InvalidArguments("", "missing command name")
	}
	return fields[0], fields[1:], nil
}

// SplitPartial parses a line that is still being typed. A trailing space
// means a new, empty argument has been started. Unbalanced quotes fall back
// to whitespace splitting.
func SplitPartial(line string) (string, []string) {
	line = strings.TrimLeft(line, " \t")
	line = strings.TrimPrefix(line, Prefix)
	fields, err := splitWords(line)
	if err != nil {
		fields = strings.Fields(line)
	}
	if len(fields) == 0 {
		return "", nil
	}
	args := fields[1:]
	if strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
		args = append(args, "")
	}
	return fields[0], args
}

// JoinArguments renders arguments back into a line, quoting where needed.
func JoinArguments(args []string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'\\") {
			a = strconv.Quote(a)
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}

func splitWords(s string) ([]string, error) {
	if !strings.ContainsAny(s, `"'\`) {
		return strings.Fields(s), nil
	}
	return shell.Fields(s, func(name string) string { return "$" + name })
}

// ArgType enumerates supported argument types for declared arguments.
type ArgType string

const (
	ArgTypeString   ArgType = "string"
	ArgTypeInt      ArgType = "int"
	ArgTypeFloat    ArgType = "float"
	ArgTypeBool     ArgType = "bool"
	ArgTypeDuration ArgType = "duration"
	ArgTypeEnum     ArgType = "enum"
	ArgTypeJSON     ArgType = "json"
)

// ArgSpec declares one positional argument.
type ArgSpec struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Type        ArgType  `yaml:"type" json:"type,omitempty"`
	Required    bool     `yaml:"required" json:"required,omitempty"`
	Repeatable  bool     `yaml:"repeatable" json:"repeatable,omitempty"`
	EnumValues  []string `yaml:"enum" json:"enum,omitempty"`
	Default     any      `yaml:"default" json:"default,omitempty"`
}

// ValueSet holds parsed arguments as the user wrote them, with defaults
// filled in.
type ValueSet struct {
	values map[string]any
}

// String retrieves a string value. Repeatable values are joined with spaces.
func (v ValueSet) String(name string) string {
	val, ok := v.values[name]
	if !ok {
		return ""
	}
	switch t := val.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, " ")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Map returns the values rendered as strings, for template substitution.
func (v ValueSet) Map() map[string]string {
	m := make(map[string]string, len(v.values))
	for k := range v.values {
		m[k] = v.String(k)
	}
	return m
}

// ParseArguments matches raw positional arguments against declared specs.
// Tokens are checked against their declared type and stored verbatim. Only
// the last spec may be repeatable. Failures are InvalidArguments.
func ParseArguments(command string, raw []string, specs []ArgSpec) (ValueSet, error) {
	values := map[string]any{}
	for i, token := range raw {
		if i >= len(specs) {
			last := len(specs) - 1
			if last >= 0 && specs[last].Repeatable {
				if _, err := castValue(specs[last].Type, token, specs[last].EnumValues); err != nil {
					return ValueSet{}, InvalidArguments(command, "argument %s: %v", specs[last].Name, err)
				}
				values[specs[last].Name] = append(values[specs[last].Name].([]string), token)
				continue
			}
			return ValueSet{}, InvalidArguments(command, "unexpected argument %q", token)
		}
		spec := specs[i]
		if _, err := castValue(spec.Type, token, spec.EnumValues); err != nil {
			return ValueSet{}, InvalidArguments(command, "argument %s: %v", spec.Name, err)
		}
		if spec.Repeatable {
			values[spec.Name] = []string{token}
			continue
		}
		values[spec.Name] = token
	}
	for _, spec := range specs {
		if _, ok := values[spec.Name]; ok {
			continue
		}
		switch {
		case spec.Default != nil:
			values[spec.Name] = spec.Default
		case spec.Required:
			return ValueSet{}, InvalidArguments(command, "missing required argument: %s", spec.Name)
		}
	}
	return ValueSet{values: values}, nil
}

func castValue(kind ArgType, raw string, enum []string) (any, error) {
	switch kind {
	case ArgTypeString, "":
		return raw, nil
	case ArgTypeInt:
		return strconv.Atoi(raw)
	case ArgTypeFloat:
		return strconv.ParseFloat(raw, 64)
	case ArgTypeBool:
		return strconv.ParseBool(raw)
	case ArgTypeDuration:
		return time.ParseDuration(raw)
	case ArgTypeEnum:
		if len(enum) == 0 {
			return raw, nil
		}
		for _, candidate := range enum {
			if candidate == raw {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("value %q not one of %s", raw, strings.Join(enum, ", "))
	case ArgTypeJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid json for value %q", raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}

// FormatUsage renders a usage string such as "/file <PATTERN...>".
func FormatUsage(cmd Command, specs []ArgSpec) string {
	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteString(cmd.Name())
	if len(specs) == 0 && cmd.RequiresArgument() {
		b.WriteString(" <ARG...>")
	}
	for _, arg := range specs {
		b.WriteString(" ")
		name := strings.ToUpper(arg.Name)
		if arg.Repeatable {
			name += "..."
		}
		if arg.Required {
			fmt.Fprintf(&b, "<%s>", name)
		} else {
			fmt.Fprintf(&b, "[%s]", name)
		}
	}
	return b.String()
}
