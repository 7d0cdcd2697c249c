package slash

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures surfaced by dispatch, completion and execution.
type ErrorKind string

const (
	KindUnknownCommand     ErrorKind = "unknown_command"
	KindInvalidArguments   ErrorKind = "invalid_arguments"
	KindGenerationFailure  ErrorKind = "generation_failure"
	KindCancelled          ErrorKind = "cancelled"
	KindContextUnavailable ErrorKind = "context_unavailable"
)

// SeverityLevel indicates how a failure should be presented to the user.
type SeverityLevel string

const (
	SeverityInfo    SeverityLevel = "info"
	SeverityWarning SeverityLevel = "warning"
	SeverityError   SeverityLevel = "error"
)

// Error wraps a failure with its kind and user facing metadata.
type Error struct {
	Kind     ErrorKind
	Command  string
	Message  string
	Err      error
	Severity SeverityLevel
	Hints    []string
}

// Sentinels for errors.Is checks. Any *Error of the same kind matches.
var (
	ErrUnknownCommand     = &Error{Kind: KindUnknownCommand}
	ErrInvalidArguments   = &Error{Kind: KindInvalidArguments}
	ErrGenerationFailure  = &Error{Kind: KindGenerationFailure}
	ErrCancelled          = &Error{Kind: KindCancelled}
	ErrContextUnavailable = &Error{Kind: KindContextUnavailable}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = strings.ReplaceAll(string(e.Kind), "_", " ")
	}
	if e.Command != "" {
		return fmt.Sprintf("/%s: %s", e.Command, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// UnknownCommand reports a name that does not resolve in the registry.
func UnknownCommand(name string, hints ...string) error {
	return &Error{
		Kind:     KindUnknownCommand,
		Message:  fmt.Sprintf("unknown command %q", name),
		Severity: SeverityWarning,
		Hints:    hints,
	}
}

// InvalidArguments reports arguments a command cannot accept.
func InvalidArguments(command, format string, args ...any) error {
	return &Error{
		Kind:     KindInvalidArguments,
		Command:  command,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
	}
}

// GenerationFailure reports that a command failed to produce its output.
func GenerationFailure(command string, err error) error {
	return &Error{
		Kind:     KindGenerationFailure,
		Command:  command,
		Err:      err,
		Severity: SeverityError,
	}
}

// Cancelled reports a request abandoned before it completed.
func Cancelled(command string) error {
	return &Error{
		Kind:     KindCancelled,
		Command:  command,
		Err:      context.Canceled,
		Severity: SeverityInfo,
	}
}

// ContextUnavailable reports a collaborator that could not be resolved.
func ContextUnavailable(command, what string) error {
	return &Error{
		Kind:     KindContextUnavailable,
		Command:  command,
		Message:  what + " is unavailable",
		Severity: SeverityError,
	}
}

// KindOf returns the kind of err, or "" for nil and unclassified errors.
// Context cancellation and deadlines count as KindCancelled.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return ""
}

// classify turns an arbitrary error returned by a command into an *Error.
func classify(command string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Command == "" {
			clone := *e
			clone.Command = command
			return &clone
		}
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCancelled, Command: command, Err: err, Severity: SeverityInfo}
	}
	return GenerationFailure(command, err)
}
