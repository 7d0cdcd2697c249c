package slash

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/network-plane/slash/internal/event"
	"github.com/network-plane/slash/internal/logging"
)

// Invocation is one request to run a command.
type Invocation struct {
	// ID is assigned by Execute.
	ID            string
	Name          string
	Arguments     []string
	PriorSections []AnchoredSection
	Snapshot      Snapshot
	Workspace     *WorkspaceHandle
	Language      LanguageService
	// Cancel may be pre-set; a nil token is replaced by a fresh one.
	Cancel *CancelToken
}

// String renders the invocation as it would be typed.
func (inv Invocation) String() string {
	if len(inv.Arguments) == 0 {
		return Prefix + inv.Name
	}
	return Prefix + inv.Name + " " + JoinArguments(inv.Arguments)
}

// Middleware wraps command execution with cross-cutting logic.
type Middleware func(ctx context.Context, inv *Invocation, cmd Command, next NextFunc) (Output, error)

// NextFunc represents the next handler in the middleware chain.
type NextFunc func(ctx context.Context, inv *Invocation) (Output, error)

// Engine dispatches invocations to registered commands and runs them
// asynchronously.
type Engine struct {
	registry   *Registry
	completer  *Completer
	tasks      *TaskManager
	bus        *event.Bus
	log        zerolog.Logger
	middleware []Middleware
	taskLimit  int
}

// Option configures the engine.
type Option func(*Engine)

// WithRegistry uses an existing registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithMiddleware appends middleware functions.
func WithMiddleware(mw ...Middleware) Option {
	return func(e *Engine) {
		e.middleware = append(e.middleware, mw...)
	}
}

// WithBus publishes lifecycle events on bus.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLogger overrides the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithTaskLimit bounds how many finished executions the task manager keeps.
func WithTaskLimit(n int) Option {
	return func(e *Engine) { e.taskLimit = n }
}

// NewEngine constructs an Engine with defaults.
func NewEngine(options ...Option) *Engine {
	e := &Engine{
		registry:  NewRegistry(),
		log:       logging.Component("engine"),
		taskLimit: 100,
	}
	e.middleware = []Middleware{RecoveryMiddleware}
	for _, opt := range options {
		opt(e)
	}
	e.tasks = NewTaskManager(e.taskLimit)
	e.completer = NewCompleter(e.registry, e.bus)
	e.completer.log = e.log.With().Str("component", "completion").Logger()
	return e
}

// Registry exposes the command registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Completer exposes the completion engine.
func (e *Engine) Completer() *Completer { return e.completer }

// Tasks exposes the task manager tracking executions.
func (e *Engine) Tasks() *TaskManager { return e.tasks }

// Bus returns the lifecycle bus, which may be nil.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Register adds commands to the registry.
func (e *Engine) Register(cmds ...Command) error {
	for _, cmd := range cmds {
		if err := e.registry.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch resolves name and checks the argument requirement.
func (e *Engine) Dispatch(name string, args []string) (Command, error) {
	cmd, err := e.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	if cmd.RequiresArgument() && len(args) == 0 {
		return nil, InvalidArguments(name, "requires an argument (usage: %s)", FormatUsage(cmd, nil))
	}
	return cmd, nil
}

// Execute dispatches inv and starts the command on its own goroutine.
// Dispatch failures are returned directly; everything afterwards is reported
// through the returned Execution. The execution stops early when ctx is done
// or the invocation token is set.
func (e *Engine) Execute(ctx context.Context, inv Invocation) (*Execution, error) {
	cmd, err := e.Dispatch(inv.Name, inv.Arguments)
	if err != nil {
		e.log.Debug().Err(err).Str("command", inv.Name).Msg("dispatch rejected")
		return nil, err
	}
	if inv.Cancel == nil {
		inv.Cancel = NewCancelToken()
	}
	inv.Arguments = append([]string(nil), inv.Arguments...)
	if inv.Snapshot == nil {
		inv.Snapshot = StaticSnapshot("")
	}

	exec := &Execution{
		Task:   newTask[Output](inv.Name, inv.Cancel),
		events: newEventLog(),
	}
	inv.ID = exec.ID()
	exec.invocation = inv

	e.tasks.Track(exec)
	e.publish(event.Event{Type: event.CommandStarted, Invocation: inv.ID, Command: inv.Name})

	handler := e.chain(cmd)
	exec.start(func() (out Output, err error) {
		state := &streamState{log: exec.events}
		runCtx, cancel := inv.Cancel.Bind(context.WithValue(ctx, streamKey{}, state))
		defer cancel()
		started := time.Now()
		defer func() {
			if r := recover(); r != nil {
				out, err = Output{}, GenerationFailure(inv.Name, fmt.Errorf("panic: %v", r))
			}
			if err == nil && !state.emitted.Load() {
				var events []Event
				if events, err = out.Events(); err == nil {
					exec.events.push(events...)
				} else {
					out, err = Output{}, GenerationFailure(inv.Name, err)
				}
			}
			exec.events.close(err)
			e.finish(inv, started, err)
		}()
		out, err = handler(runCtx, &inv)
		return out, classify(inv.Name, err)
	})
	return exec, nil
}

// Run executes an invocation and waits for its output.
func (e *Engine) Run(ctx context.Context, inv Invocation) (Output, error) {
	exec, err := e.Execute(ctx, inv)
	if err != nil {
		return Output{}, err
	}
	return exec.Await(ctx)
}

// Complete requests argument completions for a command outside any input site.
func (e *Engine) Complete(ctx context.Context, name string, req CompletionRequest) *Task[[]ArgumentCompletion] {
	return e.completer.Complete(ctx, name, req)
}

func (e *Engine) finish(inv Invocation, started time.Time, err error) {
	ev := event.Event{
		Invocation: inv.ID,
		Command:    inv.Name,
		DurationMS: time.Since(started).Milliseconds(),
	}
	switch {
	case err == nil:
		ev.Type = event.CommandSucceeded
		ev.Status = string(TaskSucceeded)
	case KindOf(err) == KindCancelled:
		ev.Type = event.CommandCancelled
		ev.Status = string(TaskCancelled)
	default:
		ev.Type = event.CommandFailed
		ev.Status = string(TaskFailed)
		ev.Error = err.Error()
	}
	e.log.Debug().Str("command", inv.Name).Str("invocation", inv.ID).Str("status", ev.Status).Msg("execution finished")
	e.publish(ev)
}

func (e *Engine) publish(ev event.Event) {
	if err := e.bus.Publish(ev); err != nil {
		e.log.Debug().Err(err).Str("type", string(ev.Type)).Msg("publish failed")
	}
}

func (e *Engine) chain(cmd Command) NextFunc {
	h := e.coreHandler(cmd)
	for i := len(e.middleware) - 1; i >= 0; i-- {
		mw := e.middleware[i]
		next := h
		h = func(ctx context.Context, inv *Invocation) (Output, error) {
			return mw(ctx, inv, cmd, next)
		}
	}
	return h
}

func (e *Engine) coreHandler(cmd Command) NextFunc {
	return func(ctx context.Context, inv *Invocation) (Output, error) {
		name := cmd.Name()
		if inv.Cancel.Cancelled() || ctx.Err() != nil {
			return Output{}, Cancelled(name)
		}
		req := RunRequest{
			Arguments:     inv.Arguments,
			PriorSections: inv.PriorSections,
			Snapshot:      inv.Snapshot,
			Workspace:     inv.Workspace,
			Language:      inv.Language,
			Cancel:        inv.Cancel,
		}
		if s, ok := cmd.(Streamer); ok {
			return stream(ctx, name, s, req)
		}
		out, err := cmd.Run(ctx, req)
		if err != nil {
			return Output{}, err
		}
		if err := out.Validate(); err != nil {
			return Output{}, GenerationFailure(name, err)
		}
		return out, nil
	}
}

func stream(ctx context.Context, name string, s Streamer, req RunRequest) (Output, error) {
	state, _ := ctx.Value(streamKey{}).(*streamState)
	var c Collector
	w := NewStreamWriter(func(ev Event) error {
		if err := c.Push(ev); err != nil {
			return GenerationFailure(name, err)
		}
		if state != nil {
			state.emitted.Store(true)
			state.log.push(ev)
		}
		return nil
	})
	if err := s.Stream(ctx, req, w); err != nil {
		return Output{}, err
	}
	out, err := c.Output()
	if err != nil {
		return Output{}, GenerationFailure(name, err)
	}
	return out, nil
}

type streamKey struct{}

type streamState struct {
	log     *eventLog
	emitted atomic.Bool
}

// streamed reports whether the execution behind ctx already emitted events.
func streamed(ctx context.Context) bool {
	state, ok := ctx.Value(streamKey{}).(*streamState)
	return ok && state.emitted.Load()
}

// Execution is a running or finished invocation.
type Execution struct {
	*Task[Output]
	invocation Invocation
	events     *eventLog
}

// Invocation returns the invocation as dispatched, with its ID set.
func (x *Execution) Invocation() Invocation { return x.invocation }

// Events replays the events emitted so far and follows new ones. The channel
// closes when the execution finishes or ctx is done; Await then reports the
// outcome.
func (x *Execution) Events(ctx context.Context) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		next := 0
		for {
			batch, done, wait := x.events.since(next)
			for _, ev := range batch {
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
			next += len(batch)
			if done {
				return
			}
			select {
			case <-wait:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
	done   bool
	err    error
	notify chan struct{}
}

func newEventLog() *eventLog {
	return &eventLog{notify: make(chan struct{})}
}

func (l *eventLog) push(evs ...Event) {
	if len(evs) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return
	}
	l.events = append(l.events, evs...)
	close(l.notify)
	l.notify = make(chan struct{})
}

func (l *eventLog) close(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return
	}
	l.done = true
	l.err = err
	close(l.notify)
}

func (l *eventLog) since(i int) ([]Event, bool, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var batch []Event
	if i < len(l.events) {
		batch = append(batch, l.events[i:]...)
	}
	return batch, l.done, l.notify
}

// Default middleware ---------------------------------------------------------

// RecoveryMiddleware turns panics in commands into generation failures.
func RecoveryMiddleware(ctx context.Context, inv *Invocation, cmd Command, next NextFunc) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = Output{}, GenerationFailure(cmd.Name(), fmt.Errorf("command panicked: %v", r))
		}
	}()
	return next(ctx, inv)
}

// TimingMiddleware logs execution duration.
func TimingMiddleware(ctx context.Context, inv *Invocation, cmd Command, next NextFunc) (Output, error) {
	start := time.Now()
	out, err := next(ctx, inv)
	level := zerolog.DebugLevel
	if err != nil {
		level = zerolog.InfoLevel
	}
	logging.Logger.WithLevel(level).Err(err).
		Str("command", cmd.Name()).
		Str("invocation", inv.ID).
		Dur("duration", time.Since(start)).
		Int("bytes", len(out.Text)).
		Int("sections", len(out.Sections)).
		Msg("command finished")
	return out, err
}

// RetryMiddleware re-runs a command after a GenerationFailure, up to
// maxRetries times with exponential backoff. Other failures, and failures
// after output was already streamed, are returned immediately.
func RetryMiddleware(maxRetries uint64, initial time.Duration) Middleware {
	return func(ctx context.Context, inv *Invocation, cmd Command, next NextFunc) (Output, error) {
		exp := backoff.NewExponentialBackOff()
		if initial > 0 {
			exp.InitialInterval = initial
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(exp, maxRetries), ctx)

		var out Output
		op := func() error {
			var err error
			out, err = next(ctx, inv)
			if err == nil {
				return nil
			}
			err = classify(cmd.Name(), err)
			if KindOf(err) != KindGenerationFailure || streamed(ctx) || inv.Cancel.Cancelled() {
				return backoff.Permanent(err)
			}
			logging.Debug().Err(err).Str("command", cmd.Name()).Str("invocation", inv.ID).Msg("retrying")
			return err
		}
		if err := backoff.Retry(op, policy); err != nil {
			return Output{}, err
		}
		return out, nil
	}
}

// TimeoutMiddleware cancels executions that run longer than d.
func TimeoutMiddleware(d time.Duration) Middleware {
	return func(ctx context.Context, inv *Invocation, cmd Command, next NextFunc) (Output, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		out, err := next(ctx, inv)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Output{}, &Error{
				Kind:     KindCancelled,
				Command:  cmd.Name(),
				Message:  fmt.Sprintf("timed out after %s", d),
				Err:      context.DeadlineExceeded,
				Severity: SeverityWarning,
			}
		}
		return out, err
	}
}
