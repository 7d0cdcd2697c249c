package slash

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"

	"github.com/network-plane/slash/internal/event"
	"github.com/network-plane/slash/internal/logging"
)

// SiteState is the completion state of one input site.
type SiteState string

const (
	SiteIdle      SiteState = "idle"
	SiteRequested SiteState = "requested"
	SiteCompleted SiteState = "completed"
	SiteCancelled SiteState = "cancelled"
)

type site struct {
	token *CancelToken
	seq   uint64
	state SiteState
}

// Completer runs argument completion. At most one computation is live per
// input site: a new request cancels the previous one first.
type Completer struct {
	registry *Registry
	bus      *event.Bus
	log      zerolog.Logger

	mu    sync.Mutex
	sites map[string]*site
}

// NewCompleter constructs a completer over registry. bus may be nil.
func NewCompleter(registry *Registry, bus *event.Bus) *Completer {
	return &Completer{
		registry: registry,
		bus:      bus,
		log:      logging.Component("completion"),
		sites:    map[string]*site{},
	}
}

// Complete asks the named command for candidates using req as-is. The result
// is never nil on success. A token set before the command finishes turns the
// result into Cancelled.
func (c *Completer) Complete(ctx context.Context, name string, req CompletionRequest) *Task[[]ArgumentCompletion] {
	cmd, err := c.registry.Resolve(name)
	if err != nil {
		return Failed[[]ArgumentCompletion](name, err)
	}
	if req.Cancel == nil {
		req.Cancel = NewCancelToken()
	}
	req.Arguments = append([]string(nil), req.Arguments...)
	task := newTask[[]ArgumentCompletion](name, req.Cancel)
	task.start(func() ([]ArgumentCompletion, error) {
		return c.complete(ctx, cmd, req)
	})
	return task
}

func (c *Completer) complete(ctx context.Context, cmd Command, req CompletionRequest) ([]ArgumentCompletion, error) {
	name := cmd.Name()
	if req.Cancel.Cancelled() {
		return nil, Cancelled(name)
	}
	runCtx, cancel := req.Cancel.Bind(ctx)
	defer cancel()
	results, err := cmd.CompleteArgument(runCtx, req)
	if req.Cancel.Cancelled() {
		return nil, Cancelled(name)
	}
	if err != nil {
		return nil, classify(name, err)
	}
	if results == nil {
		results = []ArgumentCompletion{}
	}
	return results, nil
}

// Request issues a completion for an input site, superseding any request
// still outstanding there.
func (c *Completer) Request(ctx context.Context, siteID, name string, args []string, ws *WorkspaceHandle) *Task[[]ArgumentCompletion] {
	token := NewCancelToken()
	c.mu.Lock()
	s, ok := c.sites[siteID]
	if !ok {
		s = &site{state: SiteIdle}
		c.sites[siteID] = s
	}
	if s.token != nil {
		s.token.Cancel()
	}
	s.token = token
	s.seq++
	seq := s.seq
	s.state = SiteRequested
	c.mu.Unlock()

	c.publish(event.Event{Type: event.CompletionRequested, Command: name, Site: siteID})
	started := time.Now()

	cmd, err := c.registry.Resolve(name)
	if err != nil {
		c.finish(siteID, seq, name, started, err)
		return Failed[[]ArgumentCompletion](name, err)
	}
	req := CompletionRequest{
		Arguments: append([]string(nil), args...),
		Cancel:    token,
		Workspace: ws,
	}
	task := newTask[[]ArgumentCompletion](name, token)
	task.start(func() (results []ArgumentCompletion, err error) {
		defer func() { c.finish(siteID, seq, name, started, err) }()
		return c.complete(ctx, cmd, req)
	})
	return task
}

func (c *Completer) finish(siteID string, seq uint64, name string, started time.Time, err error) {
	state := SiteCompleted
	typ := event.CompletionCompleted
	if KindOf(err) == KindCancelled {
		state = SiteCancelled
		typ = event.CompletionCancelled
	}
	c.mu.Lock()
	if s, ok := c.sites[siteID]; ok && s.seq == seq {
		s.state = state
	}
	c.mu.Unlock()

	ev := event.Event{
		Type:       typ,
		Command:    name,
		Site:       siteID,
		DurationMS: time.Since(started).Milliseconds(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	c.publish(ev)
}

// Suggest is the UI-facing form of Request: any failure degrades to an empty
// list and is only logged.
func (c *Completer) Suggest(ctx context.Context, siteID, name string, args []string, ws *WorkspaceHandle) []ArgumentCompletion {
	task := c.Request(ctx, siteID, name, args, ws)
	results, err := task.Await(ctx)
	if err != nil {
		if ctx.Err() != nil {
			task.Cancel()
		}
		c.log.Debug().Err(err).Str("site", siteID).Str("command", name).Msg("completion failed")
		return []ArgumentCompletion{}
	}
	return results
}

// Cancel cancels whatever is outstanding for a site.
func (c *Completer) Cancel(siteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sites[siteID]; ok && s.token != nil {
		s.token.Cancel()
	}
}

// State reports the state of a site; unknown sites are idle.
func (c *Completer) State(siteID string) SiteState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sites[siteID]; ok {
		return s.state
	}
	return SiteIdle
}

// CompleteCommand offers command names matching prefix, best match first.
// Accepting a command that takes no arguments completes the invocation.
func (c *Completer) CompleteCommand(prefix string) []ArgumentCompletion {
	names := c.registry.Names()
	var matched []string
	if prefix == "" {
		matched = names
	} else {
		ranks := fuzzy.RankFindFold(prefix, names)
		sort.Stable(ranks)
		for _, r := range ranks {
			matched = append(matched, r.Target)
		}
	}
	out := make([]ArgumentCompletion, 0, len(matched))
	for _, name := range matched {
		cmd, ok := c.registry.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, ArgumentCompletion{
			Label:      name + "  " + cmd.MenuText(),
			NewText:    name,
			RunCommand: !AcceptsArguments(cmd),
		})
	}
	return out
}

func (c *Completer) publish(ev event.Event) {
	if err := c.bus.Publish(ev); err != nil {
		c.log.Debug().Err(err).Str("type", string(ev.Type)).Msg("publish failed")
	}
}
