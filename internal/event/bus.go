// Package event publishes command lifecycle events over a watermill
// gochannel so that observers (the CLI, tests, loggers) can follow executions
// and completions without being wired into the engine.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/network-plane/slash/internal/logging"
)

// Topic is the single watermill topic all lifecycle events travel on, which
// keeps them in publish order for every subscriber.
const Topic = "slash.lifecycle"

// Type is the kind of lifecycle event.
type Type string

const (
	CommandStarted      Type = "command.started"
	CommandSucceeded    Type = "command.succeeded"
	CommandFailed       Type = "command.failed"
	CommandCancelled    Type = "command.cancelled"
	CompletionRequested Type = "completion.requested"
	CompletionCompleted Type = "completion.completed"
	CompletionCancelled Type = "completion.cancelled"
)

// Event is a lifecycle notification.
type Event struct {
	Type       Type      `json:"type"`
	Invocation string    `json:"invocation,omitempty"`
	Command    string    `json:"command"`
	Site       string    `json:"site,omitempty"`
	Status     string    `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Time       time.Time `json:"time"`
}

// ErrClosed is returned when publishing to or subscribing on a closed bus.
var ErrClosed = errors.New("event bus closed")

// Bus fans lifecycle events out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	pubsub *gochannel.GoChannel
	closed bool
}

// NewBus creates a bus backed by an in-process watermill gochannel.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            64,
				Persistent:                     false,
				BlockPublishUntilSubscriberAck: true,
			},
			watermill.NopLogger{},
		),
	}
}

// Publish sends ev to current subscribers. Events published with no
// subscribers are dropped.
func (b *Bus) Publish(ev Event) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(ev.Type))
	return b.pubsub.Publish(Topic, msg)
}

// Subscribe returns a channel receiving events of the given types, or every
// event when no type is given. The channel closes when ctx is done or the bus
// is closed. A subscriber that falls behind loses events rather than stalling
// publishers.
func (b *Bus) Subscribe(ctx context.Context, types ...Type) (<-chan Event, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrClosed
	}
	messages, err := b.pubsub.Subscribe(ctx, Topic)
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	want := make(map[Type]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	log := logging.Component("event")

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range messages {
			msg.Ack()
			if len(want) > 0 && !want[Type(msg.Metadata.Get("type"))] {
				continue
			}
			var ev Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				log.Warn().Err(err).Str("message", msg.UUID).Msg("dropping undecodable event")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			default:
				log.Warn().Str("type", string(ev.Type)).Msg("subscriber is full, event dropped")
			}
		}
	}()
	return out, nil
}

// Close shuts the bus down and closes every subscription.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
