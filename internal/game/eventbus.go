package game

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler receives a defensively-copied event payload. Handlers must not
// mutate core state; emission is synchronous on the caller's goroutine.
type Handler func(data interface{})

// EventBus is an in-process pub/sub used internally for collision
// reporting; GameCore emits collision events on it and no join or leave
// events. It replaces the event-emitter-base-class shape a
// dynamic-language original would use (design note §9): GameCore embeds one
// as a plain value instead of inheriting from it.
type EventBus struct {
	mu       sync.Mutex
	global   []Handler
	group    map[string][]Handler
	targeted map[uuid.UUID][]Handler
	log      *logrus.Entry
}

// NewEventBus constructs an empty bus. log may be nil in tests.
func NewEventBus(log *logrus.Entry) *EventBus {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &EventBus{
		group:    make(map[string][]Handler),
		targeted: make(map[uuid.UUID][]Handler),
		log:      log.WithField("component", "eventbus"),
	}
}

// OnGlobal subscribes to every emitted event regardless of scope.
func (b *EventBus) OnGlobal(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, h)
}

// OnGroup subscribes to events emitted for a given group tag.
func (b *EventBus) OnGroup(tag string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.group[tag] = append(b.group[tag], h)
}

// OnTargeted subscribes to events emitted for a single playerId.
func (b *EventBus) OnTargeted(id uuid.UUID, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targeted[id] = append(b.targeted[id], h)
}

// EmitGlobal delivers data to every global subscriber.
func (b *EventBus) EmitGlobal(data interface{}) {
	b.deliver(b.snapshotGlobal(), data)
}

// EmitGroup delivers data to subscribers of the given group tag.
func (b *EventBus) EmitGroup(tag string, data interface{}) {
	b.deliver(b.snapshotGroup(tag), data)
}

// EmitTargeted delivers data to subscribers of a single playerId.
func (b *EventBus) EmitTargeted(id uuid.UUID, data interface{}) {
	b.deliver(b.snapshotTargeted(id), data)
}

func (b *EventBus) snapshotGlobal() []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Handler, len(b.global))
	copy(out, b.global)
	return out
}

func (b *EventBus) snapshotGroup(tag string) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Handler, len(b.group[tag]))
	copy(out, b.group[tag])
	return out
}

func (b *EventBus) snapshotTargeted(id uuid.UUID) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Handler, len(b.targeted[id]))
	copy(out, b.targeted[id])
	return out
}

// deliver invokes each handler, catching panics so one faulty subscriber
// (ListenerException, spec.md §7) cannot block delivery to the rest.
func (b *EventBus) deliver(handlers []Handler, data interface{}) {
	for _, h := range handlers {
		b.safeInvoke(h, data)
	}
}

func (b *EventBus) safeInvoke(h Handler, data interface{}) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("panic", r).Warn("event subscriber panicked, continuing delivery")
		}
	}()
	h(data)
}
