package flux

import (
	"fmt"
	"slices"

	"github.com/goliatone/go-fluxmodels/internal/compare"
)

// EventKey identifies an event independently of its argument type. Events are
// compared by identity.
type EventKey interface {
	Name() string
	event()
}

// Handler receives an event emission. Handlers are compared by identity when
// subscribing and unsubscribing.
type Handler interface {
	Handle(this any, args any) error
}

// Registration subscribes itself on an events manager. Listeners are
// registrations; models collect them through Listen.
type Registration interface {
	Register(*EventsManager)
}

// Event is a typed event marker. A is the argument type passed to handlers.
type Event[A any] struct {
	name string
}

// NewEvent declares a new event. Two events with the same name are distinct.
func NewEvent[A any](name string) *Event[A] {
	if name == "" {
		name = "Event"
	}
	return &Event[A]{name: name}
}

// Name returns the label given to NewEvent.
func (e *Event[A]) Name() string {
	if e == nil {
		return ""
	}
	return e.name
}

func (e *Event[A]) String() string {
	return fmt.Sprintf("Event(%s)", e.Name())
}

func (*Event[A]) event() {}

// Handler wraps fn into a listener bound to e. The listener can be
// subscribed directly or passed to Listen when declaring a model.
func (e *Event[A]) Handler(fn func(this any, args A) error) *Listener[A] {
	return &Listener[A]{event: e, fn: fn}
}

// Listener is a typed handler bound to one event.
type Listener[A any] struct {
	event *Event[A]
	fn    func(this any, args A) error
}

// Event returns the event the listener is bound to.
func (l *Listener[A]) Event() *Event[A] {
	return l.event
}

// Handle calls the typed function. Arguments of another type arrive as the
// zero value of A.
func (l *Listener[A]) Handle(this any, args any) error {
	if l == nil || l.fn == nil {
		return nil
	}
	typed, _ := args.(A)
	return l.fn(this, typed)
}

// Register subscribes the listener to m.
func (l *Listener[A]) Register(m *EventsManager) {
	if l == nil {
		return
	}
	m.Subscribe(l.event, l)
}

// Unregister removes the listener from m.
func (l *Listener[A]) Unregister(m *EventsManager) {
	if l == nil {
		return
	}
	m.Unsubscribe(l.event, l)
}

// HandlerFunc adapts an untyped function to Handler. Function values cannot
// be compared, so keep the returned pointer to unsubscribe later.
type HandlerFunc struct {
	Fn func(this any, args any) error
}

// Handle calls Fn.
func (h *HandlerFunc) Handle(this any, args any) error {
	if h == nil || h.Fn == nil {
		return nil
	}
	return h.Fn(this, args)
}

// EventsManager dispatches events for a single state. Managers built for the
// same state share its handler registry.
type EventsManager struct {
	state    *State
	handlers map[EventKey][]Handler
}

// NewEventsManager returns a manager for state, attaching the state's
// registry on first use. A nil state yields a standalone manager.
func NewEventsManager(state *State) *EventsManager {
	if state == nil {
		return &EventsManager{handlers: map[EventKey][]Handler{}}
	}
	if state.handlers == nil {
		state.handlers = map[EventKey][]Handler{}
	}
	return &EventsManager{state: state, handlers: state.handlers}
}

// State returns the owning state.
func (m *EventsManager) State() *State {
	return m.state
}

// Subscribe adds handler to event. Subscribing the same handler twice is a
// no-op; nil arguments are ignored.
func (m *EventsManager) Subscribe(event EventKey, handler Handler) {
	if compare.IsNil(event) || compare.IsNil(handler) {
		return
	}
	list := m.handlers[event]
	if indexOfHandler(list, handler) >= 0 {
		return
	}
	m.handlers[event] = append(list, handler)
}

// Unsubscribe removes handler from event. Nil arguments are ignored.
func (m *EventsManager) Unsubscribe(event EventKey, handler Handler) {
	if compare.IsNil(event) || compare.IsNil(handler) {
		return
	}
	list := m.handlers[event]
	idx := indexOfHandler(list, handler)
	if idx < 0 {
		return
	}
	list = slices.Delete(slices.Clone(list), idx, idx+1)
	if len(list) == 0 {
		delete(m.handlers, event)
		return
	}
	m.handlers[event] = list
}

// Handlers lists the handlers subscribed to event in subscription order.
func (m *EventsManager) Handlers(event EventKey) []Handler {
	if compare.IsNil(event) {
		return nil
	}
	return slices.Clone(m.handlers[event])
}

// Emit invokes every handler subscribed to event in subscription order. this
// defaults to the owning state. The first handler error stops the emission
// and is returned.
func (m *EventsManager) Emit(event EventKey, args any, this any) error {
	if compare.IsNil(event) {
		return nil
	}
	list := m.handlers[event]
	if len(list) == 0 {
		return nil
	}
	if this == nil && m.state != nil {
		this = m.state
	}
	for _, handler := range slices.Clone(list) {
		if err := handler.Handle(this, args); err != nil {
			return err
		}
	}
	return nil
}

func indexOfHandler(list []Handler, handler Handler) int {
	for i, h := range list {
		if compare.Same(h, handler) {
			return i
		}
	}
	return -1
}
