package events

import (
	"context"
	"fmt"
	"sync"
)

// Wildcard registers a handler for every event type.
const Wildcard = "*"

// HandlerFunc handles a domain event.
type HandlerFunc func(ctx context.Context, event DomainEvent) error

// Registration binds a named handler to event types.
type Registration struct {
	Name       string
	EventTypes []string
	Handler    HandlerFunc
}

// Dispatcher fans events out to registered handlers, in registration order.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Registration
	// ContinueOnError runs every handler and collects failures instead of
	// stopping at the first one.
	ContinueOnError bool
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]Registration)}
}

// Register adds a handler.
func (d *Dispatcher) Register(reg Registration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range reg.EventTypes {
		d.handlers[t] = append(d.handlers[t], reg)
	}
}

// RegisterHandler is shorthand for Register.
func (d *Dispatcher) RegisterHandler(name string, handler HandlerFunc, eventTypes ...string) {
	d.Register(Registration{Name: name, Handler: handler, EventTypes: eventTypes})
}

// Dispatch runs the handlers for the event's type, then wildcard handlers.
func (d *Dispatcher) Dispatch(ctx context.Context, event DomainEvent) error {
	d.mu.RLock()
	regs := append(append([]Registration(nil), d.handlers[event.EventType()]...), d.handlers[Wildcard]...)
	d.mu.RUnlock()

	var errs []error
	for _, reg := range regs {
		if err := reg.Handler(ctx, event); err != nil {
			err = fmt.Errorf("handler %s failed for event %s: %w", reg.Name, event.EventType(), err)
			if !d.ContinueOnError {
				return err
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &DispatchError{Errors: errs}
	}
	return nil
}

// DispatchAll dispatches events in order.
func (d *Dispatcher) DispatchAll(ctx context.Context, evs ...DomainEvent) error {
	for _, e := range evs {
		if err := d.Dispatch(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// HandlerCount returns how many handlers an event type reaches, wildcards included.
func (d *Dispatcher) HandlerCount(eventType string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := len(d.handlers[eventType])
	if eventType != Wildcard {
		n += len(d.handlers[Wildcard])
	}
	return n
}

// DispatchError collects handler failures when ContinueOnError is set.
type DispatchError struct {
	Errors []error
}

func (e *DispatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple dispatch errors (%d)", len(e.Errors))
}

// Unwrap exposes every handler error to errors.Is and errors.As.
func (e *DispatchError) Unwrap() []error {
	return e.Errors
}
