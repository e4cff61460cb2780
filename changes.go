package confstore

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ChangeDescription records which fields of one schema changed during a load.
type ChangeDescription struct {
	Schema Schema
	Fields []string
}

// ChangeEvent aggregates every change description produced for one target
// object by one top-level load call. Load returns the event and also fans it
// out to registered hooks; no event exists when nothing changed.
type ChangeEvent struct {
	ID         uuid.UUID
	Target     any
	Changes    []ChangeDescription
	OccurredAt time.Time
}

// ChangedFields flattens the event into the union of changed field names, in
// description order.
func (e *ChangeEvent) ChangedFields() []string {
	if e == nil {
		return nil
	}
	var out []string
	for _, change := range e.Changes {
		out = append(out, change.Fields...)
	}
	return out
}

func (e *ChangeEvent) record(schema Schema, fields []string) {
	if len(fields) == 0 {
		return
	}
	e.Changes = append(e.Changes, ChangeDescription{Schema: schema, Fields: fields})
}

// Hook receives published change events.
type Hook interface {
	Notify(event ChangeEvent) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(event ChangeEvent) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(event ChangeEvent) error {
	if fn == nil {
		return nil
	}
	return fn(event)
}

// Hooks fans out events to zero or more hooks, returning a joined error if
// any fail. Dispatch is synchronous and in registration order.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

func (h Hooks) Notify(event ChangeEvent) error {
	if len(h) == 0 {
		return nil
	}
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func newChangeEvent(target any) *ChangeEvent {
	return &ChangeEvent{Target: target}
}

func (e *ChangeEvent) seal() {
	e.ID = uuid.New()
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
}
