package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockEvent struct {
	eventType string
}

func (e mockEvent) EventType() string     { return e.eventType }
func (e mockEvent) AggregateID() string   { return "u1/g1" }
func (e mockEvent) AggregateType() string { return AggregateTypeGoal }
func (e mockEvent) OccurredAt() time.Time { return time.Time{} }

func TestDispatcher_Register(t *testing.T) {
	d := NewDispatcher()

	called := false
	d.RegisterHandler("test-handler", func(ctx context.Context, event DomainEvent) error {
		called = true
		return nil
	}, "test.event")

	if d.HandlerCount("test.event") != 1 {
		t.Errorf("HandlerCount = %d, want 1", d.HandlerCount("test.event"))
	}
	if err := d.Dispatch(context.Background(), mockEvent{"test.event"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestDispatcher_MultipleEventTypes(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	d.Register(Registration{
		Name:       "multi",
		Handler:    func(context.Context, DomainEvent) error { calls++; return nil },
		EventTypes: []string{"event.a", "event.b"},
	})

	err := d.DispatchAll(context.Background(), mockEvent{"event.a"}, mockEvent{"event.b"}, mockEvent{"event.c"})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDispatcher_WildcardRunsAfterSpecific(t *testing.T) {
	d := NewDispatcher()
	var order []string
	d.RegisterHandler("all", func(context.Context, DomainEvent) error {
		order = append(order, "all")
		return nil
	}, Wildcard)
	d.RegisterHandler("specific", func(context.Context, DomainEvent) error {
		order = append(order, "specific")
		return nil
	}, "x")

	if err := d.Dispatch(context.Background(), mockEvent{"x"}); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "specific" || order[1] != "all" {
		t.Errorf("order = %v", order)
	}
	if d.HandlerCount("x") != 2 {
		t.Errorf("HandlerCount(x) = %d, want 2", d.HandlerCount("x"))
	}
}

func TestDispatcher_StopsOnError(t *testing.T) {
	d := NewDispatcher()
	boom := errors.New("boom")
	second := false
	d.RegisterHandler("first", func(context.Context, DomainEvent) error { return boom }, "x")
	d.RegisterHandler("second", func(context.Context, DomainEvent) error { second = true; return nil }, "x")

	err := d.Dispatch(context.Background(), mockEvent{"x"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if second {
		t.Error("second handler should not run")
	}
}

func TestDispatcher_ContinueOnError(t *testing.T) {
	d := NewDispatcher()
	d.ContinueOnError = true
	e1, e2 := errors.New("one"), errors.New("two")
	d.RegisterHandler("a", func(context.Context, DomainEvent) error { return e1 }, "x")
	d.RegisterHandler("b", func(context.Context, DomainEvent) error { return e2 }, "x")

	err := d.Dispatch(context.Background(), mockEvent{"x"})
	var de *DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("err = %T, want *DispatchError", err)
	}
	if len(de.Errors) != 2 {
		t.Errorf("len(Errors) = %d, want 2", len(de.Errors))
	}
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Error("DispatchError should unwrap to both errors")
	}
}
