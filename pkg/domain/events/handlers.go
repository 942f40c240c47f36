package events

import (
	"context"
	"log/slog"
)

// LoggingHandler logs every event at debug level.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler. A nil logger uses slog.Default.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger}
}

// Handle logs the event.
func (h *LoggingHandler) Handle(ctx context.Context, event DomainEvent) error {
	h.logger.DebugContext(ctx, "domain event",
		"event_type", event.EventType(),
		"aggregate_id", event.AggregateID(),
		"occurred_at", event.OccurredAt())
	return nil
}

// Registration returns the wildcard registration for this handler.
func (h *LoggingHandler) Registration() Registration {
	return Registration{Name: "LoggingHandler", Handler: h.Handle, EventTypes: []string{Wildcard}}
}

// SlipWarningHandler raises unschedulable and slipping tasks to warnings so
// they reach the operator even at the default log level.
type SlipWarningHandler struct {
	logger *slog.Logger
}

// NewSlipWarningHandler creates a SlipWarningHandler.
func NewSlipWarningHandler(logger *slog.Logger) *SlipWarningHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlipWarningHandler{logger: logger}
}

// Handle logs the task and its reason or extension.
func (h *SlipWarningHandler) Handle(ctx context.Context, event DomainEvent) error {
	e, ok := event.(*Event)
	if !ok {
		return nil
	}
	switch e.Type {
	case EventTypeTaskUnschedulable:
		h.logger.WarnContext(ctx, "task could not be scheduled",
			"user_id", e.UserID, "goal_id", e.GoalID,
			"task_id", e.Payload["task_id"], "reason", e.Payload["reason"])
	case EventTypeTaskMustSlip:
		h.logger.WarnContext(ctx, "task will miss its deadline",
			"user_id", e.UserID, "goal_id", e.GoalID,
			"task_id", e.Payload["task_id"], "extension", e.Payload["extension"])
	}
	return nil
}

// Registration returns the registration for this handler.
func (h *SlipWarningHandler) Registration() Registration {
	return Registration{
		Name:       "SlipWarningHandler",
		Handler:    h.Handle,
		EventTypes: []string{EventTypeTaskUnschedulable, EventTypeTaskMustSlip},
	}
}

// AuditHandler appends every event to a Store.
type AuditHandler struct {
	store Store
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(store Store) *AuditHandler {
	return &AuditHandler{store: store}
}

// Handle persists *Event values; other DomainEvent implementations are skipped.
func (h *AuditHandler) Handle(_ context.Context, event DomainEvent) error {
	e, ok := event.(*Event)
	if !ok || h.store == nil {
		return nil
	}
	return h.store.Append(e)
}

// Registration returns the wildcard registration for this handler.
func (h *AuditHandler) Registration() Registration {
	return Registration{Name: "AuditHandler", Handler: h.Handle, EventTypes: []string{Wildcard}}
}
