// Package events defines the domain events emitted around scheduling calls.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

// DomainEvent is the interface dispatched to handlers.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	AggregateType() string
	OccurredAt() time.Time
}

// Event types.
const (
	EventTypeGoalCreated       = "goal.created"
	EventTypeScheduleGenerated = "schedule.generated"
	EventTypeScheduleAdjusted  = "schedule.adjusted"
	EventTypeScheduleRecovered = "schedule.recovered"
	EventTypeTaskUnschedulable = "task.unschedulable"
	EventTypeTaskMustSlip      = "task.must_slip"
	EventTypeTaskTransitioned  = "task.transitioned"
)

// AggregateTypeGoal is the only aggregate: every event belongs to a goal.
const AggregateTypeGoal = "goal"

// Event is a recorded fact about one user's goal. Events are hash-chained in
// the order they are appended.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	UserID    string         `json:"user_id"`
	GoalID    string         `json:"goal_id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Payload   map[string]any `json:"payload,omitempty"`
	PrevHash  string         `json:"prev_hash,omitempty"`
	Hash      string         `json:"hash,omitempty"`
}

// New creates an event with a fresh ULID.
func New(eventType, userID, goalID, actor string, payload map[string]any) *Event {
	return &Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		UserID:    userID,
		GoalID:    goalID,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Payload:   payload,
	}
}

func (e *Event) EventType() string     { return e.Type }
func (e *Event) AggregateID() string   { return e.UserID + "/" + e.GoalID }
func (e *Event) AggregateType() string { return AggregateTypeGoal }
func (e *Event) OccurredAt() time.Time { return e.Timestamp }

// CalculateHash returns a deterministic SHA256 over the event and its predecessor's hash.
func (e *Event) CalculateHash() string {
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte(e.ID))
	h.Write([]byte(e.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(e.Type))
	h.Write([]byte(e.UserID))
	h.Write([]byte(e.GoalID))
	h.Write([]byte(e.Actor))
	h.Write([]byte(canonicalJSON(e.Payload)))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyChain reports the index of the first event whose hash or link is
// broken, or -1 when the chain is intact.
func VerifyChain(chain []*Event) int {
	prev := ""
	for i, e := range chain {
		if e.PrevHash != prev || e.Hash != e.CalculateHash() {
			return i
		}
		prev = e.Hash
	}
	return -1
}

func canonicalJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 256)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		keyJSON, _ := json.Marshal(k)
		valJSON, _ := json.Marshal(m[k])
		ordered = append(ordered, keyJSON...)
		ordered = append(ordered, ':')
		ordered = append(ordered, valJSON...)
	}
	ordered = append(ordered, '}')
	return string(ordered)
}
