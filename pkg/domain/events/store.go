package events

// Store persists events in append order.
type Store interface {
	// Append chains the event to the previous one and writes it.
	Append(event *Event) error
	// LoadAll returns every event in append order.
	LoadAll() ([]*Event, error)
	// LoadByGoal returns the events of one user's goal.
	LoadByGoal(userID, goalID string) ([]*Event, error)
}
