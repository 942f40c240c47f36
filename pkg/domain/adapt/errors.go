package adapt

import "errors"

// Adapter errors.
var (
	// ErrUnknownTask indicates a change names a task the graph does not hold.
	ErrUnknownTask = errors.New("unknown task")
	// ErrUnknownChange indicates a change variant the adapter cannot apply.
	ErrUnknownChange = errors.New("unknown change")
	// ErrInvalidChange indicates a change is missing required data.
	ErrInvalidChange = errors.New("invalid change")
)
