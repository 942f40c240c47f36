package sdk

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when a tool result contains no content items.
var ErrNoContent = errors.New("pacer: empty tool result")

// ToolError is returned when a tool call returns an error result. Message is
// the server's user-facing explanation.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("pacer: tool %s: %s", e.Tool, e.Message)
}
