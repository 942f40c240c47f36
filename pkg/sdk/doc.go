// Package sdk provides a typed Go client for the pacer MCP server.
//
// The client wraps mcp-go/client.CallTool with one method per pacer tool and
// retries transport failures via fortify. Results decode into the same types
// the application layer returns.
//
// Usage:
//
//	transport, _ := client.NewStdioTransport("pacer", "mcp")
//	c := sdk.NewClient(transport)
//	defer c.Close()
//
//	_, _ = c.Initialize(ctx)
//	goal, _ := c.CreateGoal(ctx, sdk.CreateGoalRequest{UserID: "alice", Title: "Ship v1", Deadline: deadline})
//	gen, _ := c.GenerateSchedule(ctx, "alice", goal.ID)
package sdk
