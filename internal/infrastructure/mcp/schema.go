package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
)

// SchemaVersion is the current MCP tool schema version (semver).
const SchemaVersion = "1.0.0"

const schemaURI = "pacer://schema"

type schemaResponse struct {
	SchemaVersion string   `json:"schema_version"`
	ServerVersion string   `json:"server_version"`
	ChangeKinds   []string `json:"change_kinds"`
	Tools         []string `json:"tools"`
}

func (s *Server) schema() schemaResponse {
	resp := schemaResponse{
		SchemaVersion: SchemaVersion,
		ServerVersion: Version,
		ChangeKinds: []string{
			adapt.KindTaskAdded, adapt.KindTaskRemoved, adapt.KindDeadlineChanged,
			adapt.KindEffortReestimated, adapt.KindDependenciesChanged,
			adapt.KindTaskMarkedOverdue, adapt.KindTaskCompleted,
		},
	}
	for _, t := range s.mcpServer.Tools() {
		resp.Tools = append(resp.Tools, t.Name)
	}
	return resp
}

func (s *Server) registerSchemaResource() {
	s.mcpServer.Resource(schemaURI).
		Name(schemaURI).
		Description("Tool schema version and the change kinds pacer_adjust_schedule accepts").
		MimeType("application/json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			data, err := json.Marshal(s.schema())
			if err != nil {
				return nil, err
			}
			return &mcplib.ResourceContent{
				URI:      schemaURI,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}
