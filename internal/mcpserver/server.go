// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala record tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/recordservice"
)

const recordKindsURI = "othala://record-kinds"

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp *server.MCPServer
	svc *recordservice.Service
}

// New creates a new MCP server with all Othala tools registered.
func New(svc *recordservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Othala",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	kindParam := mcp.WithString("kind", mcp.Required(), mcp.Description("Record kind (see list_kinds)"))

	s.mcp.AddTool(mcp.NewTool("list_kinds",
		mcp.WithDescription("List the record kinds and the labels they use."),
	), s.listKinds)

	s.mcp.AddTool(mcp.NewTool("create_record",
		mcp.WithDescription("Create a record under a base. Read the "+recordKindsURI+" resource "+
			"for the payload fields of each kind."),
		kindParam,
		mcp.WithString("base", mcp.Required(), mcp.Description("Base key grouping the record, e.g. project-1")),
		mcp.WithString("payload", mcp.Required(), mcp.Description("Payload as a JSON object")),
	), s.createRecord)

	s.mcp.AddTool(mcp.NewTool("read_record",
		mcp.WithDescription("Read a record by its address."),
		kindParam,
		mcp.WithString("id", mcp.Required(), mcp.Description("Record address")),
		mcp.WithString("created_at", mcp.Required(), mcp.Description("Creation timestamp (RFC 3339), echoed in the result")),
	), s.readRecord)

	s.mcp.AddTool(mcp.NewTool("update_record",
		mcp.WithDescription("Write a new version of a record. Returns the new handle; the old one stops working."),
		kindParam,
		mcp.WithString("id", mcp.Required(), mcp.Description("Address of the live version")),
		mcp.WithString("created_at", mcp.Required(), mcp.Description("Timestamp of the live version")),
		mcp.WithString("address", mcp.Description("Address of the superseded content, defaults to id")),
		mcp.WithString("payload", mcp.Required(), mcp.Description("New payload as a JSON object")),
	), s.updateRecord)

	s.mcp.AddTool(mcp.NewTool("delete_record",
		mcp.WithDescription("Remove a record from a base."),
		kindParam,
		mcp.WithString("base", mcp.Required(), mcp.Description("Base key the record is listed under")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record address")),
		mcp.WithString("created_at", mcp.Required(), mcp.Description("Record timestamp")),
		mcp.WithString("address", mcp.Description("Entry to remove, defaults to id")),
	), s.deleteRecord)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List the live records under a base, oldest first."),
		kindParam,
		mcp.WithString("base", mcp.Required(), mcp.Description("Base key")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("rebase_record",
		mcp.WithDescription("Move a record from one base to another, keeping its id and timestamp."),
		kindParam,
		mcp.WithString("base_from", mcp.Required(), mcp.Description("Current base")),
		mcp.WithString("base_to", mcp.Required(), mcp.Description("Destination base")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record address")),
		mcp.WithString("created_at", mcp.Required(), mcp.Description("Record timestamp")),
	), s.rebaseRecord)

	s.mcp.AddTool(mcp.NewTool("list_anchor_types",
		mcp.WithDescription("List the anchor types in use (one per record kind that has records)."),
	), s.listAnchorTypes)

	s.mcp.AddTool(mcp.NewTool("list_anchor_tags",
		mcp.WithDescription("List the bases in use under an anchor type, e.g. tasks."),
		mcp.WithString("anchor_type", mcp.Required(), mcp.Description("Anchor type")),
	), s.listAnchorTags)

	s.mcp.AddTool(mcp.NewTool("list_anchor_type_addresses",
		mcp.WithDescription("List the addresses of the type anchors, one per anchor type in use."),
	), s.listAnchorTypeAddresses)

	s.mcp.AddTool(mcp.NewTool("list_anchor_addresses",
		mcp.WithDescription("List the addresses of the base anchors under an anchor type."),
		mcp.WithString("anchor_type", mcp.Required(), mcp.Description("Anchor type")),
	), s.listAnchorAddresses)

	s.mcp.AddTool(mcp.NewTool("agent_address",
		mcp.WithDescription("Return the address of the serving agent."),
	), s.agentAddress)

	// Resource: record kinds contract.
	s.mcp.AddResource(
		mcp.NewResource(recordKindsURI, "Record Kinds",
			mcp.WithResourceDescription("Record kinds, their payload fields, and handle rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordKindsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) collection(req mcp.CallToolRequest) (recordservice.Collection, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return nil, err
	}
	return s.svc.Collection(kind)
}

func (s *Server) listKinds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Describe())
}

func (s *Server) createRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	base, err := req.RequireString("base")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := req.RequireString("payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := c.Create(ctx, base, json.RawMessage(payload))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec)
}

func (s *Server) readRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	createdAt, err := req.RequireString("created_at")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := c.Read(ctx, models.Address(id), models.Timestamp(createdAt))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec)
}

func (s *Server) updateRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	createdAt, err := req.RequireString("created_at")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := req.RequireString("payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	address := req.GetString("address", id)
	rec, err := c.Update(ctx, models.Address(id), models.Timestamp(createdAt), models.Address(address), json.RawMessage(payload))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec)
}

func (s *Server) deleteRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	base, err := req.RequireString("base")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	createdAt, err := req.RequireString("created_at")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	address := req.GetString("address", id)
	removed, err := c.Delete(ctx, base, models.Address(id), models.Timestamp(createdAt), models.Address(address))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", removed)), nil
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	base, err := req.RequireString("base")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recs, err := c.List(ctx, base)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recs)
}

func (s *Server) rebaseRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := req.RequireString("base_from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("base_to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	createdAt, err := req.RequireString("created_at")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	moved, err := c.Rebase(ctx, from, to, models.Address(id), models.Timestamp(createdAt))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("rebased: %s", moved)), nil
}

func (s *Server) listAnchorTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	types, err := s.svc.ListAnchorTypes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(types)
}

func (s *Server) listAnchorTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("anchor_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, err := s.svc.ListAnchorTags(ctx, typ)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags)
}

func (s *Server) listAnchorTypeAddresses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	addrs, err := s.svc.ListAnchorTypeAddresses(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(addrs)
}

func (s *Server) listAnchorAddresses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("anchor_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	addrs, err := s.svc.ListAnchorAddresses(ctx, typ)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(addrs)
}

func (s *Server) agentAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.svc.AgentAddress().String()), nil
}

func (s *Server) readRecordKindsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      recordKindsURI,
			MIMEType: "text/markdown",
			Text:     RecordKindsContract,
		},
	}, nil
}
