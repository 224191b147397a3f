package ruleserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/rulegraph/internal/infer"
	"github.com/MrWong99/rulegraph/internal/observe"
	"github.com/MrWong99/rulegraph/internal/persist"
)

// defaultSearchLimit caps search results when the caller sets no limit.
const defaultSearchLimit = 20

type searchArgs struct {
	Query string `json:"query" jsonschema:"keyword or phrase matched against entity names, ids, descriptions and formulas"`
	Kind  string `json:"kind,omitempty" jsonschema:"restrict results to one kind: Attribute, DerivedValue, Mechanic or Keyword"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 20"`
}

type searchResult struct {
	Entities []persist.Record `json:"entities"`
	Total    int              `json:"total"`
}

type getArgs struct {
	ID   string `json:"id,omitempty" jsonschema:"entity id such as urn:ttrpg:derivedvalue:res"`
	Name string `json:"name,omitempty" jsonschema:"entity display name, used when id is empty"`
}

type entityDetail struct {
	Entity       persist.Record   `json:"entity"`
	DependedOnBy []string         `json:"dependedOnBy"`
	ModifiedBy   []string         `json:"modifiedBy"`
	Dangling     []infer.Dangling `json:"dangling"`
}

type danglingArgs struct {
	Term         string `json:"term,omitempty" jsonschema:"only references to this term"`
	ReferencedBy string `json:"referencedBy,omitempty" jsonschema:"only references made by this entity id"`
}

type danglingResult struct {
	References []infer.Dangling `json:"references"`
}

func (s *Server) registerTools(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_rule_graph",
		Description: "Search the rule graph by keyword. Exact name matches rank first, then name matches, then matches in the id, description or formula.",
	}, instrument(s, "search_rule_graph", s.search))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_rule_entity",
		Description: "Get one rule graph entity by id or name, together with the entities that depend on or modify it and the dangling references it makes.",
	}, instrument(s, "get_rule_entity", s.get))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_dangling",
		Description: "List dangling references: terms used in the rulebook that name no known entity.",
	}, instrument(s, "list_dangling", s.listDangling))
}

// instrument wraps a tool handler with a span and tool call metrics.
func instrument[In, Out any](s *Server, name string, h mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		ctx, span := observe.StartSpan(ctx, "rulegraph.tool."+name)

		start := time.Now()
		res, out, err := h(ctx, req, in)
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordToolCall(ctx, name, status, time.Since(start))
		observe.EndSpan(span, err)
		return res, out, err
	}
}

func (s *Server) search(_ context.Context, _ *mcp.CallToolRequest, a searchArgs) (*mcp.CallToolResult, searchResult, error) {
	if a.Query == "" {
		return nil, searchResult{}, errors.New("search_rule_graph: query must not be empty")
	}
	limit := a.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	matches := s.current().search(a.Query, a.Kind)
	out := searchResult{Entities: matches, Total: len(matches)}
	if len(out.Entities) > limit {
		out.Entities = out.Entities[:limit]
	}
	if out.Entities == nil {
		out.Entities = []persist.Record{}
	}
	return nil, out, nil
}

func (s *Server) get(_ context.Context, _ *mcp.CallToolRequest, a getArgs) (*mcp.CallToolResult, entityDetail, error) {
	snap := s.current()

	var (
		rec persist.Record
		ok  bool
	)
	switch {
	case a.ID != "":
		rec, ok = snap.get(a.ID)
		if !ok {
			return nil, entityDetail{}, fmt.Errorf("get_rule_entity: entity %q not found", a.ID)
		}
	case a.Name != "":
		rec, ok = snap.byName(a.Name)
		if !ok {
			return nil, entityDetail{}, fmt.Errorf("get_rule_entity: no entity named %q", a.Name)
		}
	default:
		return nil, entityDetail{}, errors.New("get_rule_entity: id or name is required")
	}

	out := entityDetail{
		Entity:       rec,
		DependedOnBy: nonNil(snap.dependedBy[rec.ID]),
		ModifiedBy:   nonNil(snap.modifiedBy[rec.ID]),
		Dangling:     snap.danglingFor(rec.ID, ""),
	}
	return nil, out, nil
}

func (s *Server) listDangling(_ context.Context, _ *mcp.CallToolRequest, a danglingArgs) (*mcp.CallToolResult, danglingResult, error) {
	return nil, danglingResult{References: s.current().danglingFor(a.ReferencedBy, a.Term)}, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
