package legalrag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/legalsearch/legalrag/schema"
)

// NewMCPServer exposes the analysis pipeline and knowledge base as MCP
// tools over the client.
func NewMCPServer(c *Client, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"legalrag",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("legalrag 法律案例智能分析：案例检索、法条查询与多步骤判决分析。"),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze-case",
			mcp.WithDescription("Run the multi-step analysis pipeline for a stored case and return the dual-audience result with citations."),
			mcp.WithString("case_id", mcp.Description("Case record id"), mcp.Required()),
		),
		mcpAnalyzeCase(c),
	)

	s.AddTool(
		mcp.NewTool("search-knowledge",
			mcp.WithDescription("Search the legal knowledge base across statutes, cases and judicial interpretations."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithString("knowledge_type", mcp.Description("Restrict to one type: statute, case or interpretation")),
			mcp.WithNumber("top_k", mcp.Description("Maximum results per type (default from configuration)")),
		),
		mcpSearchKnowledge(c),
	)

	s.AddTool(
		mcp.NewTool("ingest-statute",
			mcp.WithDescription("Store a statute article in the knowledge base."),
			mcp.WithString("law_name", mcp.Description("Law name, e.g. 劳动合同法"), mcp.Required()),
			mcp.WithString("article_number", mcp.Description("Article number, e.g. 第八十七条"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Article text"), mcp.Required()),
			mcp.WithString("law_category", mcp.Description("Law category, e.g. 劳动法")),
		),
		mcpIngestStatute(c),
	)

	s.AddTool(
		mcp.NewTool("ingest-case",
			mcp.WithDescription("Store a precedent case in the knowledge base."),
			mcp.WithString("title", mcp.Description("Case title"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Case text"), mcp.Required()),
			mcp.WithString("case_type", mcp.Description("Case type: 民事/刑事/行政")),
			mcp.WithString("court", mcp.Description("Court name")),
			mcp.WithString("case_number", mcp.Description("Case number")),
		),
		mcpIngestCase(c),
	)

	s.AddTool(
		mcp.NewTool("ingest-interpretation",
			mcp.WithDescription("Store a judicial interpretation in the knowledge base."),
			mcp.WithString("title", mcp.Description("Interpretation title"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Interpretation text"), mcp.Required()),
			mcp.WithString("source", mcp.Description("Issuing body")),
		),
		mcpIngestInterpretation(c),
	)

	s.AddTool(
		mcp.NewTool("knowledge-stats",
			mcp.WithDescription("Report the number of items per knowledge collection."),
		),
		mcpKnowledgeStats(c),
	)

	return s
}

func mcpAnalyzeCase(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		caseID, err := req.RequireString("case_id")
		if err != nil {
			return mcpError("case_id is required"), nil
		}
		result, err := c.AnalyzeCase(ctx, caseID)
		if err != nil {
			return mcpError(fmt.Sprintf("analyze failed: %v", err)), nil
		}
		return mcpJSON(result)
	}
}

func mcpSearchKnowledge(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		var types []schema.KnowledgeType
		if raw := req.GetString("knowledge_type", ""); raw != "" {
			t := schema.KnowledgeType(raw)
			if !t.Valid() {
				return mcpError(fmt.Sprintf("unknown knowledge_type %q", raw)), nil
			}
			types = []schema.KnowledgeType{t}
		}
		topK := req.GetInt("top_k", 0)

		_, merged, err := c.SearchKnowledge(ctx, query, types, topK)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcpJSON(merged)
	}
}

func mcpIngestStatute(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lawName, err := req.RequireString("law_name")
		if err != nil {
			return mcpError("law_name is required"), nil
		}
		articleNumber, err := req.RequireString("article_number")
		if err != nil {
			return mcpError("article_number is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		id, err := c.IngestStatute(ctx, lawName, req.GetString("law_category", ""), articleNumber, content)
		if err != nil {
			return mcpError(fmt.Sprintf("ingest failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("stored statute %s", id)), nil
	}
}

func mcpIngestCase(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcpError("title is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		id, err := c.IngestCase(ctx, schema.CaseRecord{
			Title:      title,
			Content:    content,
			CaseType:   req.GetString("case_type", ""),
			Court:      req.GetString("court", ""),
			CaseNumber: req.GetString("case_number", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("ingest failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("stored case %s", id)), nil
	}
}

func mcpIngestInterpretation(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcpError("title is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		id, err := c.IngestInterpretation(ctx, title, req.GetString("source", ""), content)
		if err != nil {
			return mcpError(fmt.Sprintf("ingest failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("stored interpretation %s", id)), nil
	}
}

func mcpKnowledgeStats(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := c.KnowledgeStats(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("stats failed: %v", err)), nil
		}
		return mcpJSON(stats)
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("marshal result failed: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	result := mcpText(msg)
	result.IsError = true
	return result
}
