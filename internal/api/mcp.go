package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/stockwise/internal/catalog"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Router Composer
	Store  Store
}

// NewMCPServer creates an MCP server exposing the store assistant.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"stockwise",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("stockwise answers questions about a clothing store's inventory and sales, in Spanish."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_store",
			mcp.WithDescription("Ask a free-text question about stock, prices or sales. Returns the composed answer."),
			mcp.WithString("question", mcp.Description("The question, e.g. \"¿qué productos tienen stock bajo?\""), mcp.Required()),
		),
		mcpAskStore(deps),
	)

	s.AddTool(
		mcp.NewTool("low_stock_report",
			mcp.WithDescription("List the products whose stock is below their minimum."),
		),
		mcpLowStockReport(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"store://low-stock",
			"Low Stock",
			mcp.WithResourceDescription("Products below their minimum stock as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceLowStock(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"store://recent",
			"Recent Questions",
			mcp.WithResourceDescription("Last 10 answered questions"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAskStore(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcpError("question is required"), nil
		}
		question = strings.TrimSpace(question)

		out := deps.Router.Compose(ctx, question)
		if out.Degraded {
			out.Text = MsgClarify
		}
		if deps.Store != nil {
			logInteraction(ctx, deps.Store, question, out)
		}
		return mcpText(out.Text), nil
	}
}

func mcpLowStockReport(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		products, err := deps.Store.ListProducts(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list products: %v", err)), nil
		}
		low := catalog.LowStock(products)
		if len(low) == 0 {
			return mcpText("No products below minimum stock."), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%d product(s) below minimum stock:\n", len(low))
		for _, p := range low {
			fmt.Fprintf(&b, "- %s (size %s): %d in stock, minimum %d\n", p.Name, p.SizeLabel(), p.Stock, p.MinStock)
		}
		return mcpText(strings.TrimRight(b.String(), "\n")), nil
	}
}

func mcpResourceLowStock(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		products, err := deps.Store.ListProducts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		low := catalog.LowStock(products)
		if low == nil {
			low = []catalog.Record{}
		}

		b, err := json.Marshal(low)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal products: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		interactions, err := deps.Store.RecentInteractions(ctx, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent interactions: %w", err)
		}

		type interactionSummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Question  string `json:"question"`
			Intent    string `json:"intent"`
			LowStock  bool   `json:"low_stock"`
		}

		summaries := make([]interactionSummary, len(interactions))
		for i, ix := range interactions {
			q := ix.Question
			if utf8.RuneCountInString(q) > 200 {
				q = string([]rune(q)[:200]) + "..."
			}
			summaries[i] = interactionSummary{
				ID:        ix.ID,
				CreatedAt: ix.CreatedAt.Format(time.RFC3339),
				Question:  q,
				Intent:    ix.Intent,
				LowStock:  ix.LowStock,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
