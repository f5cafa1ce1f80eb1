package extractor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/mdextract/idgen"
	"github.com/hazyhaar/mdextract/kit"
)

// RegisterMCP registers the extraction tools on an MCP server.
func (r *Router) RegisterMCP(srv *mcp.Server) {
	r.registerExtractTool(srv)
	r.registerResolveTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- extract ---

type extractReq struct {
	ContentBase64 string `json:"content_base64"`
	Name          string `json:"name"`
	ContentType   string `json:"content_type"`
	Format        string `json:"format"`
}

func (r *Router) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "extract",
		Description: "Convert a document (mail .msg/.eml, pdf, docx, odt, xlsx, html, text, images) to Markdown.",
		InputSchema: inputSchema(map[string]any{
			"content_base64": map[string]any{"type": "string", "description": "File bytes, base64 encoded"},
			"name":           map[string]any{"type": "string", "description": "Declared file name, used to pick the extractor"},
			"content_type":   map[string]any{"type": "string", "description": "Declared MIME type, used when name is absent"},
			"format":         map[string]any{"type": "string", "description": "Output kind: text or markdown"},
		}, []string{"content_base64"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		in := req.(*extractReq)
		data, err := base64.StdEncoding.DecodeString(in.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("content_base64: %w", err)
		}
		return r.Extract(ctx, InputFile{Content: data, Name: in.Name, ContentType: in.ContentType}, in.Format)
	}
	endpoint = kit.Logging(r.logger, "extract")(endpoint)

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var in extractReq
		if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request: &in,
			EnrichCtx: func(ctx context.Context) context.Context {
				return kit.WithRequestID(ctx, idgen.NewRequestID())
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- resolve_extension ---

type resolveReq struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

func (r *Router) registerResolveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "resolve_extension",
		Description: "Show which extension, and therefore which extractor, a file name or MIME type maps to.",
		InputSchema: inputSchema(map[string]any{
			"name":         map[string]any{"type": "string", "description": "Declared file name"},
			"content_type": map[string]any{"type": "string", "description": "Declared MIME type"},
		}, nil),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		in := req.(*resolveReq)
		ext := Resolve(in.Name, in.ContentType)
		return map[string]any{"extension": ext, "extractor": ExtractorFor(ext)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var in resolveReq
		if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &in}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
