// Package mcpserver exposes the tools of an executor to MCP clients.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/stellarlinkco/toolsdk/pkg/interaction"
	"github.com/stellarlinkco/toolsdk/pkg/message"
	"github.com/stellarlinkco/toolsdk/pkg/project"
	"github.com/stellarlinkco/toolsdk/pkg/schema"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

const (
	defaultName    = "toolsdk"
	defaultVersion = "dev"
)

// Options configures New. Executor is required.
type Options struct {
	Name        string
	Version     string
	Executor    *tool.Executor
	Interaction interaction.Interaction
	Editor      project.Editor
	Logger      zerolog.Logger
}

// New returns an MCP server offering every tool registered with the
// executor at the time of the call.
func New(opts Options) (*mcp.Server, error) {
	if opts.Executor == nil {
		return nil, fmt.Errorf("mcpserver: executor is required")
	}
	name, version := opts.Name, opts.Version
	if name == "" {
		name = defaultName
	}
	if version == "" {
		version = defaultVersion
	}

	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	h := &handler{opts: opts, logger: opts.Logger.With().Str("component", "mcpserver").Logger()}
	for _, t := range opts.Executor.Registry().List() {
		def, err := Describe(t)
		if err != nil {
			return nil, err
		}
		server.AddTool(def, h.call(def.Name))
	}
	return server, nil
}

// Describe converts a tool's descriptor and schema to an MCP tool
// definition.
func Describe(t tool.Tool) (*mcp.Tool, error) {
	d := t.Descriptor()
	input, err := inputSchema(t.InputSchema())
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", d.Name, err)
	}
	openWorld := d.Features.RequiresNetwork
	destructive := d.Features.MutatesResources
	return &mcp.Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: input,
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    !d.Features.MutatesResources,
			DestructiveHint: &destructive,
			IdempotentHint:  d.Features.IsIdempotent,
			OpenWorldHint:   &openWorld,
		},
	}, nil
}

// inputSchema returns s as a generic JSON object. MCP requires an object
// schema even for tools without input.
func inputSchema(s *schema.Schema) (map[string]any, error) {
	if s == nil {
		return map[string]any{"type": "object"}, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode input schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out, nil
}

type handler struct {
	opts   Options
	logger zerolog.Logger
}

func (h *handler) call(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw string
		if req != nil && req.Params != nil {
			raw = string(req.Params.Arguments)
		}
		input, err := tool.ParseArguments(raw)
		if err != nil {
			return errorResult(err), nil
		}

		out, err := h.opts.Executor.Run(ctx, h.opts.Interaction, h.opts.Editor, tool.Call{Name: name, Input: input})
		if err != nil {
			return errorResult(err), nil
		}
		res := out.Result
		if res == nil {
			return &mcp.CallToolResult{Content: []mcp.Content{}}, nil
		}
		// MCP results carry no message id; the invocation id stands in.
		if res.Finalization != nil {
			if err := h.opts.Executor.Resolve(ctx, out.Invocation.ID, out.Invocation.ID); err != nil {
				h.logger.Warn().Err(err).Str("tool", name).Msg("finalization failed")
			}
		}
		return &mcp.CallToolResult{
			Content:           Content(res.Content.Parts),
			StructuredContent: structured(res.Content.Data),
		}, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

// structured keeps payloads that encode as JSON objects, the only shape MCP
// accepts for structured content.
func structured(data any) any {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

// Content maps message parts to MCP content. Parts without an MCP
// equivalent are sent as their JSON encoding.
func Content(parts []message.Part) []mcp.Content {
	out := make([]mcp.Content, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case message.TextPart:
			out = append(out, &mcp.TextContent{Text: v.Text})
		case message.ImagePart:
			data, err := base64.StdEncoding.DecodeString(v.Data)
			if err != nil {
				out = append(out, &mcp.TextContent{Text: "[image could not be decoded]"})
				continue
			}
			out = append(out, &mcp.ImageContent{Data: data, MIMEType: v.MediaType})
		case message.AudioPart:
			if v.Data == "" {
				out = append(out, &mcp.TextContent{Text: v.URL})
				continue
			}
			data, err := base64.StdEncoding.DecodeString(v.Data)
			if err != nil {
				out = append(out, &mcp.TextContent{Text: "[audio could not be decoded]"})
				continue
			}
			out = append(out, &mcp.AudioContent{Data: data, MIMEType: v.MediaType})
		case nil:
		default:
			if encoded, err := message.MarshalPart(p); err == nil {
				out = append(out, &mcp.TextContent{Text: string(encoded)})
			}
		}
	}
	return out
}
