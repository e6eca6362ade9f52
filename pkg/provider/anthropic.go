// Package provider converts tool definitions and content parts into the
// request params of model provider SDKs.
package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/stellarlinkco/toolsdk/pkg/message"
	"github.com/stellarlinkco/toolsdk/pkg/schema"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

// AnthropicTools converts tools to Anthropic tool params, keeping order.
func AnthropicTools(tools []tool.Tool) ([]anthropicsdk.ToolUnionParam, error) {
	out := make([]anthropicsdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		d := t.Descriptor()
		name := strings.TrimSpace(d.Name)
		if name == "" {
			continue
		}
		input, err := anthropicSchema(t.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("tool %s schema: %w", name, err)
		}
		param := anthropicsdk.ToolParam{Name: name, InputSchema: input}
		if desc := strings.TrimSpace(d.Description); desc != "" {
			param.Description = anthropicsdk.String(desc)
		}
		out = append(out, anthropicsdk.ToolUnionParam{OfTool: &param})
	}
	return out, nil
}

func anthropicSchema(s *schema.Schema) (anthropicsdk.ToolInputSchemaParam, error) {
	if s == nil {
		return anthropicsdk.ToolInputSchemaParam{Type: "object"}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, err
	}
	var param anthropicsdk.ToolInputSchemaParam
	if err := json.Unmarshal(data, &param); err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, err
	}
	if param.Type == "" {
		param.Type = "object"
	}
	return param, nil
}

// AnthropicParts converts content parts to Anthropic content blocks. Audio
// has no Anthropic block and is sent as a text reference.
func AnthropicParts(parts []message.Part) []anthropicsdk.ContentBlockParamUnion {
	out := make([]anthropicsdk.ContentBlockParamUnion, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case message.TextPart:
			if v.Text != "" {
				out = append(out, anthropicsdk.NewTextBlock(v.Text))
			}
		case message.ImagePart:
			out = append(out, anthropicsdk.NewImageBlockBase64(v.MediaType, v.Data))
		case message.AudioPart:
			ref := v.URL
			if ref == "" {
				ref = v.MediaType
			}
			out = append(out, anthropicsdk.NewTextBlock("[audio: "+ref+"]"))
		case message.ToolUsePart:
			input := v.Input
			if input == nil {
				input = map[string]any{}
			}
			out = append(out, anthropicsdk.NewToolUseBlock(v.ID, input, v.Name))
		case message.ToolResultPart:
			out = append(out, anthropicsdk.NewToolResultBlock(v.ToolUseID, message.PlainText(v.Content), v.IsError))
		case message.ThinkingPart:
			out = append(out, anthropicsdk.NewThinkingBlock(v.Signature, v.Thinking))
		case message.RedactedThinkingPart:
			out = append(out, anthropicsdk.NewRedactedThinkingBlock(v.Data))
		}
	}
	return out
}

// AnthropicToolResult wraps a tool's result content as a tool_result block.
func AnthropicToolResult(toolUseID string, content tool.ResultContent, isError bool) anthropicsdk.ContentBlockParamUnion {
	return anthropicsdk.NewToolResultBlock(toolUseID, content.Text(), isError)
}
