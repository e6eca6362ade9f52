package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/stellarlinkco/toolsdk/pkg/schema"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

// OpenAITools converts tools to chat completion function tools.
func OpenAITools(tools []tool.Tool) ([]openai.ChatCompletionToolParam, error) {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		d := t.Descriptor()
		name := strings.TrimSpace(d.Name)
		if name == "" {
			continue
		}
		params, err := functionParameters(t.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("tool %s schema: %w", name, err)
		}
		param := openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:       name,
				Parameters: params,
			},
		}
		if desc := strings.TrimSpace(d.Description); desc != "" {
			param.Function.Description = openai.String(desc)
		}
		out = append(out, param)
	}
	return out, nil
}

func functionParameters(s *schema.Schema) (shared.FunctionParameters, error) {
	if s == nil {
		return shared.FunctionParameters{"type": "object"}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var params shared.FunctionParameters
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	if _, ok := params["type"]; !ok {
		params["type"] = "object"
	}
	return params, nil
}

// OpenAIToolMessage wraps a tool's result content as a tool message.
func OpenAIToolMessage(toolCallID string, content tool.ResultContent) openai.ChatCompletionMessageParamUnion {
	return openai.ToolMessage(content.Text(), toolCallID)
}
