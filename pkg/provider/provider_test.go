package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarlinkco/toolsdk/pkg/message"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
	"github.com/stellarlinkco/toolsdk/pkg/tools/browser"
	"github.com/stellarlinkco/toolsdk/pkg/tools/search"
)

func tools() []tool.Tool {
	return []tool.Tool{browser.New(browser.Config{}, nil), search.New(search.Config{})}
}

func TestAnthropicTools(t *testing.T) {
	out, err := AnthropicTools(tools())
	require.NoError(t, err)
	require.Len(t, out, 2)

	first := out[0].OfTool
	require.NotNil(t, first)
	assert.Equal(t, browser.Name, first.Name)
	assert.Equal(t, []string{"urls"}, first.InputSchema.Required)
	assert.NotNil(t, first.InputSchema.Properties)
	assert.True(t, first.Description.Valid())

	assert.Equal(t, search.Name, out[1].OfTool.Name)
}

func TestAnthropicParts(t *testing.T) {
	blocks := AnthropicParts([]message.Part{
		message.Text("hello"),
		message.TextPart{},
		message.ImagePart{MediaType: "image/png", Data: "iVBORw=="},
		message.ToolUsePart{ID: "call_1", Name: "search_project"},
		message.ToolResultPart{ToolUseID: "call_1", Content: []message.Part{message.Text("Found 0 files")}, IsError: true},
		message.ThinkingPart{Thinking: "plan", Signature: "sig"},
		message.RedactedThinkingPart{Data: "xyz"},
		message.AudioPart{URL: "https://a.test/clip.mp3"},
	})
	require.Len(t, blocks, 7)

	require.NotNil(t, blocks[0].OfText)
	assert.Equal(t, "hello", blocks[0].OfText.Text)
	assert.NotNil(t, blocks[1].OfImage)
	require.NotNil(t, blocks[2].OfToolUse)
	assert.Equal(t, "call_1", blocks[2].OfToolUse.ID)
	assert.Equal(t, "search_project", blocks[2].OfToolUse.Name)
	require.NotNil(t, blocks[3].OfToolResult)
	assert.Equal(t, "call_1", blocks[3].OfToolResult.ToolUseID)
	require.NotNil(t, blocks[4].OfThinking)
	assert.Equal(t, "plan", blocks[4].OfThinking.Thinking)
	assert.Equal(t, "sig", blocks[4].OfThinking.Signature)
	require.NotNil(t, blocks[5].OfRedactedThinking)
	assert.Equal(t, "xyz", blocks[5].OfRedactedThinking.Data)
	require.NotNil(t, blocks[6].OfText)
	assert.Equal(t, "[audio: https://a.test/clip.mp3]", blocks[6].OfText.Text)

	res := AnthropicToolResult("call_2", tool.TextContent("done", nil), false)
	require.NotNil(t, res.OfToolResult)
	assert.Equal(t, "call_2", res.OfToolResult.ToolUseID)
}

func TestOpenAITools(t *testing.T) {
	out, err := OpenAITools(tools())
	require.NoError(t, err)
	require.Len(t, out, 2)

	fn := out[1].Function
	assert.Equal(t, search.Name, fn.Name)
	assert.Equal(t, "object", fn.Parameters["type"])
	props, ok := fn.Parameters["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "contentPattern")

	msg := OpenAIToolMessage("call_9", tool.TextContent("ok", nil))
	require.NotNil(t, msg.OfTool)
	assert.Equal(t, "call_9", msg.OfTool.ToolCallID)
}
