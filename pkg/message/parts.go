// Package message holds the data shapes exchanged between tools, the
// conversation and model providers.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PartType discriminates the content part variants.
type PartType string

const (
	PartText             PartType = "text"
	PartImage            PartType = "image"
	PartAudio            PartType = "audio"
	PartToolUse          PartType = "tool_use"
	PartToolResult       PartType = "tool_result"
	PartThinking         PartType = "thinking"
	PartRedactedThinking PartType = "redacted_thinking"
)

// ErrInvalidPart reports a part whose fields do not satisfy its variant.
var ErrInvalidPart = errors.New("invalid content part")

// Part is one unit of message content. The set of implementations is closed.
type Part interface {
	Type() PartType
	isPart()
}

type TextPart struct {
	Text string `json:"text"`
}

// ImagePart carries base64 encoded image data.
type ImagePart struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type AudioPart struct {
	URL       string `json:"url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

type ToolUsePart struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type ToolResultPart struct {
	ToolUseID string `json:"tool_use_id"`
	Content   []Part `json:"-"`
	IsError   bool   `json:"is_error,omitempty"`
}

type ThinkingPart struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature,omitempty"`
}

type RedactedThinkingPart struct {
	Data string `json:"data"`
}

func (TextPart) Type() PartType             { return PartText }
func (ImagePart) Type() PartType            { return PartImage }
func (AudioPart) Type() PartType            { return PartAudio }
func (ToolUsePart) Type() PartType          { return PartToolUse }
func (ToolResultPart) Type() PartType       { return PartToolResult }
func (ThinkingPart) Type() PartType         { return PartThinking }
func (RedactedThinkingPart) Type() PartType { return PartRedactedThinking }

func (TextPart) isPart()             {}
func (ImagePart) isPart()            {}
func (AudioPart) isPart()            {}
func (ToolUsePart) isPart()          {}
func (ToolResultPart) isPart()       {}
func (ThinkingPart) isPart()         {}
func (RedactedThinkingPart) isPart() {}

// Text wraps s in a text part.
func Text(s string) Part { return TextPart{Text: s} }

// ValidatePart checks the fields required by p's variant.
func ValidatePart(p Part) error {
	switch v := p.(type) {
	case nil:
		return fmt.Errorf("%w: nil part", ErrInvalidPart)
	case TextPart:
		if v.Text == "" {
			return fmt.Errorf("%w: text is empty", ErrInvalidPart)
		}
	case ImagePart:
		if v.Data == "" || v.MediaType == "" {
			return fmt.Errorf("%w: image needs data and media type", ErrInvalidPart)
		}
	case AudioPart:
		if v.URL == "" && v.Data == "" {
			return fmt.Errorf("%w: audio needs url or data", ErrInvalidPart)
		}
	case ToolUsePart:
		if v.ID == "" || v.Name == "" {
			return fmt.Errorf("%w: tool use needs id and name", ErrInvalidPart)
		}
	case ToolResultPart:
		if v.ToolUseID == "" {
			return fmt.Errorf("%w: tool result needs tool use id", ErrInvalidPart)
		}
		for _, nested := range v.Content {
			if err := ValidatePart(nested); err != nil {
				return err
			}
		}
	case ThinkingPart:
		if v.Thinking == "" {
			return fmt.Errorf("%w: thinking is empty", ErrInvalidPart)
		}
	case RedactedThinkingPart:
		if v.Data == "" {
			return fmt.Errorf("%w: redacted thinking is empty", ErrInvalidPart)
		}
	}
	return nil
}

// PlainText concatenates the text parts, one per line.
func PlainText(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		t, ok := p.(TextPart)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

type envelope struct {
	Type    PartType          `json:"type"`
	Content []json.RawMessage `json:"content,omitempty"`
}

// MarshalPart encodes p as a JSON object tagged with its type.
func MarshalPart(p Part) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil part", ErrInvalidPart)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	typ, _ := json.Marshal(p.Type())
	fields["type"] = typ

	if result, ok := p.(ToolResultPart); ok && len(result.Content) > 0 {
		nested, err := MarshalParts(result.Content)
		if err != nil {
			return nil, err
		}
		fields["content"] = nested
	}
	return json.Marshal(fields)
}

// MarshalParts encodes parts as a JSON array.
func MarshalParts(parts []Part) ([]byte, error) {
	items := make([]json.RawMessage, 0, len(parts))
	for _, p := range parts {
		raw, err := MarshalPart(p)
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
	}
	return json.Marshal(items)
}

// UnmarshalPart decodes a tagged JSON object into its variant.
func UnmarshalPart(data []byte) (Part, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPart, err)
	}

	var (
		p   Part
		err error
	)
	switch env.Type {
	case PartText:
		p, err = decodeInto[TextPart](data)
	case PartImage:
		p, err = decodeInto[ImagePart](data)
	case PartAudio:
		p, err = decodeInto[AudioPart](data)
	case PartToolUse:
		p, err = decodeInto[ToolUsePart](data)
	case PartThinking:
		p, err = decodeInto[ThinkingPart](data)
	case PartRedactedThinking:
		p, err = decodeInto[RedactedThinkingPart](data)
	case PartToolResult:
		var result ToolResultPart
		result, err = decodeInto[ToolResultPart](data)
		if err == nil {
			for _, raw := range env.Content {
				nested, nerr := UnmarshalPart(raw)
				if nerr != nil {
					return nil, nerr
				}
				result.Content = append(result.Content, nested)
			}
		}
		p = result
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPart, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPart, err)
	}
	return p, nil
}

// UnmarshalParts decodes a JSON array of tagged parts.
func UnmarshalParts(data []byte) ([]Part, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPart, err)
	}
	parts := make([]Part, 0, len(items))
	for _, raw := range items {
		p, err := UnmarshalPart(raw)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func decodeInto[T Part](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
