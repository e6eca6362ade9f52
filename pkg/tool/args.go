package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseArguments decodes a model supplied argument string into an input
// object. Malformed JSON gets one repair attempt before it is rejected; an
// empty string is an empty object.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var input map[string]any
	err := json.Unmarshal([]byte(raw), &input)
	if err == nil && input != nil {
		return input, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	input = nil
	if err := json.Unmarshal([]byte(repaired), &input); err != nil || input == nil {
		return nil, fmt.Errorf("%w: arguments are not a JSON object", ErrInvalidInput)
	}
	return input, nil
}

// cloneInput deep copies decoded JSON so a tool cannot mutate the caller's
// map.
func cloneInput(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneInput(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
