package content

import (
	"encoding/json"
	"fmt"
)

// partJSON is the wire form of a Part. Kind selects which of the remaining
// fields are meaningful.
type partJSON struct {
	Kind       string            `json:"kind"`
	Text       string            `json:"text,omitempty"`
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name,omitempty"`
	Arguments  string            `json:"arguments,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Content    string            `json:"content,omitempty"`
	IsError    bool              `json:"is_error,omitempty"`
}

// MarshalParts encodes parts as a JSON array of kind-tagged objects.
// Parts of unknown kinds are rejected rather than silently dropped.
func MarshalParts(parts []Part) ([]byte, error) {
	encoded := make([]partJSON, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case Text:
			encoded = append(encoded, partJSON{Kind: KindText, Text: v.Text})
		case ToolCall:
			encoded = append(encoded, partJSON{
				Kind:      KindToolCall,
				ID:        v.ID,
				Name:      v.Name,
				Arguments: v.Arguments,
				Metadata:  v.Metadata,
			})
		case ToolResult:
			encoded = append(encoded, partJSON{
				Kind:       KindToolResult,
				ToolCallID: v.ToolCallID,
				Content:    v.Content,
				IsError:    v.IsError,
			})
		default:
			return nil, fmt.Errorf("content: cannot encode part kind %q", p.PartKind())
		}
	}
	return json.Marshal(encoded)
}

// UnmarshalParts decodes a JSON array produced by MarshalParts.
func UnmarshalParts(data []byte) ([]Part, error) {
	var encoded []partJSON
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("content: decode parts: %w", err)
	}
	parts := make([]Part, 0, len(encoded))
	for _, e := range encoded {
		switch e.Kind {
		case KindText:
			parts = append(parts, Text{Text: e.Text})
		case KindToolCall:
			parts = append(parts, ToolCall{
				ID:        e.ID,
				Name:      e.Name,
				Arguments: e.Arguments,
				Metadata:  e.Metadata,
			})
		case KindToolResult:
			parts = append(parts, ToolResult{
				ToolCallID: e.ToolCallID,
				Content:    e.Content,
				IsError:    e.IsError,
			})
		default:
			return nil, fmt.Errorf("content: cannot decode part kind %q", e.Kind)
		}
	}
	return parts, nil
}
