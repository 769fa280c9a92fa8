package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_PartKind(t *testing.T) {
	p := Text{Text: "hello"}
	assert.Equal(t, KindText, p.PartKind())
}

func TestToolCall_PartKind(t *testing.T) {
	p := ToolCall{ID: "1", Name: "search", Arguments: `{"q":"go"}`}
	assert.Equal(t, KindToolCall, p.PartKind())
}

func TestToolResult_PartKind(t *testing.T) {
	p := ToolResult{ToolCallID: "1", Content: "result", IsError: false}
	assert.Equal(t, KindToolResult, p.PartKind())
}

func TestMarshalParts_RoundTrip(t *testing.T) {
	parts := []Part{
		Text{Text: "checking the weather"},
		ToolCall{
			ID:        "call_1",
			Name:      "web_search",
			Arguments: `{"query":"weather berlin"}`,
			Metadata:  map[string]string{"signature": "abc"},
		},
		ToolResult{ToolCallID: "call_1", Content: "18C, cloudy", IsError: false},
		ToolResult{ToolCallID: "call_2", Content: "timeout", IsError: true},
	}

	data, err := MarshalParts(parts)
	require.NoError(t, err)

	decoded, err := UnmarshalParts(data)
	require.NoError(t, err)
	require.Len(t, decoded, len(parts))
	for i := range parts {
		assert.Equal(t, parts[i], decoded[i])
	}
}

func TestMarshalParts_Empty(t *testing.T) {
	data, err := MarshalParts(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	decoded, err := UnmarshalParts(data)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

type customPart struct{}

func (customPart) PartKind() string { return "custom" }

func TestMarshalParts_UnknownKind(t *testing.T) {
	_, err := MarshalParts([]Part{customPart{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"custom"`)
}

func TestUnmarshalParts_UnknownKind(t *testing.T) {
	_, err := UnmarshalParts([]byte(`[{"kind":"hologram"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"hologram"`)
}

func TestUnmarshalParts_BadJSON(t *testing.T) {
	_, err := UnmarshalParts([]byte(`{"kind":`))
	require.Error(t, err)
}
