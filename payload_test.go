package toolbridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRows(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []any
	}{
		{
			name: "sql rows in text content",
			raw:  `{"content":[{"type":"text","text":"[{\"id\":1},{\"id\":2}]"}]}`,
			want: []any{map[string]any{"id": float64(1)}, map[string]any{"id": float64(2)}},
		},
		{
			name: "structured single object",
			raw:  `{"structuredContent":{"result":{"dimension":1536}}}`,
			want: []any{map[string]any{"dimension": float64(1536)}},
		},
		{
			name: "plain message",
			raw:  `{"content":[{"type":"text","text":"no rows"}]}`,
			want: []any{"no rows"},
		},
		{
			name: "null",
			raw:  `null`,
			want: []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Rows(json.RawMessage(tt.raw)))
		})
	}
}

func TestExtract(t *testing.T) {
	require.Equal(t, "joined", Extract(json.RawMessage(`{"result":"joined"}`)))
}
