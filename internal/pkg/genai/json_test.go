package genai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnmarshalModelJSON(t *testing.T) {
	type payload struct {
		Summary string `json:"summary"`
		Score   int    `json:"score"`
	}

	tests := []struct {
		name string
		raw  string
		want payload
	}{
		{
			name: "bare json",
			raw:  `{"summary": "clean", "score": 3}`,
			want: payload{Summary: "clean", Score: 3},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"summary\": \"fenced\", \"score\": 1}\n```",
			want: payload{Summary: "fenced", Score: 1},
		},
		{
			name: "uppercase fence",
			raw:  "```JSON\n{\"summary\": \"loud\"}\n```",
			want: payload{Summary: "loud"},
		},
		{
			name: "prose wrapped",
			raw:  `Here is what I found: {"summary": "buried", "score": 2} — hope that helps.`,
			want: payload{Summary: "buried", Score: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			require.NoError(t, UnmarshalModelJSON(tt.raw, &got))
			require.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalModelJSONInvalid(t *testing.T) {
	var out map[string]interface{}
	require.Error(t, UnmarshalModelJSON("no json here at all", &out))
	require.Error(t, UnmarshalModelJSON("{truncated", &out))
}
