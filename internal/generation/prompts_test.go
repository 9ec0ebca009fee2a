package generation

import (
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "clean code passes through",
			in:   "graph TD\n  A-->B",
			want: "graph TD\n  A-->B",
		},
		{
			name: "surrounding whitespace is trimmed",
			in:   "\n  graph TD\n  A-->B\n\n",
			want: "graph TD\n  A-->B",
		},
		{
			name: "fence with language tag is stripped",
			in:   "```mermaid\ngraph TD\n  A-->B\n```",
			want: "graph TD\n  A-->B",
		},
		{
			name: "bare fence is stripped",
			in:   "```\nsequenceDiagram\n  A->>B: hi\n```",
			want: "sequenceDiagram\n  A->>B: hi",
		},
		{
			name: "code starting on the fence line is kept",
			in:   "```graph TD\n  A-->B\n```",
			want: "graph TD\n  A-->B",
		},
		{
			name: "empty input stays empty",
			in:   "   ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeCode(tt.in))
		})
	}
}

func TestCodePrompt(t *testing.T) {
	t.Run("fresh generation sends the raw description", func(t *testing.T) {
		msgs := codePrompt("a login flow", "")
		require.Len(t, msgs, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
		assert.Equal(t, "a login flow", msgs[1].Content)
	})

	t.Run("version generation embeds the prior code", func(t *testing.T) {
		msgs := codePrompt("add a retry step", "graph TD\n  A-->B")
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[1].Content, "graph TD\n  A-->B")
		assert.Contains(t, msgs[1].Content, "add a retry step")
		assert.True(t, strings.Index(msgs[1].Content, "graph TD") < strings.Index(msgs[1].Content, "add a retry step"),
			"prior code should precede the new instruction")
	})
}

func TestCommentPrompt(t *testing.T) {
	msgs := commentPrompt("old description", "new description")
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "old description")
	assert.Contains(t, msgs[1].Content, "new description")
}
