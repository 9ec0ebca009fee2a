package generation

import (
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const codeSystemPrompt = `You are an expert in Mermaid diagrams. Generate a Mermaid DSL program from the user's description.

Requirements:
1. Pick the most suitable Mermaid diagram type yourself (sequenceDiagram, graph TD, stateDiagram, classDiagram, ...).
2. Use correct syntax for the chosen type.
3. Node IDs must be meaningful and unique.
4. Use varied shapes and styles where appropriate.
5. Return ONLY the Mermaid DSL code. No explanation, no comments, no code fences, never three backticks.`

const titleSystemPrompt = `Generate a short title (at most 8 words) for a diagram described by the user. Return only the title text, no quotes, no punctuation at the end.`

const commentSystemPrompt = `You are given the previous and the new description of a diagram. Summarize what changed in one short sentence suitable as a version history comment. Return only the sentence.`

const enhanceSystemPrompt = `You are an expert in Mermaid diagrams. Rewrite the user's description so it is clearer, more complete and better suited as input for diagram generation. Name all participants and the order of their interactions. Return a textual description, NOT Mermaid code, in at most 400 words.`

func codePrompt(description, priorCode string) []openai.ChatCompletionMessage {
	user := description
	if priorCode != "" {
		user = fmt.Sprintf("Current diagram code:\n%s\n\nNew instruction:\n%s", priorCode, description)
	}
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: codeSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}

func titlePrompt(description string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: titleSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: description},
	}
}

func commentPrompt(oldDescription, newDescription string) []openai.ChatCompletionMessage {
	user := fmt.Sprintf("Previous description:\n%s\n\nNew description:\n%s", oldDescription, newDescription)
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: commentSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}

func enhancePrompt(description string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: enhanceSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: description},
	}
}

// SanitizeCode strips markdown fences a model may emit despite the
// prompt contract. Fenced output is a quality defect upstream, not a
// protocol violation, so it is repaired rather than rejected.
func SanitizeCode(code string) string {
	s := strings.TrimSpace(code)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop a language tag like "mermaid" on the opening fence line.
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(strings.TrimSpace(s[:i]), " \t") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
