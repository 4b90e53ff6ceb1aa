// Package model adapts third-party LLM and embedding providers behind two
// narrow interfaces (LLMClient, EmbedderClient) so the rest of the module
// never imports a provider SDK directly.
package model

import "context"

// ChatModel sends a conversation to an LLM and returns its response. It is
// the provider-facing half of LLMClient: CausalAnalyzer and the NARRATE
// stage depend on LLMClient, which a ChatModel satisfies through the
// ChatModelLLM or CostedLLM adapters.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// LLMClient is the external capability the scheduler depends on: complete a
// conversation into text. A ChatModel does not satisfy it directly; wrap
// one in ChatModelLLM below (or CostedLLM) to use it as an LLMClient.
type LLMClient interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ChatModelLLM adapts a ChatModel to LLMClient, discarding tool calls (the
// core never issues tool-bearing prompts; tool use belongs to the excluded
// prompt-construction layer).
type ChatModelLLM struct {
	Model ChatModel
}

func (c ChatModelLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	out, err := c.Model.Chat(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// Message is one turn in a conversation sent to an LLMClient.
type Message struct {
	Role    string
	Content string
}

// Standard role constants, matching every major provider's chat convention.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the model may call. The core never populates
// this (prompt/tool construction is out of scope); it exists so ChatModel
// implementations remain reusable for callers that do.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ChatOut is a ChatModel's response: generated text and/or tool calls.
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}

// Usage reports the token accounting a provider returned for one Chat call.
// Zero values mean the provider's SDK didn't surface usage for that response.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ToolCall is a model-requested invocation of a ToolSpec.
type ToolCall struct {
	Name  string
	Input map[string]interface{}
}
