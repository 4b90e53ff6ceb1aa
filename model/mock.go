package model

import (
	"context"
	"math"
	"sync"
)

// MockChatModel is a test double for ChatModel: it replays a configured
// sequence of responses (repeating the last one once exhausted) and records
// every call for assertions.
type MockChatModel struct {
	Responses []ChatOut
	Err       error
	Calls     []MockChatCall

	mu        sync.Mutex
	callIndex int
}

// MockChatCall records one Chat invocation.
type MockChatCall struct {
	Messages []Message
	Tools    []ToolSpec
}

func (m *MockChatModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockChatCall{Messages: messages, Tools: tools})

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears call history, for reuse across subtests.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockEmbedder is a deterministic test double for EmbedderClient: it hashes
// each input string into a fixed-width vector so identical text always
// embeds identically, without pulling in a real model.
type MockEmbedder struct {
	Dim int
	Err error
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	dim := m.Dim
	if dim <= 0 {
		dim = 16
	}
	vec := make([]float64, dim)
	for i, r := range text {
		vec[i%dim] += float64(r % 97)
	}
	normalize(vec)
	return vec, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func normalize(vec []float64) {
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range vec {
		vec[i] /= norm
	}
}
