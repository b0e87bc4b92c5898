package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mannavlakhab/studio/internal/model"
)

func TestAssemble_PromptOnly(t *testing.T) {
	payload := Assemble(model.GenerationRequest{Prompt: "Tell me a joke"})

	assert.Equal(t, SystemInstruction, payload.System)
	assert.Empty(t, payload.ImageDataURI)
	assert.Equal(t,
		"User Prompt: Tell me a joke\n\nGenerate the response based on the prompt and any provided context.",
		payload.Text)
}

func TestAssemble_HistoryBlock(t *testing.T) {
	req := model.GenerationRequest{
		Prompt: "And then?",
		History: []model.Turn{
			{Role: model.TurnRoleUser, Content: "Once upon a time"},
			{Role: model.TurnRoleAI, Content: "...there was a fox."},
		},
	}
	payload := Assemble(req)

	assert.True(t, strings.HasPrefix(payload.Text, "Conversation History:\n---\n"))
	assert.Contains(t, payload.Text, "User: Once upon a time\n")
	assert.Contains(t, payload.Text, "AI: ...there was a fox.\n")
	// 历史段落在用户提示词之前
	assert.Less(t,
		strings.Index(payload.Text, "Conversation History:"),
		strings.Index(payload.Text, "User Prompt: And then?"))
}

func TestAssemble_NoHistoryBlockWhenEmpty(t *testing.T) {
	payload := Assemble(model.GenerationRequest{Prompt: "hi"})
	assert.NotContains(t, payload.Text, "Conversation History:")
}

func TestAssemble_ImageSection(t *testing.T) {
	req := model.GenerationRequest{
		Prompt:       "What is in this picture?",
		ImageDataURI: "data:image/png;base64,AAAA",
	}
	payload := Assemble(req)

	assert.Contains(t, payload.Text, "Image Context:")
	assert.Equal(t, "data:image/png;base64,AAAA", payload.ImageDataURI)
	assert.NotContains(t, payload.Text, "Document Context:")
}

func TestAssemble_DocumentSection(t *testing.T) {
	req := model.GenerationRequest{
		Prompt:       "Summarize this",
		DocumentText: "Lorem ipsum dolor sit amet.",
	}
	payload := Assemble(req)

	assert.Contains(t, payload.Text, "Document Context:\n---\nLorem ipsum dolor sit amet.\n---\n")
	assert.NotContains(t, payload.Text, "Image Context:")
	assert.Empty(t, payload.ImageDataURI)
}

func TestAssemble_SectionOrder(t *testing.T) {
	req := model.GenerationRequest{
		Prompt:       "Explain",
		DocumentText: "doc body",
		History:      []model.Turn{{Role: model.TurnRoleUser, Content: "earlier"}},
	}
	payload := Assemble(req)

	historyIdx := strings.Index(payload.Text, "Conversation History:")
	promptIdx := strings.Index(payload.Text, "User Prompt:")
	docIdx := strings.Index(payload.Text, "Document Context:")
	closingIdx := strings.Index(payload.Text, "Generate the response based on")

	require.True(t, historyIdx >= 0 && promptIdx >= 0 && docIdx >= 0 && closingIdx >= 0)
	assert.Less(t, historyIdx, promptIdx)
	assert.Less(t, promptIdx, docIdx)
	assert.Less(t, docIdx, closingIdx)
}

func TestAssemble_Deterministic(t *testing.T) {
	req := model.GenerationRequest{
		Prompt:       "Explain",
		ImageDataURI: "data:image/jpeg;base64,BBBB",
		History: []model.Turn{
			{Role: model.TurnRoleUser, Content: "q1"},
			{Role: model.TurnRoleAI, Content: "a1"},
		},
	}

	first := Assemble(req)
	second := Assemble(req)
	assert.Equal(t, first, second)
}
