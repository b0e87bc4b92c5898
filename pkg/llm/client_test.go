package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mannavlakhab/studio/internal/config"
)

// newTestClient 启动一个假的 OpenAI 兼容后端，并返回指向它的客户端。
func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
	})
}

// completionBody 构造一条 chat completions 成功应答。
func completionBody(content string) string {
	return fmt.Sprintf(`{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
}

func TestGenerate_ReturnsContent(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("Here is your story."))
	})

	text, err := client.Generate(context.Background(), Payload{
		System: SystemInstruction,
		Text:   "User Prompt: Tell me a story",
	})

	require.NoError(t, err)
	assert.Equal(t, "Here is your story.", text)
	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, SystemInstruction, captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
}

func TestGenerate_ImageUsesMultiContent(t *testing.T) {
	var captured struct {
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("A fox."))
	})

	_, err := client.Generate(context.Background(), Payload{
		System:       SystemInstruction,
		Text:         "User Prompt: What is in this picture?",
		ImageDataURI: "data:image/png;base64,AAAA",
	})

	require.NoError(t, err)
	require.Len(t, captured.Messages, 2)
	// 用户消息拆成文本 + 图片两个分片，data URI 原样下发
	parts := captured.Messages[1].Content
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "User Prompt: What is in this picture?", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/png;base64,AAAA", parts[1].ImageURL.URL)
}

func TestGenerate_EmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cmpl-1","object":"chat.completion","choices":[]}`)
	})

	_, err := client.Generate(context.Background(), Payload{Text: "hi"})

	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.NotErrorIs(t, err, ErrBackendUnavailable)
}

func TestGenerate_EmptyContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(""))
	})

	_, err := client.Generate(context.Background(), Payload{Text: "hi"})

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerate_BackendError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"internal error"}}`)
	})

	_, err := client.Generate(context.Background(), Payload{Text: "hi"})

	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.NotErrorIs(t, err, ErrEmptyResponse)
}
