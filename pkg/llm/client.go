// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/mannavlakhab/studio/internal/config"
)

// ErrBackendUnavailable 表示生成后端调用失败（网络或 API 层错误）。
var ErrBackendUnavailable = errors.New("generation backend unavailable")

// ErrEmptyResponse 表示后端应答缺少有效的文本内容，和传输层失败区分开。
var ErrEmptyResponse = errors.New("generation backend returned an empty response")

// Client 定义了生成后端的调用接口。
type Client interface {
	// Generate 以组装好的载荷调用生成后端，返回生成的文本。
	// 每次调用恰好请求后端一次，失败不自动重试。
	Generate(ctx context.Context, payload Payload) (string, error)
}

type openaiClient struct {
	cfg    config.LLMConfig
	client *openai.Client
}

// NewClient 基于配置创建一个 OpenAI 兼容接口的 LLM 客户端。
func NewClient(cfg config.LLMConfig) Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &openaiClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// Generate 调用 chat completions 接口并校验应答形状。
func (c *openaiClient) Generate(ctx context.Context, payload Payload) (string, error) {
	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if payload.ImageDataURI != "" {
		// 带图片时改用多模态分片，data URI 直接作为 image_url 下发
		userMsg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: payload.Text},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: payload.ImageDataURI},
			},
		}
	} else {
		userMsg.Content = payload.Text
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: payload.System},
			userMsg,
		},
	}
	if c.cfg.Generation.Temperature != 0 {
		req.Temperature = float32(c.cfg.Generation.Temperature)
	}
	if c.cfg.Generation.TopP != 0 {
		req.TopP = float32(c.cfg.Generation.TopP)
	}
	if c.cfg.Generation.MaxTokens != 0 {
		req.MaxTokens = c.cfg.Generation.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// 应答必须包含非空的文本内容，缺失时视作空应答而非传输失败
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
