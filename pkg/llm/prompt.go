package llm

import (
	"strings"

	"github.com/mannavlakhab/studio/internal/model"
)

// SystemInstruction 是每次生成请求携带的固定系统指令：
// 以用户提示词为主，图片、文档与历史仅作为上下文。
const SystemInstruction = "You are an expert AI assistant. Generate content based on the following information. " +
	"Prioritize the user's prompt, but use the image, document text, and conversation history as context if provided."

// Payload 是发送给生成后端的完整结构化载荷。
type Payload struct {
	// System 固定的系统指令。
	System string
	// Text 渲染完成的提示词文本。
	Text string
	// ImageDataURI 随请求下发的图片（data URI），没有图片时为空串。
	ImageDataURI string
}

// Assemble 将校验过的生成请求渲染为结构化载荷。
// 纯函数：相同输入产生逐字节相同的输出，不做 I/O，不读时钟。
// 四个条件段落按固定顺序渲染：历史、用户提示词、图片上下文、文档上下文。
func Assemble(req model.GenerationRequest) Payload {
	var sb strings.Builder

	if len(req.History) > 0 {
		sb.WriteString("Conversation History:\n---\n")
		for _, turn := range req.History {
			if turn.Role == model.TurnRoleUser {
				sb.WriteString("User: ")
			} else {
				sb.WriteString("AI: ")
			}
			sb.WriteString(turn.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("---\n\n")
	}

	sb.WriteString("User Prompt: ")
	sb.WriteString(req.Prompt)
	sb.WriteString("\n")

	if req.ImageDataURI != "" {
		// 图片本体通过 Payload.ImageDataURI 以多模态分片下发，文本中只保留段落标记
		sb.WriteString("\nImage Context:\n(image attached)\n")
	}

	if req.DocumentText != "" {
		sb.WriteString("\nDocument Context:\n---\n")
		sb.WriteString(req.DocumentText)
		sb.WriteString("\n---\n")
	}

	sb.WriteString("\nGenerate the response based on the prompt and any provided context.")

	return Payload{
		System:       SystemInstruction,
		Text:         sb.String(),
		ImageDataURI: req.ImageDataURI,
	}
}
