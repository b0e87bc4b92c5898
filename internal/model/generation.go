package model

import "errors"

// ErrEmptyInput 表示提交既没有提示词也没有附件。
var ErrEmptyInput = errors.New("at least one input (prompt, image, or document) is required")

// 历史轮次在生成请求中使用的线上角色。
const (
	TurnRoleUser = "user"
	TurnRoleAI   = "ai"
)

// Turn 是提供给生成后端的一轮历史对话。
type Turn struct {
	Role    string `json:"role"` // "user" 或 "ai"
	Content string `json:"content"`
}

// GenerationRequest 是一次生成调用的完整输入。
// 只能通过 NewGenerationRequest 构造，构造后不再修改。
type GenerationRequest struct {
	Prompt       string `json:"prompt"`
	ImageDataURI string `json:"imageDataUri,omitempty"`
	DocumentText string `json:"documentText,omitempty"`
	// History 按时间顺序排列的既往轮次，不包含本次提交的消息。
	History []Turn `json:"conversationHistory,omitempty"`
}

// GenerationResponse 是生成后端的应答。
type GenerationResponse struct {
	Text string `json:"text"`
}

// NewGenerationRequest 校验输入并组装一个生成请求。
// 提示词与附件至少存在其一，否则返回 ErrEmptyInput；
// 附件按类别恰好填充 ImageDataURI 与 DocumentText 中的一个。
func NewGenerationRequest(prompt string, att *PendingAttachment, history []Turn) (GenerationRequest, error) {
	if prompt == "" && att == nil {
		return GenerationRequest{}, ErrEmptyInput
	}

	req := GenerationRequest{Prompt: prompt}
	if att != nil {
		switch att.Kind {
		case AttachmentKindImage:
			req.ImageDataURI = att.Payload
		case AttachmentKindDocument:
			req.DocumentText = att.Payload
		}
		if req.ImageDataURI == "" && req.DocumentText == "" && prompt == "" {
			// 附件类别非法且没有提示词，等同于空输入
			return GenerationRequest{}, ErrEmptyInput
		}
	}
	if len(history) > 0 {
		req.History = make([]Turn, len(history))
		copy(req.History, history)
	}
	return req, nil
}
