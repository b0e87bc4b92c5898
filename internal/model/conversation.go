// Package model 包含了应用的数据模型定义。
package model

// 消息角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle 是新建对话的占位标题，首条消息落库时被改写一次。
const DefaultTitle = "New Conversation"

// Message 代表对话中的一条消息。消息一经追加便不可变。
type Message struct {
	Role    string `json:"role"` // "user" 或 "assistant"
	Content string `json:"content"`
	// ImageDataURI 仅在用户消息附带图片时存在，格式为 data:<mimetype>;base64,<data>。
	ImageDataURI string `json:"imageDataUri,omitempty"`
	// DocumentName 仅在用户消息附带文档时存在，保存原始文件名。
	// 同一条消息不会同时携带 ImageDataURI 与 DocumentName。
	DocumentName string `json:"documentName,omitempty"`
}

// HasAttachment 报告该消息是否携带附件。
func (m Message) HasAttachment() bool {
	return m.ImageDataURI != "" || m.DocumentName != ""
}

// Conversation 代表一次可独立恢复的命名对话。
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// Clone 返回对话的深拷贝，避免调用方持有内部切片。
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}
