package model

// 附件类别。
const (
	AttachmentKindImage    = "image"
	AttachmentKindDocument = "document"
)

// PendingAttachment 是已读入但尚未随消息提交的附件。
// 全局最多存在一个；设置新附件会覆盖旧附件，切换对话或提交成功后清除。
// 它只存在于内存中，从不持久化。
type PendingAttachment struct {
	Name string // 原始文件名
	Kind string // AttachmentKindImage 或 AttachmentKindDocument
	// Payload 对图片是 data URI，对文档是解码后的 UTF-8 文本。
	Payload string
}
