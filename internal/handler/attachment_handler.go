package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mannavlakhab/studio/internal/service"
	"github.com/mannavlakhab/studio/pkg/log"
)

// AttachmentHandler 负责附件的登记与清除。
type AttachmentHandler struct {
	attachmentService   service.AttachmentService
	conversationService service.ConversationService
}

// NewAttachmentHandler 创建一个新的 AttachmentHandler 实例。
func NewAttachmentHandler(attachmentService service.AttachmentService, conversationService service.ConversationService) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService:   attachmentService,
		conversationService: conversationService,
	}
}

// Upload 接收一个文件，归一化后登记为待提交附件（覆盖任何已存在的附件）。
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "未能获取上传的文件", "data": nil})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error("Upload: failed to open uploaded file", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "服务器内部错误", "data": nil})
		return
	}
	defer file.Close()

	declaredType := fileHeader.Header.Get("Content-Type")
	att, err := h.attachmentService.Classify(fileHeader.Filename, declaredType, file)
	if err != nil {
		var unsupported *service.UnsupportedTypeError
		switch {
		case errors.As(err, &unsupported):
			// 用户可见的拒绝信息中必须点名被拒绝的类型
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": unsupported.Error(), "data": nil})
		case errors.Is(err, service.ErrFileRead):
			log.Error("Upload: failed to read attachment", err)
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "Could not read the attached file.", "data": nil})
		default:
			log.Error("Upload: failed to classify attachment", err)
			c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "服务器内部错误", "data": nil})
		}
		return
	}

	h.conversationService.SetPendingAttachment(*att)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"name": att.Name, "kind": att.Kind},
	})
}

// Clear 丢弃待提交附件。
func (h *AttachmentHandler) Clear(c *gin.Context) {
	h.conversationService.ClearPendingAttachment()
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    nil,
	})
}
