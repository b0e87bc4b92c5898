// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mannavlakhab/studio/internal/service"
)

// ConversationHandler 处理与对话相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// ListConversations 返回对话列表（最近创建在前）与活跃会话 ID。
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"conversations": h.service.Conversations(),
			"activeId":      h.service.ActiveID(),
		},
	})
}

// CreateConversation 新建一个对话并设为活跃会话。
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	id := h.service.CreateConversation(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"id": id},
	})
}

// SelectConversation 切换活跃会话。目标不存在时静默忽略，幂等。
func (h *ConversationHandler) SelectConversation(c *gin.Context) {
	h.service.SelectConversation(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"activeId": h.service.ActiveID()},
	})
}

// DeleteConversation 删除对话。若删除的是活跃会话，指针被清空而不是改选。
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	h.service.DeleteConversation(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    nil,
	})
}
