package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mannavlakhab/studio/internal/model"
	"github.com/mannavlakhab/studio/internal/service"
	"github.com/mannavlakhab/studio/pkg/llm"
	"github.com/mannavlakhab/studio/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理 WebSocket 聊天连接。
// 每条提交消息对应一条完整的回复消息，不做逐 token 流式下发。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// submitRequest 是客户端通过 WebSocket 发送的提交消息。
type submitRequest struct {
	Prompt string `json:"prompt"`
}

// Handle 处理一个传入的 WebSocket 连接。
func (h *ChatHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Info("WebSocket 连接已建立")

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var req submitRequest
		if err := json.Unmarshal(message, &req); err != nil {
			writeError(conn, "Invalid request payload.")
			continue
		}

		result, err := h.chatService.Submit(c.Request.Context(), req.Prompt)

		// 生成失败时替代消息已写入对话：既下发该消息，也下发错误通知
		if result != nil && !result.ConversationDeleted {
			writeReply(conn, result)
		}
		if err != nil {
			log.Errorf("处理提交失败: %v", err)
			writeError(conn, userFacingMessage(err))
		}
		sendCompletion(conn)
	}
}

// writeReply 下发写入对话的助手消息。
func writeReply(conn *websocket.Conn, result *service.SubmitResult) {
	reply := map[string]interface{}{
		"type":           "message",
		"role":           "ai",
		"content":        result.Reply.Content,
		"conversationId": result.ConversationID,
	}
	b, _ := json.Marshal(reply)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("下发回复消息失败: %v", err)
	}
}

// writeError 下发一条用户可见的错误通知。
func writeError(conn *websocket.Conn, message string) {
	b, _ := json.Marshal(map[string]string{"type": "error", "message": message})
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(conn *websocket.Conn) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"timestamp": time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(notif)
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

// userFacingMessage 将管线错误映射为提示给用户的文案。
func userFacingMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrEmptyInput):
		return "Please enter a prompt or attach a file."
	case errors.Is(err, service.ErrGenerationInFlight):
		return "A generation is already in progress. Please wait for it to finish."
	case errors.Is(err, llm.ErrBackendUnavailable), errors.Is(err, llm.ErrEmptyResponse):
		return "Failed to generate response. Please check your API key and try again."
	default:
		return "Something went wrong. Please try again."
	}
}
