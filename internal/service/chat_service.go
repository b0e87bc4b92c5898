package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mannavlakhab/studio/internal/model"
	"github.com/mannavlakhab/studio/pkg/llm"
	"github.com/mannavlakhab/studio/pkg/log"
)

// ErrGenerationInFlight 表示已有一次生成在进行中，新提交被拒绝。
var ErrGenerationInFlight = errors.New("a generation is already in progress")

// FallbackReply 是生成失败时替代助手回答写入对话的内容，保证对话保持一致、可继续。
const FallbackReply = "Sorry, I couldn't generate a response. Please try again."

// SubmitResult 是一次提交的结果。
type SubmitResult struct {
	// ConversationID 是承载本次交互的对话（可能是隐式新建的）。
	ConversationID string
	// Reply 是写入对话的助手消息；对话在生成期间被删除时为零值。
	Reply model.Message
	// ConversationDeleted 表示对话在生成期间被删除，结果已被静默丢弃。
	ConversationDeleted bool
}

// ChatService 定义了提交管线：归一化输入、组装请求、调用后端、落库结果。
type ChatService interface {
	// Submit 处理一次用户提交。生成后端失败时，替代消息已写入对话，
	// 同时返回非 nil 的 result 与该错误，调用方据此向用户提示。
	// 同一时刻只允许一次在途生成，并发提交返回 ErrGenerationInFlight。
	Submit(ctx context.Context, prompt string) (*SubmitResult, error)
}

type chatService struct {
	conversations ConversationService
	llmClient     llm.Client

	// 单在途生成闸门
	mu       sync.Mutex
	inFlight bool
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(conversations ConversationService, llmClient llm.Client) ChatService {
	return &chatService{
		conversations: conversations,
		llmClient:     llmClient,
	}
}

// Submit 处理一次用户提交。
func (s *chatService) Submit(ctx context.Context, prompt string) (*SubmitResult, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	// 1. 空输入在任何状态变更之前拦截
	pending := s.conversations.PendingAttachment()
	if prompt == "" && pending == nil {
		return nil, model.ErrEmptyInput
	}

	// 2. 没有活跃会话时隐式新建一个
	convID := s.conversations.ActiveID()
	if convID == "" {
		convID = s.conversations.CreateConversation(ctx)
		// 新建对话会清掉附件槽位，用提交时捕获的快照继续本次流程
		if pending != nil {
			s.conversations.SetPendingAttachment(*pending)
		}
	}

	// 3. 先落用户消息（第一条消息同时推导标题），再清附件槽位
	userMsg := model.Message{Role: model.RoleUser, Content: prompt}
	if pending != nil {
		switch pending.Kind {
		case model.AttachmentKindImage:
			userMsg.ImageDataURI = pending.Payload
		case model.AttachmentKindDocument:
			userMsg.DocumentName = pending.Name
		}
	}
	if err := s.conversations.AppendMessage(ctx, convID, userMsg); err != nil {
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}
	s.conversations.ClearPendingAttachment()

	// 4. 投影历史（不含刚追加的这条），组装生成请求
	conv, ok := s.conversations.Conversation(convID)
	if !ok {
		return &SubmitResult{ConversationID: convID, ConversationDeleted: true}, nil
	}
	req, err := model.NewGenerationRequest(prompt, pending, ProjectHistory(conv.Messages))
	if err != nil {
		return nil, err
	}
	payload := llm.Assemble(req)

	// 5. 调用生成后端（原子请求/应答，不重试）
	text, genErr := s.llmClient.Generate(ctx, payload)

	reply := model.Message{Role: model.RoleAssistant, Content: text}
	if genErr != nil {
		log.Error("生成后端调用失败", genErr)
		reply.Content = FallbackReply
	}

	// 6. 落助手消息；对话在生成期间被删除时静默丢弃结果
	if err := s.conversations.AppendMessage(ctx, convID, reply); err != nil {
		if errors.Is(err, ErrUnknownConversation) {
			log.Infof("对话 %s 已被删除，丢弃迟到的生成结果", convID)
			return &SubmitResult{ConversationID: convID, ConversationDeleted: true}, nil
		}
		return nil, fmt.Errorf("failed to append assistant message: %w", err)
	}

	result := &SubmitResult{ConversationID: convID, Reply: reply}
	if genErr != nil {
		return result, genErr
	}
	return result, nil
}

// acquire 占用在途生成闸门。
func (s *chatService) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrGenerationInFlight
	}
	s.inFlight = true
	return nil
}

// release 释放在途生成闸门。
func (s *chatService) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}
