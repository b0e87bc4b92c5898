// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/mannavlakhab/studio/internal/model"
	"github.com/mannavlakhab/studio/internal/repository"
	"github.com/mannavlakhab/studio/pkg/log"
)

// ErrUnknownConversation 表示目标对话不存在（可能已被删除）。
// 它只在内部用于丢弃迟到的生成结果，不会呈现给用户。
var ErrUnknownConversation = errors.New("unknown conversation")

// 标题最多保留 40 个字符，超出部分以省略号收尾。
const (
	titleMaxRunes = 40
	titleEllipsis = "..."
)

// ConversationService 拥有对话列表、活跃会话指针与待提交附件，
// 是所有对话状态变更的唯一入口。
type ConversationService interface {
	// Load 从持久化层恢复状态，并立即校验活跃会话指针的有效性。
	// 持久化数据损坏或不可用时退化为空状态，不向调用方报错。
	Load(ctx context.Context)
	// CreateConversation 新建一个占位标题的空对话，插入列表头部并设为活跃会话，
	// 同时清除待提交附件。总是成功，返回新对话 ID。
	CreateConversation(ctx context.Context) string
	// SelectConversation 切换活跃会话并清除待提交附件；目标不存在时静默忽略。
	SelectConversation(ctx context.Context, id string)
	// DeleteConversation 删除对话；若删除的是活跃会话则清空指针，不自动改选其他对话。
	DeleteConversation(ctx context.Context, id string)
	// AppendMessage 向指定对话追加一条消息。对话的第一条消息会改写其标题，
	// 且一个对话的生命周期内至多改写一次。目标不存在时返回 ErrUnknownConversation。
	AppendMessage(ctx context.Context, id string, msg model.Message) error

	// Conversations 返回对话列表的拷贝，创建时间越近越靠前。
	Conversations() []model.Conversation
	// ActiveID 返回活跃会话 ID，没有活跃会话时为空串。
	ActiveID() string
	// Conversation 按 ID 返回对话的拷贝。
	Conversation(id string) (model.Conversation, bool)

	// SetPendingAttachment 登记待提交附件，覆盖任何已存在的附件。
	SetPendingAttachment(att model.PendingAttachment)
	// PendingAttachment 返回当前待提交附件的拷贝，没有时为 nil。
	PendingAttachment() *model.PendingAttachment
	// ClearPendingAttachment 丢弃待提交附件。
	ClearPendingAttachment()
}

type conversationService struct {
	repo repository.ConversationRepository

	// mu 串行化所有状态变更，保证单写者纪律：
	// 任何读取都不会观察到追加或删除的中间状态。
	mu            sync.Mutex
	conversations []model.Conversation
	activeID      string
	pending       *model.PendingAttachment
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

// Load 从持久化层恢复状态。
func (s *conversationService) Load(ctx context.Context) {
	state, err := s.repo.LoadState(ctx)
	if err != nil {
		log.Error("加载对话状态失败，以空状态启动", err)
		state = &repository.StoredState{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = state.Conversations
	s.activeID = state.ActiveID

	// 活跃会话指针必须指向列表中的成员；失效时清空而不是改选
	if s.activeID != "" && s.indexOf(s.activeID) < 0 {
		log.Warnf("活跃会话 %s 不在对话列表中，已清空指针", s.activeID)
		s.activeID = ""
		s.persist(ctx)
	}
	log.Infof("对话状态加载完成，共 %d 个对话", len(s.conversations))
}

// CreateConversation 新建对话并设为活跃会话。
func (s *conversationService) CreateConversation(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := model.Conversation{
		ID:       uuid.NewString(),
		Title:    model.DefaultTitle,
		Messages: []model.Message{},
	}
	// 新对话插入头部，列表保持最近创建在前
	s.conversations = append([]model.Conversation{conv}, s.conversations...)
	s.activeID = conv.ID
	s.pending = nil
	s.persist(ctx)
	return conv.ID
}

// SelectConversation 切换活跃会话。
func (s *conversationService) SelectConversation(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return
	}
	s.activeID = id
	s.pending = nil
	s.persist(ctx)
}

// DeleteConversation 删除对话。
func (s *conversationService) DeleteConversation(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)
	if s.activeID == id {
		s.activeID = ""
	}
	s.persist(ctx)
}

// AppendMessage 向指定对话追加一条消息。
func (s *conversationService) AppendMessage(ctx context.Context, id string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ErrUnknownConversation
	}

	conv := &s.conversations[idx]
	firstMessage := len(conv.Messages) == 0
	conv.Messages = append(conv.Messages, msg)
	if firstMessage {
		conv.Title = deriveTitle(msg)
	}
	s.persist(ctx)
	return nil
}

// Conversations 返回对话列表的拷贝。
func (s *conversationService) Conversations() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

// ActiveID 返回活跃会话 ID。
func (s *conversationService) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Conversation 按 ID 返回对话的拷贝。
func (s *conversationService) Conversation(id string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Conversation{}, false
	}
	return s.conversations[idx].Clone(), true
}

// SetPendingAttachment 登记待提交附件（后写覆盖先写）。
func (s *conversationService) SetPendingAttachment(att model.PendingAttachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &att
}

// PendingAttachment 返回当前待提交附件的拷贝。
func (s *conversationService) PendingAttachment() *model.PendingAttachment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return nil
	}
	att := *s.pending
	return &att
}

// ClearPendingAttachment 丢弃待提交附件。
func (s *conversationService) ClearPendingAttachment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// indexOf 返回对话在列表中的下标，不存在时为 -1。调用方必须持有 s.mu。
func (s *conversationService) indexOf(id string) int {
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

// persist 将当前状态写入持久化层（先改内存、后写存储）。
// 写入失败只记录日志，内存状态保持有效。调用方必须持有 s.mu。
func (s *conversationService) persist(ctx context.Context) {
	state := &repository.StoredState{
		Conversations: s.conversations,
		ActiveID:      s.activeID,
	}
	if err := s.repo.SaveState(ctx, state); err != nil {
		log.Error("持久化对话状态失败", err)
	}
}

// deriveTitle 根据对话的第一条消息推导标题：
// 优先使用消息正文，其次是文档附件名，仅有图片时使用固定标题。
func deriveTitle(msg model.Message) string {
	title := msg.Content
	if title == "" {
		if msg.DocumentName != "" {
			title = "Chat about " + msg.DocumentName
		} else if msg.ImageDataURI != "" {
			title = "Chat about image"
		} else {
			return model.DefaultTitle
		}
	}
	return truncateTitle(title)
}

// truncateTitle 按字符数截断标题，截断时追加省略号。
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= titleMaxRunes {
		return title
	}
	return string(runes[:titleMaxRunes]) + titleEllipsis
}
