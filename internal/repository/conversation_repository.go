// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/mannavlakhab/studio/internal/model"
	"github.com/mannavlakhab/studio/pkg/log"
)

// 持久化使用的两个键：对话列表与活跃会话指针。
const (
	conversationsKey = "chat:conversations"
	activeIDKey      = "chat:active_conversation"
)

// StoredState 是持久化层保存的完整状态。
type StoredState struct {
	Conversations []model.Conversation
	ActiveID      string
}

// ConversationRepository 定义了对话状态的持久化接口。
type ConversationRepository interface {
	// LoadState 读取完整状态。持久化数据损坏时回退为空状态，不向调用方报错；
	// 仅当存储本身不可用时返回 error。
	LoadState(ctx context.Context) (*StoredState, error)
	// SaveState 覆盖写入完整状态。ActiveID 为空时删除对应条目。
	SaveState(ctx context.Context, state *StoredState) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(redisClient *redis.Client) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient}
}

// LoadState 从 Redis 读取对话列表与活跃会话指针。
func (r *redisConversationRepository) LoadState(ctx context.Context) (*StoredState, error) {
	state := &StoredState{}

	raw, err := r.redisClient.Get(ctx, conversationsKey).Result()
	switch {
	case err == redis.Nil:
		// 尚未持久化过，返回空状态
	case err != nil:
		return nil, fmt.Errorf("failed to get conversations: %w", err)
	default:
		state.Conversations = parseConversations([]byte(raw))
	}

	activeID, err := r.redisClient.Get(ctx, activeIDKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get active conversation id: %w", err)
	}
	if err == nil {
		state.ActiveID = activeID
	}

	return state, nil
}

// SaveState 将完整状态覆盖写入 Redis。
func (r *redisConversationRepository) SaveState(ctx context.Context, state *StoredState) error {
	jsonData, err := json.Marshal(state.Conversations)
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}
	if err := r.redisClient.Set(ctx, conversationsKey, jsonData, 0).Err(); err != nil {
		return fmt.Errorf("failed to set conversations: %w", err)
	}

	if state.ActiveID == "" {
		if err := r.redisClient.Del(ctx, activeIDKey).Err(); err != nil {
			return fmt.Errorf("failed to clear active conversation id: %w", err)
		}
		return nil
	}
	if err := r.redisClient.Set(ctx, activeIDKey, state.ActiveID, 0).Err(); err != nil {
		return fmt.Errorf("failed to set active conversation id: %w", err)
	}
	return nil
}

// parseConversations 解析持久化的对话列表。数据损坏时回退为空列表。
func parseConversations(raw []byte) []model.Conversation {
	var conversations []model.Conversation
	if err := json.Unmarshal(raw, &conversations); err != nil {
		log.Warnf("持久化的对话数据损坏，已回退为空列表: %v", err)
		return nil
	}
	return conversations
}
