package service

import "github.com/mannavlakhab/studio/internal/model"

// ProjectHistory 将对话消息投影为提供给生成后端的历史轮次。
// 最后一条消息是本次提交、尚未得到回答的消息，不计入历史；
// 其余消息保持原始顺序，assistant 角色映射为线上协议的 "ai"。
func ProjectHistory(messages []model.Message) []model.Turn {
	if len(messages) <= 1 {
		return nil
	}

	turns := make([]model.Turn, 0, len(messages)-1)
	for _, msg := range messages[:len(messages)-1] {
		role := model.TurnRoleUser
		if msg.Role == model.RoleAssistant {
			role = model.TurnRoleAI
		}
		turns = append(turns, model.Turn{Role: role, Content: msg.Content})
	}
	return turns
}
