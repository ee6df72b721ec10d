package service

import (
	"sort"

	"github.com/google/uuid"

	"campus_chat/internal/domain"
)

// summarizeConversations группирует личные сообщения пользователя по ключу пары.
// Счетчики непрочитанных каждый раз считаются заново по флагам read.
func summarizeConversations(userID uuid.UUID, messages []*domain.DirectMessage) []*domain.ConversationSummary {
	byKey := make(map[string]*domain.ConversationSummary)
	for _, m := range messages {
		if !m.Involves(userID) {
			continue
		}

		summary, ok := byKey[m.ConversationKey]
		if !ok {
			summary = &domain.ConversationSummary{ConversationKey: m.ConversationKey}
			byKey[m.ConversationKey] = summary
		}
		if summary.LastMessage == nil || newer(m, summary.LastMessage) {
			summary.LastMessage = m
			summary.LastDate = m.CreatedAt
		}
		if m.UnreadFor(userID) {
			summary.UnreadCount++
		}
	}

	out := make([]*domain.ConversationSummary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastDate.Equal(out[j].LastDate) {
			return out[i].LastDate.After(out[j].LastDate)
		}
		return out[i].ConversationKey < out[j].ConversationKey
	})
	return out
}

func countUnread(userID uuid.UUID, messages []*domain.DirectMessage) int {
	n := 0
	for _, m := range messages {
		if m.UnreadFor(userID) {
			n++
		}
	}
	return n
}

func newer(a, b *domain.DirectMessage) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
