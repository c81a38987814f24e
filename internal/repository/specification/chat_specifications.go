package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByChatID filters messages belonging to a chat
type ByChatID struct {
	ChatID uuid.UUID
}

func (s ByChatID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_id = ?", s.ChatID)
}

// ByMessageID filters parts belonging to a message
type ByMessageID struct {
	MessageID uuid.UUID
}

func (s ByMessageID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("message_id = ?", s.MessageID)
}

// ByMessageIDs filters parts belonging to any of the messages
type ByMessageIDs struct {
	MessageIDs []uuid.UUID
}

func (s ByMessageIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("message_id IN ?", s.MessageIDs)
}

// VisibleTo keeps chats readable by the user: owned rows plus public ones.
type VisibleTo struct {
	UserID uuid.UUID
}

func (s VisibleTo) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ? OR visibility = 'public'", s.UserID)
}
