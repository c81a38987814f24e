package unitofwork

import (
	"context"

	"ai-research-chat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatRepository() contract.ChatRepository
	MessageRepository() contract.MessageRepository
	MessagePartRepository() contract.MessagePartRepository
	FeedbackRepository() contract.FeedbackRepository
}
