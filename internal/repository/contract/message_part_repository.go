package contract

import (
	"context"

	"ai-research-chat-be/internal/entity"

	"github.com/google/uuid"
)

type MessagePartRepository interface {
	// ReplaceForMessage atomically swaps the persisted parts of a message for
	// the encoded batch. Order is re-indexed dense and zero-based.
	ReplaceForMessage(ctx context.Context, messageId uuid.UUID, parts []entity.Part) error
	FindByMessageId(ctx context.Context, messageId uuid.UUID) ([]entity.Part, error)
	FindByMessageIds(ctx context.Context, messageIds []uuid.UUID) (map[uuid.UUID][]entity.Part, error)
	DeleteByMessageIds(ctx context.Context, messageIds []uuid.UUID) error
}
