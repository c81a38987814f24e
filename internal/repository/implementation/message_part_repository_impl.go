package implementation

import (
	"context"

	"ai-research-chat-be/internal/entity"
	"ai-research-chat-be/internal/mapper"
	"ai-research-chat-be/internal/model"
	"ai-research-chat-be/internal/repository/contract"
	"ai-research-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessagePartRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PartMapper
}

func NewMessagePartRepository(db *gorm.DB) contract.MessagePartRepository {
	return &MessagePartRepositoryImpl{
		db:     db,
		mapper: mapper.NewPartMapper(),
	}
}

func (r *MessagePartRepositoryImpl) ReplaceForMessage(ctx context.Context, messageId uuid.UUID, parts []entity.Part) error {
	rows := r.mapper.ToRows(parts, messageId)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := (specification.ByMessageID{MessageID: messageId}).Apply(tx).Delete(&model.MessagePart{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(rows).Error
	})
}

func (r *MessagePartRepositoryImpl) FindByMessageId(ctx context.Context, messageId uuid.UUID) ([]entity.Part, error) {
	var rows []*model.MessagePart
	err := specification.ByMessageID{MessageID: messageId}.
		Apply(r.db.WithContext(ctx)).
		Order("\"order\" ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToParts(rows)
}

func (r *MessagePartRepositoryImpl) FindByMessageIds(ctx context.Context, messageIds []uuid.UUID) (map[uuid.UUID][]entity.Part, error) {
	result := make(map[uuid.UUID][]entity.Part)
	if len(messageIds) == 0 {
		return result, nil
	}

	var rows []*model.MessagePart
	err := specification.ByMessageIDs{MessageIDs: messageIds}.
		Apply(r.db.WithContext(ctx)).
		Order("\"order\" ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byMessage := make(map[uuid.UUID][]*model.MessagePart)
	for _, row := range rows {
		byMessage[row.MessageId] = append(byMessage[row.MessageId], row)
	}
	for id, group := range byMessage {
		parts, err := r.mapper.ToParts(group)
		if err != nil {
			return nil, err
		}
		result[id] = parts
	}
	return result, nil
}

func (r *MessagePartRepositoryImpl) DeleteByMessageIds(ctx context.Context, messageIds []uuid.UUID) error {
	if len(messageIds) == 0 {
		return nil
	}
	return specification.ByMessageIDs{MessageIDs: messageIds}.
		Apply(r.db.WithContext(ctx)).
		Delete(&model.MessagePart{}).Error
}
