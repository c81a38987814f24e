package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-research-chat-be/internal/constant"
	"ai-research-chat-be/internal/dto"
	"ai-research-chat-be/internal/entity"
	"ai-research-chat-be/internal/pkg/logger"
	"ai-research-chat-be/internal/pkg/serverutils"
	"ai-research-chat-be/internal/repository/specification"
	"ai-research-chat-be/internal/repository/unitofwork"
	"ai-research-chat-be/pkg/agent"
	"ai-research-chat-be/pkg/llm"
	pktNats "ai-research-chat-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var (
	ErrChatNotFound    = serverutils.NewAPIError(fiber.StatusNotFound, "chat not found")
	ErrMessageNotFound = serverutils.NewAPIError(fiber.StatusNotFound, "message not found")
	ErrAccessDenied    = serverutils.NewAPIError(fiber.StatusForbidden, "access denied")
	ErrEmptyPrompt     = serverutils.NewAPIError(fiber.StatusBadRequest, "message has no text content")
)

// PartStreamer delivers parts to live subscribers as the researcher
// produces them.
type PartStreamer interface {
	Publish(chatId uuid.UUID, event string, payload interface{})
}

type IChatService interface {
	Send(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllChatResponse, error)
	Show(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ShowChatResponse, error)
	UpdateVisibility(ctx context.Context, userId uuid.UUID, req *dto.UpdateChatVisibilityRequest) error
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	researcher       *agent.Researcher
	publisherService IPublisherService
	streamer         PartStreamer
	eventPublisher   *pktNats.Publisher
	logger           logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	researcher *agent.Researcher,
	publisherService IPublisherService,
	streamer PartStreamer,
	eventPublisher *pktNats.Publisher,
	sysLogger logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		researcher:       researcher,
		publisherService: publisherService,
		streamer:         streamer,
		eventPublisher:   eventPublisher,
		logger:           sysLogger,
	}
}

func (c *chatService) Send(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	if req.Trigger == constant.TriggerRegenerateMessage {
		return c.regenerate(ctx, userId, req)
	}
	return c.submit(ctx, userId, req)
}

// submit handles a new user turn. For a chat id never seen before, the chat
// row is created in the background while the researcher already runs; the
// message save waits on that handle so the foreign key holds.
func (c *chatService) submit(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	if req.Message == nil {
		return nil, ErrEmptyPrompt
	}
	prompt := messageText(req.Message)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, err
	}

	var pending chan error
	if chat == nil {
		pending = c.createChatAsync(ctx, req.Id, userId, prompt)
	} else if chat.UserId != userId {
		return nil, ErrAccessDenied
	}

	// An append with a client-held snapshot extends it in memory instead of
	// re-reading the conversation from storage.
	var history []llm.Message
	if chat != nil && len(req.Snapshot) > 0 {
		history = snapshotHistory(req.Snapshot)
	} else if history, err = c.loadHistory(ctx, uow, req.Id); err != nil {
		return nil, err
	}
	history = append(history, llm.Message{Role: constant.ChatMessageRoleUser, Content: prompt})

	result, runErr := c.runResearcher(ctx, req.Id, req.Mode, history)

	if pending != nil {
		if err := <-pending; err != nil {
			return nil, fmt.Errorf("create chat: %w", err)
		}
	}
	if runErr != nil && len(result.Parts) == 0 {
		return nil, runErr
	}

	if err := c.saveUserTurn(ctx, req.Id, req.Message.Id, payloadParts(req.Message), req.Metadata); err != nil {
		return nil, err
	}

	return c.saveAssistantTurn(ctx, req.Id, req.Mode, result)
}

func (c *chatService) regenerate(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if chat.UserId != userId {
		return nil, ErrAccessDenied
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: req.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	target, idx := resolveRegenTarget(messages, req.MessageId)
	if target == nil {
		return nil, ErrMessageNotFound
	}

	var staleIds []uuid.UUID
	if target.Role == constant.ChatMessageRoleAssistant {
		// The target itself is replaced along with everything after it.
		for _, m := range messages[idx:] {
			staleIds = append(staleIds, m.Id)
		}
	} else {
		// Regenerating from a user message keeps the message and drops the
		// strict tail. An edited payload replaces the stored content first.
		if req.Message != nil {
			if err := c.saveUserTurn(ctx, req.Id, target.Id, payloadParts(req.Message), req.Metadata); err != nil {
				return nil, err
			}
		}
		for _, m := range messages[idx+1:] {
			staleIds = append(staleIds, m.Id)
		}
	}

	if len(staleIds) > 0 {
		if err := c.deleteMessages(ctx, staleIds); err != nil {
			return nil, err
		}
	}

	// Re-read what survived so the run sees exactly the persisted state.
	history, err := c.loadHistory(ctx, uow, req.Id)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, ErrMessageNotFound
	}

	result, runErr := c.runResearcher(ctx, req.Id, req.Mode, history)
	if runErr != nil && len(result.Parts) == 0 {
		return nil, runErr
	}

	return c.saveAssistantTurn(ctx, req.Id, req.Mode, result)
}

// runResearcher executes the agent, streaming every part to subscribers.
func (c *chatService) runResearcher(ctx context.Context, chatId uuid.UUID, modeName string, history []llm.Message) (*agent.RunResult, error) {
	mode := agent.ResolveMode(modeName, c.streamer != nil)
	sink := func(part entity.Part) {
		if c.streamer != nil {
			c.streamer.Publish(chatId, "part", partToResponse(part))
		}
	}

	result, err := c.researcher.Run(ctx, mode, history, sink)
	if result == nil {
		result = &agent.RunResult{}
	}
	if err != nil {
		c.logger.Error("Chat", "Researcher run failed", map[string]interface{}{
			"chat_id": chatId,
			"mode":    mode.Name,
			"error":   err.Error(),
		})
	}
	return result, err
}

// resolveRegenTarget picks the message a regenerate request targets. An id
// that matches nothing is treated like no id at all (clients can hold stale
// ids after concurrent edits); the fallback is the most recent assistant or
// user message by position, whichever sits later in history. Only a chat
// with no messages yields no target.
func resolveRegenTarget(messages []*entity.Message, messageId *uuid.UUID) (*entity.Message, int) {
	if messageId != nil {
		for i, m := range messages {
			if m.Id == *messageId {
				return m, i
			}
		}
	}

	for i := len(messages) - 1; i >= 0; i-- {
		switch messages[i].Role {
		case constant.ChatMessageRoleAssistant, constant.ChatMessageRoleUser:
			return messages[i], i
		}
	}
	return nil, -1
}

// createChatAsync inserts the chat row off the request path and schedules
// title generation from the first prompt.
func (c *chatService) createChatAsync(ctx context.Context, chatId, userId uuid.UUID, prompt string) chan error {
	pending := make(chan error, 1)

	go func() {
		bgCtx := context.WithoutCancel(ctx)
		uow := c.uowFactory.NewUnitOfWork(bgCtx)
		err := uow.ChatRepository().Create(bgCtx, &entity.Chat{
			Id:         chatId,
			UserId:     userId,
			Title:      "New Chat",
			Visibility: constant.ChatVisibilityPrivate,
			CreatedAt:  time.Now(),
		})
		pending <- err
		if err != nil {
			return
		}

		payload, err := json.Marshal(dto.PublishChatTitleMessage{
			ChatId:      chatId,
			FirstPrompt: prompt,
		})
		if err == nil {
			err = c.publisherService.Publish(bgCtx, payload)
		}
		if err != nil {
			c.logger.Warn("Chat", "Failed to schedule title generation", map[string]interface{}{
				"chat_id": chatId,
				"error":   err.Error(),
			})
		}

		c.publishEvent(bgCtx, "CHAT_CREATED", map[string]interface{}{
			"chat_id": chatId,
			"user_id": userId,
		})
	}()

	return pending
}

// saveUserTurn upserts one user message and swaps its persisted parts.
func (c *chatService) saveUserTurn(ctx context.Context, chatId, messageId uuid.UUID, parts []entity.Part, metadata map[string]interface{}) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	err := uow.MessageRepository().Upsert(ctx, &entity.Message{
		Id:        messageId,
		ChatId:    chatId,
		Role:      constant.ChatMessageRoleUser,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	if err := uow.MessagePartRepository().ReplaceForMessage(ctx, messageId, parts); err != nil {
		return err
	}
	return uow.Commit()
}

func (c *chatService) saveAssistantTurn(ctx context.Context, chatId uuid.UUID, modeName string, result *agent.RunResult) (*dto.SendChatResponse, error) {
	messageId := uuid.New()
	metadata := map[string]interface{}{
		"mode":  agent.ResolveMode(modeName, false).Name,
		"steps": result.Steps,
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	err := uow.MessageRepository().Create(ctx, &entity.Message{
		Id:        messageId,
		ChatId:    chatId,
		Role:      constant.ChatMessageRoleAssistant,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := uow.MessagePartRepository().ReplaceForMessage(ctx, messageId, result.Parts); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if c.streamer != nil {
		c.streamer.Publish(chatId, "finish", map[string]interface{}{"message_id": messageId})
	}

	return &dto.SendChatResponse{
		ChatId:    chatId,
		MessageId: messageId,
		Parts:     partsToResponses(result.Parts),
		Metadata:  metadata,
	}, nil
}

func (c *chatService) deleteMessages(ctx context.Context, ids []uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.MessagePartRepository().DeleteByMessageIds(ctx, ids); err != nil {
		return err
	}
	if err := uow.MessageRepository().DeleteByIds(ctx, ids); err != nil {
		return err
	}
	return uow.Commit()
}

// loadHistory rebuilds the model-facing conversation from persisted
// messages. Only text content replays; tool transcripts stay out of the
// prompt.
func (c *chatService) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, chatId uuid.UUID) ([]llm.Message, error) {
	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.Id)
	}
	partsById, err := uow.MessagePartRepository().FindByMessageIds(ctx, ids)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		text := partsText(partsById[m.Id])
		if text == "" {
			continue
		}
		history = append(history, llm.Message{Role: m.Role, Content: text})
	}
	return history, nil
}

func (c *chatService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllChatResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	chats, err := uow.ChatRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.GetAllChatResponse, 0, len(chats))
	for _, chat := range chats {
		result = append(result, &dto.GetAllChatResponse{
			Id:         chat.Id,
			Title:      chat.Title,
			Visibility: chat.Visibility,
			CreatedAt:  chat.CreatedAt,
			UpdatedAt:  chat.UpdatedAt,
		})
	}
	return result, nil
}

// Show returns a chat with its decoded messages. Private chats are only
// visible to their owner; public chats to anyone.
func (c *chatService) Show(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ShowChatResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	chat, err := uow.ChatRepository().FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.VisibleTo{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		// A private chat someone else owns reads as denied, not missing.
		hidden, err := uow.ChatRepository().Count(ctx, specification.ByID{ID: chatId})
		if err != nil {
			return nil, err
		}
		if hidden > 0 {
			return nil, ErrAccessDenied
		}
		return nil, ErrChatNotFound
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.Id)
	}
	partsById, err := uow.MessagePartRepository().FindByMessageIds(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := &dto.ShowChatResponse{
		Id:         chat.Id,
		Title:      chat.Title,
		Visibility: chat.Visibility,
		CreatedAt:  chat.CreatedAt,
		Messages:   make([]dto.ChatMessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		res.Messages = append(res.Messages, dto.ChatMessageResponse{
			Id:        m.Id,
			Role:      m.Role,
			Parts:     partsToResponses(partsById[m.Id]),
			Metadata:  m.Metadata,
			CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

func (c *chatService) UpdateVisibility(ctx context.Context, userId uuid.UUID, req *dto.UpdateChatVisibilityRequest) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}
	if chat.UserId != userId {
		return ErrAccessDenied
	}

	chat.Visibility = req.Visibility
	now := time.Now()
	chat.UpdatedAt = &now
	return uow.ChatRepository().Update(ctx, chat)
}

func (c *chatService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}
	if chat.UserId != userId {
		return ErrAccessDenied
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	messages, err := uow.MessageRepository().FindAll(ctx, specification.ByChatID{ChatID: id})
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.Id)
	}
	if len(ids) > 0 {
		if err := uow.MessagePartRepository().DeleteByMessageIds(ctx, ids); err != nil {
			return err
		}
	}
	if err := uow.MessageRepository().DeleteByChatId(ctx, id); err != nil {
		return err
	}
	if err := uow.ChatRepository().Delete(ctx, id); err != nil {
		return err
	}
	return uow.Commit()
}

func (c *chatService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if c.eventPublisher == nil {
		return
	}
	if err := c.eventPublisher.Publish(ctx, eventFor(eventType, data)); err != nil {
		c.logger.Warn("Chat", "Failed to publish domain event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

// payloadParts converts inbound wire parts to entities.
func payloadParts(msg *dto.ChatMessagePayload) []entity.Part {
	parts := make([]entity.Part, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		if p.Type == "text" && p.Text != "" {
			parts = append(parts, entity.TextPart{Text: p.Text})
		}
	}
	return parts
}

// snapshotHistory replays the client's already-loaded conversation as the
// model-facing history. Only text content carries over, matching what a
// storage read would produce.
func snapshotHistory(snapshot []dto.ChatSnapshotMessage) []llm.Message {
	history := make([]llm.Message, 0, len(snapshot))
	for _, m := range snapshot {
		var b strings.Builder
		for _, p := range m.Parts {
			if p.Type == "text" {
				b.WriteString(p.Text)
			}
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		history = append(history, llm.Message{Role: m.Role, Content: text})
	}
	return history
}

func messageText(msg *dto.ChatMessagePayload) string {
	var b strings.Builder
	for _, p := range msg.Parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func partsText(parts []entity.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if tp, ok := p.(entity.TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func partsToResponses(parts []entity.Part) []dto.ChatPartResponse {
	out := make([]dto.ChatPartResponse, 0, len(parts))
	for _, p := range parts {
		out = append(out, partToResponse(p))
	}
	return out
}

func partToResponse(p entity.Part) dto.ChatPartResponse {
	res := dto.ChatPartResponse{Type: p.PartType()}
	switch t := p.(type) {
	case entity.TextPart:
		res.Text = t.Text
		res.ProviderMetadata = t.ProviderMetadata
	case entity.ReasoningPart:
		res.Text = t.Text
		res.ProviderMetadata = t.ProviderMetadata
	case entity.FilePart:
		res.MediaType = t.MediaType
		res.Filename = t.Filename
		res.URL = t.URL
	case entity.SourceURLPart:
		res.SourceId = t.SourceId
		res.URL = t.URL
		res.Title = t.Title
	case entity.SourceDocumentPart:
		res.SourceId = t.SourceId
		res.MediaType = t.MediaType
		res.Title = t.Title
		res.Filename = t.Filename
	case entity.ToolPart:
		res.ToolName = t.Tool
		res.ToolCallId = t.CallId
		res.State = t.State
		res.Input = t.Input
		res.Output = t.Output
		res.ErrorText = t.ErrorText
	case entity.DynamicToolPart:
		res.ToolName = t.ToolName
		res.ToolCallId = t.CallId
		res.State = t.State
		res.Input = t.Input
		res.Output = t.Output
		res.ErrorText = t.ErrorText
	case entity.DataPart:
		res.DataId = t.Id
		res.Data = t.Content
	}
	return res
}
