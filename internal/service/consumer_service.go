package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-research-chat-be/internal/constant"
	"ai-research-chat-be/internal/dto"
	"ai-research-chat-be/internal/repository/specification"
	"ai-research-chat-be/internal/repository/unitofwork"
	"ai-research-chat-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService generates chat titles in the background. The chat
// creation path publishes the first prompt; this consumer asks the model for
// a short title, stores it and streams the update to subscribers.
type consumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	uowFactory  unitofwork.RepositoryFactory
	llmProvider llm.Provider
	streamer    PartStreamer
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.Provider,
	streamer PartStreamer,
) IConsumerService {
	return &consumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		uowFactory:  uowFactory,
		llmProvider: llmProvider,
		streamer:    streamer,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishChatTitleMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal title message: %v", err)
		msg.Ack() // malformed payloads never become valid, don't retry
		return
	}

	log.Printf("[INFO] Generating title for chat %s", payload.ChatId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: payload.ChatId})
	if err != nil {
		log.Printf("[ERROR] Failed to load chat %s: %v", payload.ChatId, err)
		msg.Nack()
		return
	}
	if chat == nil {
		log.Printf("[WARN] Chat %s deleted before title generation", payload.ChatId)
		msg.Ack()
		return
	}

	title, err := cs.generateTitle(ctx, payload.FirstPrompt)
	if err != nil {
		log.Printf("[ERROR] Title generation failed for chat %s: %v", payload.ChatId, err)
		msg.Nack()
		return
	}

	chat.Title = title
	now := time.Now()
	chat.UpdatedAt = &now
	if err := uow.ChatRepository().Update(ctx, chat); err != nil {
		log.Printf("[ERROR] Failed to store title for chat %s: %v", payload.ChatId, err)
		msg.Nack()
		return
	}

	if cs.streamer != nil {
		cs.streamer.Publish(payload.ChatId, "title", map[string]interface{}{"title": title})
	}
	msg.Ack()
}

func (cs *consumerService) generateTitle(ctx context.Context, firstPrompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	raw, err := cs.llmProvider.Generate(genCtx,
		fmt.Sprintf(constant.ChatTitlePromptV1, firstPrompt),
		llm.WithTemperature(0.3),
	)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if title == "" {
		return "", fmt.Errorf("model returned an empty title")
	}
	// Keep sidebar titles bounded even when the model ignores the limit.
	// Cutting on runes keeps multi-byte characters intact.
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}
	return title, nil
}
