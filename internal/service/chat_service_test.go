package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-research-chat-be/internal/constant"
	"ai-research-chat-be/internal/dto"
	"ai-research-chat-be/internal/entity"
	"ai-research-chat-be/internal/repository/contract"
	"ai-research-chat-be/internal/repository/specification"
	"ai-research-chat-be/internal/repository/unitofwork"
	"ai-research-chat-be/pkg/agent"
	"ai-research-chat-be/pkg/llm"
	"ai-research-chat-be/pkg/tool"
)

// --- in-memory persistence fakes ---

type memStore struct {
	mu       sync.Mutex
	chats    map[uuid.UUID]*entity.Chat
	messages []*entity.Message
	parts    map[uuid.UUID][]entity.Part
}

func newMemStore() *memStore {
	return &memStore{
		chats: make(map[uuid.UUID]*entity.Chat),
		parts: make(map[uuid.UUID][]entity.Part),
	}
}

type memFactory struct{ store *memStore }

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUow{store: f.store}
}

type memUow struct{ store *memStore }

func (u *memUow) Begin(ctx context.Context) error { return nil }
func (u *memUow) Commit() error                   { return nil }
func (u *memUow) Rollback() error                 { return nil }

func (u *memUow) ChatRepository() contract.ChatRepository {
	return &memChatRepo{store: u.store}
}
func (u *memUow) MessageRepository() contract.MessageRepository {
	return &memMessageRepo{store: u.store}
}
func (u *memUow) MessagePartRepository() contract.MessagePartRepository {
	return &memPartRepo{store: u.store}
}
func (u *memUow) FeedbackRepository() contract.FeedbackRepository { return nil }

type memChatRepo struct{ store *memStore }

func (r *memChatRepo) Create(ctx context.Context, chat *entity.Chat) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *chat
	r.store.chats[chat.Id] = &cp
	return nil
}

func (r *memChatRepo) Update(ctx context.Context, chat *entity.Chat) error {
	return r.Create(ctx, chat)
}

func (r *memChatRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.chats, id)
	return nil
}

func (r *memChatRepo) DeleteUnscoped(ctx context.Context, id uuid.UUID) error {
	return r.Delete(ctx, id)
}

func chatMatches(chat *entity.Chat, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if chat.Id != s.ID {
				return false
			}
		case specification.UserOwnedBy:
			if chat.UserId != s.UserID {
				return false
			}
		case specification.VisibleTo:
			if chat.UserId != s.UserID && chat.Visibility != constant.ChatVisibilityPublic {
				return false
			}
		}
	}
	return true
}

func (r *memChatRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chat, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, chat := range r.store.chats {
		if chatMatches(chat, specs) {
			cp := *chat
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memChatRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Chat
	for _, chat := range r.store.chats {
		if chatMatches(chat, specs) {
			cp := *chat
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memChatRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type memMessageRepo struct{ store *memStore }

func (r *memMessageRepo) Create(ctx context.Context, msg *entity.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *msg
	r.store.messages = append(r.store.messages, &cp)
	return nil
}

func (r *memMessageRepo) Upsert(ctx context.Context, msg *entity.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.messages {
		if existing.Id == msg.Id {
			cp := *msg
			cp.CreatedAt = existing.CreatedAt
			r.store.messages[i] = &cp
			return nil
		}
	}
	cp := *msg
	r.store.messages = append(r.store.messages, &cp)
	return nil
}

func (r *memMessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DeleteByIds(ctx, []uuid.UUID{id})
}

func (r *memMessageRepo) DeleteByIds(ctx context.Context, ids []uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := r.store.messages[:0]
	for _, m := range r.store.messages {
		if !drop[m.Id] {
			kept = append(kept, m)
		}
	}
	r.store.messages = kept
	return nil
}

func (r *memMessageRepo) DeleteByChatId(ctx context.Context, chatId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.messages[:0]
	for _, m := range r.store.messages {
		if m.ChatId != chatId {
			kept = append(kept, m)
		}
	}
	r.store.messages = kept
	return nil
}

func (r *memMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *memMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Message
	for _, m := range r.store.messages {
		keep := true
		for _, spec := range specs {
			if byChat, ok := spec.(specification.ByChatID); ok && m.ChatId != byChat.ChatID {
				keep = false
			}
		}
		if keep {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type memPartRepo struct{ store *memStore }

func (r *memPartRepo) ReplaceForMessage(ctx context.Context, messageId uuid.UUID, parts []entity.Part) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.parts[messageId] = append([]entity.Part(nil), parts...)
	return nil
}

func (r *memPartRepo) FindByMessageId(ctx context.Context, messageId uuid.UUID) ([]entity.Part, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]entity.Part(nil), r.store.parts[messageId]...), nil
}

func (r *memPartRepo) FindByMessageIds(ctx context.Context, messageIds []uuid.UUID) (map[uuid.UUID][]entity.Part, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make(map[uuid.UUID][]entity.Part, len(messageIds))
	for _, id := range messageIds {
		out[id] = append([]entity.Part(nil), r.store.parts[id]...)
	}
	return out, nil
}

func (r *memPartRepo) DeleteByMessageIds(ctx context.Context, messageIds []uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range messageIds {
		delete(r.store.parts, id)
	}
	return nil
}

// --- collaborator fakes ---

type scriptedProvider struct {
	mu        sync.Mutex
	steps     []llm.StepResponse
	histories [][]llm.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", nil
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "Generated Title", nil
}

func (p *scriptedProvider) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.ToolDef, options ...llm.Option) (*llm.StepResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.histories = append(p.histories, append([]llm.Message(nil), history...))
	if len(p.steps) == 0 {
		return &llm.StepResponse{Content: "fallback answer"}, nil
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	return &step, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func newTestService(store *memStore, steps []llm.StepResponse) IChatService {
	return newTestServiceWithProvider(store, &scriptedProvider{steps: steps})
}

func newTestServiceWithProvider(store *memStore, provider *scriptedProvider) IChatService {
	researcher := agent.NewResearcher(provider, tool.NewRegistry())
	return NewChatService(
		&memFactory{store: store},
		researcher,
		&fakePublisher{},
		nil,
		nil,
		nopLogger{},
	)
}

func seedChat(store *memStore, userId uuid.UUID) uuid.UUID {
	chatId := uuid.New()
	store.chats[chatId] = &entity.Chat{
		Id:         chatId,
		UserId:     userId,
		Title:      "Seeded",
		Visibility: constant.ChatVisibilityPrivate,
		CreatedAt:  time.Now().Add(-time.Hour),
	}
	return chatId
}

func seedMessage(store *memStore, chatId uuid.UUID, role, text string, at time.Time) uuid.UUID {
	id := uuid.New()
	store.messages = append(store.messages, &entity.Message{
		Id:        id,
		ChatId:    chatId,
		Role:      role,
		CreatedAt: at,
	})
	store.parts[id] = []entity.Part{entity.TextPart{Text: text}}
	return id
}

func submitRequest(chatId uuid.UUID, text string) *dto.SendChatRequest {
	return &dto.SendChatRequest{
		Id:      chatId,
		Trigger: constant.TriggerSubmitMessage,
		Mode:    constant.SearchModeAdaptive,
		Message: &dto.ChatMessagePayload{
			Id:    uuid.New(),
			Role:  constant.ChatMessageRoleUser,
			Parts: []dto.ChatPartPayload{{Type: "text", Text: text}},
		},
	}
}

// --- tests ---

func TestSubmitCreatesChatAndPersistsBothTurns(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, []llm.StepResponse{{Content: "the answer"}})
	userId := uuid.New()
	chatId := uuid.New()

	res, err := svc.Send(context.Background(), userId, submitRequest(chatId, "what is Go"))
	require.NoError(t, err)

	assert.Equal(t, chatId, res.ChatId)
	assert.NotEmpty(t, res.Parts)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Contains(t, store.chats, chatId)
	assert.Equal(t, userId, store.chats[chatId].UserId)

	require.Len(t, store.messages, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, store.messages[0].Role)
	assert.Equal(t, constant.ChatMessageRoleAssistant, store.messages[1].Role)
	assert.NotEmpty(t, store.parts[store.messages[1].Id])
}

func TestSubmitRejectsEmptyPrompt(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)

	req := submitRequest(uuid.New(), "")
	_, err := svc.Send(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestSubmitDeniesForeignChat(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	chatId := seedChat(store, uuid.New())

	_, err := svc.Send(context.Background(), uuid.New(), submitRequest(chatId, "hello"))
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRegenerateAssistantReplacesTail(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, []llm.StepResponse{{Content: "regenerated"}})
	userId := uuid.New()
	chatId := seedChat(store, userId)

	base := time.Now().Add(-time.Minute)
	seedMessage(store, chatId, constant.ChatMessageRoleUser, "question", base)
	assistantId := seedMessage(store, chatId, constant.ChatMessageRoleAssistant, "old answer", base.Add(time.Second))

	res, err := svc.Send(context.Background(), userId, &dto.SendChatRequest{
		Id:        chatId,
		Trigger:   constant.TriggerRegenerateMessage,
		MessageId: &assistantId,
	})
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.messages, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, store.messages[0].Role)
	assert.Equal(t, res.MessageId, store.messages[1].Id)
	assert.NotEqual(t, assistantId, store.messages[1].Id)
	assert.NotContains(t, store.parts, assistantId)
}

func TestRegenerateUserKeepsTargetDropsStrictTail(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, []llm.StepResponse{{Content: "second take"}})
	userId := uuid.New()
	chatId := seedChat(store, userId)

	base := time.Now().Add(-time.Minute)
	seedMessage(store, chatId, constant.ChatMessageRoleUser, "first", base)
	seedMessage(store, chatId, constant.ChatMessageRoleAssistant, "answer one", base.Add(time.Second))
	userId2 := seedMessage(store, chatId, constant.ChatMessageRoleUser, "second", base.Add(2*time.Second))
	seedMessage(store, chatId, constant.ChatMessageRoleAssistant, "answer two", base.Add(3*time.Second))

	_, err := svc.Send(context.Background(), userId, &dto.SendChatRequest{
		Id:        chatId,
		Trigger:   constant.TriggerRegenerateMessage,
		MessageId: &userId2,
	})
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.messages, 4)
	assert.Equal(t, userId2, store.messages[2].Id, "target user message survives")
	assert.Equal(t, constant.ChatMessageRoleAssistant, store.messages[3].Role)
}

func TestRegenerateFallbackPicksLatestAssistant(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, []llm.StepResponse{{Content: "redo"}})
	userId := uuid.New()
	chatId := seedChat(store, userId)

	base := time.Now().Add(-time.Minute)
	seedMessage(store, chatId, constant.ChatMessageRoleUser, "q1", base)
	seedMessage(store, chatId, constant.ChatMessageRoleAssistant, "a1", base.Add(time.Second))
	seedMessage(store, chatId, constant.ChatMessageRoleUser, "q2", base.Add(2*time.Second))
	lastAssistant := seedMessage(store, chatId, constant.ChatMessageRoleAssistant, "a2", base.Add(3*time.Second))

	_, err := svc.Send(context.Background(), userId, &dto.SendChatRequest{
		Id:      chatId,
		Trigger: constant.TriggerRegenerateMessage,
	})
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.messages, 4)
	assert.NotContains(t, store.parts, lastAssistant, "old assistant tail removed")
	assert.Equal(t, "a1", store.parts[store.messages[1].Id][0].(entity.TextPart).Text, "earlier assistant untouched")
}

func TestRegenerateFallbackUsesLatestUserWithoutAssistant(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, []llm.StepResponse{{Content: "first answer"}})
	userId := uuid.New()
	chatId := seedChat(store, userId)

	userMsg := seedMessage(store, chatId, constant.ChatMessageRoleUser, "unanswered", time.Now().Add(-time.Minute))

	_, err := svc.Send(context.Background(), userId, &dto.SendChatRequest{
		Id:      chatId,
		Trigger: constant.TriggerRegenerateMessage,
	})
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.messages, 2)
	assert.Equal(t, userMsg, store.messages[0].Id)
	assert.Equal(t, constant.ChatMessageRoleAssistant, store.messages[1].Role)
}

func TestRegenerateFallbackTargetsTrailingUserMessage(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, []llm.StepResponse{{Content: "answer for q2"}})
	userId := uuid.New()
	chatId := seedChat(store, userId)

	base := time.Now().Add(-time.Minute)
	seedMessage(store, chatId, constant.ChatMessageRoleUser, "q1", base)
	a1 := seedMessage(store, chatId, constant.ChatMessageRoleAssistant, "a1", base.Add(time.Second))
	q2 := seedMessage(store, chatId, constant.ChatMessageRoleUser, "q2", base.Add(2*time.Second))

	_, err := svc.Send(context.Background(), userId, &dto.SendChatRequest{
		Id:      chatId,
		Trigger: constant.TriggerRegenerateMessage,
	})
	require.NoError(t, err)

	// The trailing user message is the target, not the older assistant turn.
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.messages, 4)
	assert.Equal(t, q2, store.messages[2].Id, "trailing user message survives")
	assert.Equal(t, constant.ChatMessageRoleAssistant, store.messages[3].Role)
	assert.Equal(t, "a1", store.parts[a1][0].(entity.TextPart).Text, "earlier assistant untouched")
}

func TestRegenerateStaleIdFallsBackToTail(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, []llm.StepResponse{{Content: "fresh answer"}})
	userId := uuid.New()
	chatId := seedChat(store, userId)

	base := time.Now().Add(-time.Minute)
	seedMessage(store, chatId, constant.ChatMessageRoleUser, "question", base)
	oldAssistant := seedMessage(store, chatId, constant.ChatMessageRoleAssistant, "old answer", base.Add(time.Second))
	stale := uuid.New()

	res, err := svc.Send(context.Background(), userId, &dto.SendChatRequest{
		Id:        chatId,
		Trigger:   constant.TriggerRegenerateMessage,
		MessageId: &stale,
	})
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.messages, 2)
	assert.Equal(t, res.MessageId, store.messages[1].Id)
	assert.NotContains(t, store.parts, oldAssistant, "tail assistant replaced despite the stale id")
}

func TestRegenerateEmptyChat(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	userId := uuid.New()
	chatId := seedChat(store, userId)

	_, err := svc.Send(context.Background(), userId, &dto.SendChatRequest{
		Id:      chatId,
		Trigger: constant.TriggerRegenerateMessage,
	})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestShowRespectsVisibility(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	owner := uuid.New()
	stranger := uuid.New()
	chatId := seedChat(store, owner)

	_, err := svc.Show(context.Background(), stranger, chatId)
	assert.ErrorIs(t, err, ErrAccessDenied)

	store.chats[chatId].Visibility = constant.ChatVisibilityPublic
	res, err := svc.Show(context.Background(), stranger, chatId)
	require.NoError(t, err)
	assert.Equal(t, chatId, res.Id)

	_, err = svc.Show(context.Background(), stranger, uuid.New())
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestSubmitWithSnapshotSkipsHistoryReload(t *testing.T) {
	store := newMemStore()
	provider := &scriptedProvider{steps: []llm.StepResponse{{Content: "follow-up answer"}}}
	svc := newTestServiceWithProvider(store, provider)
	userId := uuid.New()
	chatId := seedChat(store, userId)

	base := time.Now().Add(-time.Minute)
	seedMessage(store, chatId, constant.ChatMessageRoleUser, "stored question", base)
	seedMessage(store, chatId, constant.ChatMessageRoleAssistant, "stored answer", base.Add(time.Second))

	req := submitRequest(chatId, "and then?")
	req.Snapshot = []dto.ChatSnapshotMessage{
		{Role: constant.ChatMessageRoleUser, Parts: []dto.ChatPartPayload{{Type: "text", Text: "client question"}}},
		{Role: constant.ChatMessageRoleAssistant, Parts: []dto.ChatPartPayload{{Type: "text", Text: "client answer"}}},
	}

	_, err := svc.Send(context.Background(), userId, req)
	require.NoError(t, err)

	// The model sees the conversation the client holds, not the stored one.
	provider.mu.Lock()
	defer provider.mu.Unlock()
	require.NotEmpty(t, provider.histories)
	var texts []string
	for _, m := range provider.histories[0] {
		texts = append(texts, m.Content)
	}
	assert.Contains(t, texts, "client question")
	assert.Contains(t, texts, "client answer")
	assert.NotContains(t, texts, "stored question")
	assert.Contains(t, texts, "and then?")
}
