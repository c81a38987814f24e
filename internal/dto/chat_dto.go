package dto

import (
	"time"

	"github.com/google/uuid"
)

// SendChatRequest is one inbound chat turn. Id identifies the conversation;
// a nil MessageId with a regenerate trigger falls back to the latest
// regenerable message.
type SendChatRequest struct {
	Id        uuid.UUID              `json:"id" validate:"required"`
	Trigger   string                 `json:"trigger" validate:"required,oneof=submit-message regenerate-message"`
	Mode      string                 `json:"mode" validate:"omitempty,oneof=quick planning adaptive"`
	MessageId *uuid.UUID             `json:"message_id"`
	Message   *ChatMessagePayload    `json:"message"`
	Snapshot  []ChatSnapshotMessage  `json:"snapshot" validate:"omitempty,dive"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// ChatSnapshotMessage is one entry of the conversation the client already
// holds. When supplied on an append, it replaces the storage read.
type ChatSnapshotMessage struct {
	Role  string            `json:"role" validate:"required,oneof=user assistant"`
	Parts []ChatPartPayload `json:"parts" validate:"required,min=1,dive"`
}

type ChatMessagePayload struct {
	Id    uuid.UUID         `json:"id" validate:"required"`
	Role  string            `json:"role" validate:"required,oneof=user"`
	Parts []ChatPartPayload `json:"parts" validate:"required,min=1,dive"`
}

type ChatPartPayload struct {
	Type string `json:"type" validate:"required"`
	Text string `json:"text"`
}

type SendChatResponse struct {
	ChatId    uuid.UUID           `json:"chat_id"`
	MessageId uuid.UUID           `json:"message_id"`
	Parts     []ChatPartResponse  `json:"parts"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ChatPartResponse is the wire shape of one decoded part.
type ChatPartResponse struct {
	Type             string                 `json:"type"`
	Text             string                 `json:"text,omitempty"`
	MediaType        string                 `json:"media_type,omitempty"`
	Filename         string                 `json:"filename,omitempty"`
	URL              string                 `json:"url,omitempty"`
	SourceId         string                 `json:"source_id,omitempty"`
	Title            string                 `json:"title,omitempty"`
	ToolName         string                 `json:"tool_name,omitempty"`
	ToolCallId       string                 `json:"tool_call_id,omitempty"`
	State            string                 `json:"state,omitempty"`
	Input            map[string]interface{} `json:"input,omitempty"`
	Output           map[string]interface{} `json:"output,omitempty"`
	ErrorText        string                 `json:"error_text,omitempty"`
	DataId           string                 `json:"data_id,omitempty"`
	Data             interface{}            `json:"data,omitempty"`
	ProviderMetadata map[string]interface{} `json:"provider_metadata,omitempty"`
}

type GetAllChatResponse struct {
	Id         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Visibility string     `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type ShowChatResponse struct {
	Id         uuid.UUID             `json:"id"`
	Title      string                `json:"title"`
	Visibility string                `json:"visibility"`
	CreatedAt  time.Time             `json:"created_at"`
	Messages   []ChatMessageResponse `json:"messages"`
}

type ChatMessageResponse struct {
	Id        uuid.UUID              `json:"id"`
	Role      string                 `json:"role"`
	Parts     []ChatPartResponse     `json:"parts"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type UpdateChatVisibilityRequest struct {
	Id         uuid.UUID
	Visibility string `json:"visibility" validate:"required,oneof=private public"`
}

// PublishChatTitleMessage is the event payload consumed by the background
// title generator.
type PublishChatTitleMessage struct {
	ChatId      uuid.UUID `json:"chat_id"`
	FirstPrompt string    `json:"first_prompt"`
}
