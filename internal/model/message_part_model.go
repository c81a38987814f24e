package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MessagePart is the flattened relational shape of a message part. Exactly one
// variant's column group is populated per row, selected by Type. Tool
// invocations share the call id / state / error columns and keep their typed
// payloads in per-tool jsonb column pairs.
type MessagePart struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MessageId uuid.UUID `gorm:"type:uuid;not null;index"`
	Order     int       `gorm:"column:order;not null"`
	Type      string    `gorm:"type:varchar(50);not null"`

	// text / reasoning
	TextText      *string `gorm:"type:text;check:chk_text_text,type <> 'text' OR text_text IS NOT NULL"`
	ReasoningText *string `gorm:"type:text;check:chk_reasoning_text,type <> 'reasoning' OR reasoning_text IS NOT NULL"`

	// file
	FileMediaType *string `gorm:"type:varchar(100)"`
	FileFilename  *string `gorm:"type:text"`
	FileURL       *string `gorm:"type:text;check:chk_file_url,type <> 'file' OR file_url IS NOT NULL"`

	// source-url
	SourceURLSourceId *string `gorm:"type:text"`
	SourceURLURL      *string `gorm:"type:text;check:chk_source_url,type <> 'source-url' OR source_url_url IS NOT NULL"`
	SourceURLTitle    *string `gorm:"type:text"`

	// source-document
	SourceDocumentSourceId  *string `gorm:"type:text"`
	SourceDocumentMediaType *string `gorm:"type:varchar(100)"`
	SourceDocumentTitle     *string `gorm:"type:text"`
	SourceDocumentFilename  *string `gorm:"type:text"`

	// shared tool columns
	ToolCallId    *string `gorm:"type:text;check:chk_tool_call_id,type NOT LIKE 'tool-%' OR tool_call_id IS NOT NULL"`
	ToolState     *string `gorm:"type:varchar(20);check:chk_tool_state,tool_state IS NULL OR tool_state IN ('input-streaming','input-available','output-available','output-error')"`
	ToolErrorText *string `gorm:"type:text"`

	// per-tool payloads
	ToolSearchInput     datatypes.JSON `gorm:"type:jsonb"`
	ToolSearchOutput    datatypes.JSON `gorm:"type:jsonb"`
	ToolFetchInput      datatypes.JSON `gorm:"type:jsonb"`
	ToolFetchOutput     datatypes.JSON `gorm:"type:jsonb"`
	ToolQuestionInput   datatypes.JSON `gorm:"type:jsonb"`
	ToolQuestionOutput  datatypes.JSON `gorm:"type:jsonb"`
	ToolTodoWriteInput  datatypes.JSON `gorm:"type:jsonb"`
	ToolTodoWriteOutput datatypes.JSON `gorm:"type:jsonb"`
	ToolTodoReadInput   datatypes.JSON `gorm:"type:jsonb"`
	ToolTodoReadOutput  datatypes.JSON `gorm:"type:jsonb"`

	// dynamic-tool (runtime-discovered tools collapsed into one row shape)
	DynamicToolName   *string        `gorm:"type:text;check:chk_dynamic_tool_name,type <> 'dynamic-tool' OR dynamic_tool_name IS NOT NULL"`
	DynamicToolOrigin *string        `gorm:"type:varchar(10)"`
	DynamicToolInput  datatypes.JSON `gorm:"type:jsonb"`
	DynamicToolOutput datatypes.JSON `gorm:"type:jsonb"`

	// data-* passthrough
	DataPrefix  *string        `gorm:"type:text"`
	DataContent datatypes.JSON `gorm:"type:jsonb"`
	DataId      *string        `gorm:"type:text"`

	ProviderMetadata datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`

	Message *Message `gorm:"foreignKey:MessageId;constraint:OnDelete:CASCADE"`
}

func (MessagePart) TableName() string {
	return "message_parts"
}
