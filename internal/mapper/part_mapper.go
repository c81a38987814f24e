package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"ai-research-chat-be/internal/constant"
	"ai-research-chat-be/internal/entity"
	"ai-research-chat-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ErrMalformedPart signals a corrupt persisted row (null or out-of-set tool
// state, unknown type tag). This is a data-model invariant violation, not a
// recoverable condition.
var ErrMalformedPart = errors.New("malformed message part")

// UnknownToolName is the fallback type suffix for a tool-result row whose
// call id has no matching call in the same batch.
const UnknownToolName = "unknown"

// PartMapper translates between the in-memory part union and the flattened
// message_parts row shape. ToRows and ToParts form a round-trip identity for
// every defined field of every known variant.
type PartMapper struct{}

func NewPartMapper() *PartMapper {
	return &PartMapper{}
}

// ToRows encodes parts into rows for one message. Transient step-tracking
// variants are dropped, invalid tool calls are logged and dropped, and the
// surviving rows are re-indexed to a dense zero-based order.
func (m *PartMapper) ToRows(parts []entity.Part, messageId uuid.UUID) []*model.MessagePart {
	// Bare result events carry no tool name of their own; resolve them by
	// joining on the call id of the preceding call event in this batch.
	callNames := make(map[string]string)
	for _, p := range parts {
		switch tp := p.(type) {
		case entity.ToolPart:
			if tp.Tool != "" && tp.CallId != "" {
				if _, seen := callNames[tp.CallId]; !seen {
					callNames[tp.CallId] = tp.Tool
				}
			}
		case entity.DynamicToolPart:
			if tp.ToolName != "" && tp.CallId != "" {
				if _, seen := callNames[tp.CallId]; !seen {
					callNames[tp.CallId] = tp.ToolName
				}
			}
		}
	}

	rows := make([]*model.MessagePart, 0, len(parts))
	for _, p := range parts {
		row := m.encodePart(p, callNames)
		if row == nil {
			continue
		}
		rows = append(rows, row)
	}

	// Dense zero-based order after drops.
	for i, row := range rows {
		row.MessageId = messageId
		row.Order = i
	}
	return rows
}

func (m *PartMapper) encodePart(p entity.Part, callNames map[string]string) *model.MessagePart {
	switch part := p.(type) {
	case entity.TextPart:
		return &model.MessagePart{
			Type:             "text",
			TextText:         strPtr(part.Text),
			ProviderMetadata: toJSON(part.ProviderMetadata),
		}
	case entity.ReasoningPart:
		return &model.MessagePart{
			Type:             "reasoning",
			ReasoningText:    strPtr(part.Text),
			ProviderMetadata: toJSON(part.ProviderMetadata),
		}
	case entity.FilePart:
		return &model.MessagePart{
			Type:          "file",
			FileMediaType: optStrPtr(part.MediaType),
			FileFilename:  optStrPtr(part.Filename),
			FileURL:       strPtr(part.URL),
		}
	case entity.SourceURLPart:
		return &model.MessagePart{
			Type:              "source-url",
			SourceURLSourceId: optStrPtr(part.SourceId),
			SourceURLURL:      strPtr(part.URL),
			SourceURLTitle:    optStrPtr(part.Title),
		}
	case entity.SourceDocumentPart:
		return &model.MessagePart{
			Type:                    "source-document",
			SourceDocumentSourceId:  optStrPtr(part.SourceId),
			SourceDocumentMediaType: optStrPtr(part.MediaType),
			SourceDocumentTitle:     optStrPtr(part.Title),
			SourceDocumentFilename:  optStrPtr(part.Filename),
		}
	case entity.StepStartPart:
		return &model.MessagePart{Type: "step-start"}
	case entity.StepResultPart, entity.StepContinuePart, entity.StepFinishPart:
		// Transient step tracking, no durable state.
		return nil
	case entity.ToolPart:
		return m.encodeToolPart(part, callNames)
	case entity.DynamicToolPart:
		return m.encodeDynamicToolPart(part)
	case entity.DataPart:
		return &model.MessagePart{
			Type:        "data-" + part.Prefix,
			DataPrefix:  strPtr(part.Prefix),
			DataContent: toJSONValue(part.Content),
			DataId:      optStrPtr(part.Id),
		}
	default:
		// Unrecognized variant: generic passthrough keyed by its type tag.
		prefix := strings.TrimPrefix(p.PartType(), "data-")
		return &model.MessagePart{
			Type:        "data-" + prefix,
			DataPrefix:  strPtr(prefix),
			DataContent: toJSONValue(p),
		}
	}
}

func (m *PartMapper) encodeToolPart(part entity.ToolPart, callNames map[string]string) *model.MessagePart {
	if part.CallId == "" {
		log.Printf("[WARN] Dropping tool part without call id (tool=%q state=%q)", part.Tool, part.State)
		return nil
	}

	name := part.Tool
	isCall := part.State == constant.ToolStateInputStreaming || part.State == constant.ToolStateInputAvailable
	if isCall {
		// A call event must carry its own name and input.
		if name == "" || part.Input == nil {
			log.Printf("[WARN] Dropping invalid tool call (callId=%s name=%q)", part.CallId, name)
			return nil
		}
	} else if name == "" {
		// Bare result event: join against the call sharing this id.
		name = callNames[part.CallId]
		if name == "" {
			name = UnknownToolName
		}
	}

	// Runtime-discovered tools collapse into the dynamic row shape.
	if strings.HasPrefix(name, constant.MCPToolPrefix) {
		return m.encodeDynamicToolPart(entity.DynamicToolPart{
			ToolName:  name,
			Origin:    constant.DynamicToolOriginMCP,
			CallId:    part.CallId,
			State:     part.State,
			Input:     part.Input,
			Output:    part.Output,
			ErrorText: part.ErrorText,
		})
	}

	row := &model.MessagePart{
		Type:          "tool-" + name,
		ToolCallId:    strPtr(part.CallId),
		ToolState:     strPtr(part.State),
		ToolErrorText: optStrPtr(part.ErrorText),
	}
	setToolPayload(row, name, toJSON(part.Input), toJSON(part.Output))
	return row
}

func (m *PartMapper) encodeDynamicToolPart(part entity.DynamicToolPart) *model.MessagePart {
	if part.CallId == "" || part.ToolName == "" {
		log.Printf("[WARN] Dropping invalid dynamic tool part (name=%q)", part.ToolName)
		return nil
	}
	origin := part.Origin
	if origin == "" {
		origin = constant.DynamicToolOriginDynamic
	}
	return &model.MessagePart{
		Type:              "dynamic-tool",
		ToolCallId:        strPtr(part.CallId),
		ToolState:         strPtr(part.State),
		ToolErrorText:     optStrPtr(part.ErrorText),
		DynamicToolName:   strPtr(part.ToolName),
		DynamicToolOrigin: strPtr(origin),
		DynamicToolInput:  toJSON(part.Input),
		DynamicToolOutput: toJSON(part.Output),
	}
}

// ToParts decodes rows back into the part union. Rows must be supplied in
// ascending order; the decode dispatches on the type tag and fails with
// ErrMalformedPart on corrupt tool rows.
func (m *PartMapper) ToParts(rows []*model.MessagePart) ([]entity.Part, error) {
	parts := make([]entity.Part, 0, len(rows))
	for _, row := range rows {
		part, err := m.decodeRow(row)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func (m *PartMapper) decodeRow(row *model.MessagePart) (entity.Part, error) {
	switch {
	case row.Type == "text":
		return entity.TextPart{
			Text:             deref(row.TextText),
			ProviderMetadata: fromJSON(row.ProviderMetadata),
		}, nil
	case row.Type == "reasoning":
		return entity.ReasoningPart{
			Text:             deref(row.ReasoningText),
			ProviderMetadata: fromJSON(row.ProviderMetadata),
		}, nil
	case row.Type == "file":
		return entity.FilePart{
			MediaType: deref(row.FileMediaType),
			Filename:  deref(row.FileFilename),
			URL:       deref(row.FileURL),
		}, nil
	case row.Type == "source-url":
		return entity.SourceURLPart{
			SourceId: deref(row.SourceURLSourceId),
			URL:      deref(row.SourceURLURL),
			Title:    deref(row.SourceURLTitle),
		}, nil
	case row.Type == "source-document":
		return entity.SourceDocumentPart{
			SourceId:  deref(row.SourceDocumentSourceId),
			MediaType: deref(row.SourceDocumentMediaType),
			Title:     deref(row.SourceDocumentTitle),
			Filename:  deref(row.SourceDocumentFilename),
		}, nil
	case row.Type == "step-start":
		return entity.StepStartPart{}, nil
	case row.Type == "dynamic-tool":
		state, err := m.toolState(row)
		if err != nil {
			return nil, err
		}
		part := entity.DynamicToolPart{
			ToolName: deref(row.DynamicToolName),
			Origin:   deref(row.DynamicToolOrigin),
			CallId:   deref(row.ToolCallId),
			State:    state,
			Input:    fromJSON(row.DynamicToolInput),
		}
		switch state {
		case constant.ToolStateOutputAvailable:
			part.Output = fromJSON(row.DynamicToolOutput)
		case constant.ToolStateOutputError:
			part.ErrorText = deref(row.ToolErrorText)
		}
		return part, nil
	case strings.HasPrefix(row.Type, "tool-"):
		return m.decodeToolRow(row)
	case strings.HasPrefix(row.Type, "data-"):
		prefix := deref(row.DataPrefix)
		if prefix == "" {
			prefix = strings.TrimPrefix(row.Type, "data-")
		}
		var content interface{}
		if len(row.DataContent) > 0 {
			_ = json.Unmarshal(row.DataContent, &content)
		}
		return entity.DataPart{
			Prefix:  prefix,
			Id:      deref(row.DataId),
			Content: content,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown part type %q", ErrMalformedPart, row.Type)
	}
}

func (m *PartMapper) decodeToolRow(row *model.MessagePart) (entity.Part, error) {
	state, err := m.toolState(row)
	if err != nil {
		return nil, err
	}

	name := strings.TrimPrefix(row.Type, "tool-")
	input, output := toolPayload(row, name)

	part := entity.ToolPart{
		Tool:   name,
		CallId: deref(row.ToolCallId),
		State:  state,
		Input:  fromJSON(input),
	}
	switch state {
	case constant.ToolStateOutputAvailable:
		part.Output = fromJSON(output)
	case constant.ToolStateOutputError:
		part.ErrorText = deref(row.ToolErrorText)
	}
	return part, nil
}

func (m *PartMapper) toolState(row *model.MessagePart) (string, error) {
	if row.ToolState == nil {
		return "", fmt.Errorf("%w: null tool state (type=%s)", ErrMalformedPart, row.Type)
	}
	switch *row.ToolState {
	case constant.ToolStateInputStreaming,
		constant.ToolStateInputAvailable,
		constant.ToolStateOutputAvailable,
		constant.ToolStateOutputError:
		return *row.ToolState, nil
	default:
		return "", fmt.Errorf("%w: tool state %q (type=%s)", ErrMalformedPart, *row.ToolState, row.Type)
	}
}

// setToolPayload routes a tool's input/output into its dedicated column pair.
// Tools without a registered column pair (e.g. the unknown fallback) keep
// only the shared columns.
func setToolPayload(row *model.MessagePart, name string, input, output datatypes.JSON) {
	switch name {
	case constant.ToolNameSearch:
		row.ToolSearchInput, row.ToolSearchOutput = input, output
	case constant.ToolNameFetch:
		row.ToolFetchInput, row.ToolFetchOutput = input, output
	case constant.ToolNameQuestion:
		row.ToolQuestionInput, row.ToolQuestionOutput = input, output
	case constant.ToolNameTodoWrite:
		row.ToolTodoWriteInput, row.ToolTodoWriteOutput = input, output
	case constant.ToolNameTodoRead:
		row.ToolTodoReadInput, row.ToolTodoReadOutput = input, output
	}
}

func toolPayload(row *model.MessagePart, name string) (datatypes.JSON, datatypes.JSON) {
	switch name {
	case constant.ToolNameSearch:
		return row.ToolSearchInput, row.ToolSearchOutput
	case constant.ToolNameFetch:
		return row.ToolFetchInput, row.ToolFetchOutput
	case constant.ToolNameQuestion:
		return row.ToolQuestionInput, row.ToolQuestionOutput
	case constant.ToolNameTodoWrite:
		return row.ToolTodoWriteInput, row.ToolTodoWriteOutput
	case constant.ToolNameTodoRead:
		return row.ToolTodoReadInput, row.ToolTodoReadOutput
	default:
		return nil, nil
	}
}

// Helpers

func strPtr(s string) *string {
	return &s
}

func optStrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toJSON(m map[string]interface{}) datatypes.JSON {
	if m == nil {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return raw
}

func toJSONValue(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func fromJSON(raw datatypes.JSON) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
