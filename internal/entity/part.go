package entity

// Part is the atomic unit of message content. The set of variants is closed:
// every concrete type below maps to exactly one row shape in the
// message_parts table, except the transient step-tracking variants which are
// dropped on persistence.
type Part interface {
	PartType() string
}

type TextPart struct {
	Text             string
	ProviderMetadata map[string]interface{}
}

func (TextPart) PartType() string { return "text" }

type ReasoningPart struct {
	Text             string
	ProviderMetadata map[string]interface{}
}

func (ReasoningPart) PartType() string { return "reasoning" }

type FilePart struct {
	MediaType string
	Filename  string
	URL       string
}

func (FilePart) PartType() string { return "file" }

type SourceURLPart struct {
	SourceId string
	URL      string
	Title    string
}

func (SourceURLPart) PartType() string { return "source-url" }

type SourceDocumentPart struct {
	SourceId  string
	MediaType string
	Title     string
	Filename  string
}

func (SourceDocumentPart) PartType() string { return "source-document" }

// ToolPart carries one tool invocation in one of the four lifecycle states.
// Tool may be empty for a bare result event; the codec resolves the name by
// joining on CallId against the preceding call in the same batch.
type ToolPart struct {
	Tool      string
	CallId    string
	State     string
	Input     map[string]interface{}
	Output    map[string]interface{}
	ErrorText string
}

func (p ToolPart) PartType() string { return "tool-" + p.Tool }

// DynamicToolPart represents a runtime-discovered tool. The true tool name is
// data, not a type tag, because the relational schema cannot grow a column
// set per dynamically-named tool.
type DynamicToolPart struct {
	ToolName  string
	Origin    string
	CallId    string
	State     string
	Input     map[string]interface{}
	Output    map[string]interface{}
	ErrorText string
}

func (DynamicToolPart) PartType() string { return "dynamic-tool" }

// DataPart is an opaque namespaced passthrough variant.
type DataPart struct {
	Prefix  string
	Id      string
	Content interface{}
}

func (p DataPart) PartType() string { return "data-" + p.Prefix }

// StepStartPart marks a step boundary. Persisted as a bare typed row.
type StepStartPart struct{}

func (StepStartPart) PartType() string { return "step-start" }

// Transient step-tracking variants. They carry no durable state and are
// dropped by the codec.

type StepResultPart struct{}

func (StepResultPart) PartType() string { return "step-result" }

type StepContinuePart struct{}

func (StepContinuePart) PartType() string { return "step-continue" }

type StepFinishPart struct{}

func (StepFinishPart) PartType() string { return "step-finish" }
