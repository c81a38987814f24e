package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
	ChatMessageRoleTool      = "tool"

	ChatVisibilityPrivate = "private"
	ChatVisibilityPublic  = "public"
)

// Search modes accepted by the researcher agent.
const (
	SearchModeQuick    = "quick"
	SearchModePlanning = "planning"
	SearchModeAdaptive = "adaptive"
)

// Trigger kinds for an inbound chat request.
const (
	TriggerSubmitMessage     = "submit-message"
	TriggerRegenerateMessage = "regenerate-message"
)

// Registered tool names. Each one owns a `tool-<name>` part type and a
// dedicated input/output column pair in the message_parts table.
const (
	ToolNameSearch    = "search"
	ToolNameFetch     = "fetch"
	ToolNameQuestion  = "question"
	ToolNameTodoWrite = "todoWrite"
	ToolNameTodoRead  = "todoRead"
)

// Tool part lifecycle states. The set is closed: a persisted tool row with a
// state outside this set is corrupt.
const (
	ToolStateInputStreaming  = "input-streaming"
	ToolStateInputAvailable  = "input-available"
	ToolStateOutputAvailable = "output-available"
	ToolStateOutputError     = "output-error"
)

// Origin classifications for runtime-discovered tools.
const (
	DynamicToolOriginMCP     = "mcp"
	DynamicToolOriginDynamic = "dynamic"
)

// MCPToolPrefix marks tool names discovered from MCP servers at runtime.
// They collapse into the single dynamic-tool row shape on persistence.
const MCPToolPrefix = "mcp__"
