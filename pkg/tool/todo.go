package tool

import (
	"context"
	"fmt"
	"sync"

	"ai-research-chat-be/internal/constant"
)

// Todo is one plan item in a research run.
type Todo struct {
	Id      string `json:"id"`
	Content string `json:"content"`
	Status  string `json:"status"` // "pending" | "in_progress" | "completed"
}

// TodoStore holds the plan for one agent run. One store per run; the todo
// tools close over it.
type TodoStore struct {
	mu    sync.Mutex
	todos []Todo
}

func NewTodoStore() *TodoStore {
	return &TodoStore{}
}

func (s *TodoStore) Replace(todos []Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = todos
}

func (s *TodoStore) List() []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

// NewTodoWriteTool replaces the full todo list with the submitted items.
func NewTodoWriteTool(store *TodoStore) *Tool {
	return &Tool{
		Name:        constant.ToolNameTodoWrite,
		Description: "Write the research plan as a todo list. Submitting replaces the whole list, so include every item with its current status.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"todos": map[string]interface{}{
					"type":        "array",
					"description": "The complete todo list",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"id":      map[string]interface{}{"type": "string"},
							"content": map[string]interface{}{"type": "string"},
							"status": map[string]interface{}{
								"type": "string",
								"enum": []string{"pending", "in_progress", "completed"},
							},
						},
						"required": []string{"id", "content", "status"},
					},
				},
			},
			"required": []string{"todos"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}, callId string) <-chan Event {
			return Run(ctx, args, func(ctx context.Context) (map[string]interface{}, error) {
				raw, ok := args["todos"].([]interface{})
				if !ok {
					return nil, fmt.Errorf("todoWrite: todos array is required")
				}

				todos := make([]Todo, 0, len(raw))
				for _, item := range raw {
					entry, ok := item.(map[string]interface{})
					if !ok {
						return nil, fmt.Errorf("todoWrite: invalid todo item")
					}
					todo := Todo{
						Id:      asString(entry["id"]),
						Content: asString(entry["content"]),
						Status:  asString(entry["status"]),
					}
					if todo.Content == "" {
						return nil, fmt.Errorf("todoWrite: todo content is required")
					}
					todos = append(todos, todo)
				}

				store.Replace(todos)
				return map[string]interface{}{
					"todos": todosToMaps(todos),
					"count": float64(len(todos)),
				}, nil
			})
		},
	}
}

// NewTodoReadTool returns the current todo list.
func NewTodoReadTool(store *TodoStore) *Tool {
	return &Tool{
		Name:        constant.ToolNameTodoRead,
		Description: "Read the current research plan todo list.",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		Execute: func(ctx context.Context, args map[string]interface{}, callId string) <-chan Event {
			return Run(ctx, args, func(ctx context.Context) (map[string]interface{}, error) {
				todos := store.List()
				return map[string]interface{}{
					"todos": todosToMaps(todos),
					"count": float64(len(todos)),
				}, nil
			})
		},
	}
}

func todosToMaps(todos []Todo) []interface{} {
	out := make([]interface{}, len(todos))
	for i, t := range todos {
		out[i] = map[string]interface{}{
			"id":      t.Id,
			"content": t.Content,
			"status":  t.Status,
		}
	}
	return out
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
