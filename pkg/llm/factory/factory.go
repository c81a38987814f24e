package factory

import (
	"fmt"

	"ai-research-chat-be/pkg/llm"
	"ai-research-chat-be/pkg/llm/ollama"
)

// NewProvider builds the model runtime for the researcher agent. An unknown
// provider type is a hard construction error; there is no fallback model.
func NewProvider(providerType, modelName, baseURL string) (llm.Provider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
