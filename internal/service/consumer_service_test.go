package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-research-chat-be/pkg/llm"
)

// fixedTitleProvider returns a canned string from Generate so title
// post-processing can be exercised directly.
type fixedTitleProvider struct {
	title string
}

func (p *fixedTitleProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", nil
}

func (p *fixedTitleProvider) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.ToolDef, options ...llm.Option) (*llm.StepResponse, error) {
	return &llm.StepResponse{}, nil
}

func (p *fixedTitleProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.title, nil
}

func titleService(raw string) *consumerService {
	return &consumerService{llmProvider: &fixedTitleProvider{title: raw}}
}

func TestGenerateTitleTrimsQuotesAndWhitespace(t *testing.T) {
	cs := titleService("  \"Quantum Computing Basics\"  ")

	title, err := cs.generateTitle(context.Background(), "what is quantum computing")

	require.NoError(t, err)
	assert.Equal(t, "Quantum Computing Basics", title)
}

func TestGenerateTitleTruncatesLongOutput(t *testing.T) {
	cs := titleService(strings.Repeat("a", 200))

	title, err := cs.generateTitle(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Len(t, []rune(title), 80)
}

func TestGenerateTitleTruncatesOnRuneBoundary(t *testing.T) {
	// 100 three-byte runes; a byte-wise cut at 80 would land mid-rune and
	// leave the string invalid UTF-8.
	cs := titleService(strings.Repeat("日", 100))

	title, err := cs.generateTitle(context.Background(), "prompt")

	require.NoError(t, err)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, strings.Repeat("日", 80), title)
}

func TestGenerateTitleRejectsEmptyOutput(t *testing.T) {
	cs := titleService("  \"\"  ")

	_, err := cs.generateTitle(context.Background(), "prompt")

	require.Error(t, err)
}
