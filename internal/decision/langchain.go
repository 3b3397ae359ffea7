package decision

import (
	"context"
	"fmt"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type OpenAIConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	Temperature  float64
	Instructions string
}

// LangChain runs the conversation against any langchaingo model. The whole message history,
// images included, is resent every turn.
type LangChain struct {
	model        llms.Model
	instructions string
	history      []llms.MessageContent
	opts         []llms.CallOption
}

func NewLangChain(model llms.Model, instructions string, opts ...llms.CallOption) *LangChain {
	l := &LangChain{
		model:        model,
		instructions: instructions,
		opts:         opts,
	}
	l.Reset()
	return l
}

func NewOpenAI(cfg OpenAIConfig) (*LangChain, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("new openai: %w", err)
	}
	return NewLangChain(llm, cfg.Instructions, llms.WithTemperature(cfg.Temperature)), nil
}

func (l *LangChain) Send(ctx context.Context, p Prompt) (string, error) {
	turn := llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.BinaryPart(p.MIMEType, p.Image),
			llms.TextPart(p.Objective),
			llms.TextPart(p.Elements),
		},
	}
	messages := make([]llms.MessageContent, 0, len(l.history)+2)
	messages = append(messages, l.history...)
	messages = append(messages, turn)

	resp, err := l.model.GenerateContent(ctx, messages, l.opts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", errEmptyReply
	}
	reply := resp.Choices[0].Content
	l.history = append(messages, llms.TextParts(llms.ChatMessageTypeAI, reply))
	return reply, nil
}

func (l *LangChain) Reset() {
	l.history = []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, l.instructions)}
}

// History returns the number of messages, the system instruction included.
func (l *LangChain) History() int {
	return len(l.history)
}
