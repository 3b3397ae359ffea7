package decision

import (
	"context"
	"fmt"
	"google.golang.org/genai"
	"time"
)

type GeminiConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	Temperature  float32
	Timeout      time.Duration
	Instructions string
}

// Gemini keeps the conversation in a genai chat session, so history grows with every turn.
type Gemini struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
	chat   *genai.Chat
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		cc.HTTPOptions.Timeout = genai.Ptr(cfg.Timeout)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  cfg.Model,
		config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(cfg.Instructions, genai.RoleUser),
			Temperature:       genai.Ptr(cfg.Temperature),
			ResponseMIMEType:  "application/json",
		},
	}, nil
}

func (g *Gemini) Send(ctx context.Context, p Prompt) (string, error) {
	if g.chat == nil {
		chat, err := g.client.Chats.Create(ctx, g.model, g.config, nil)
		if err != nil {
			return "", fmt.Errorf("create chat: %w", err)
		}
		g.chat = chat
	}

	resp, err := g.chat.Send(ctx,
		genai.NewPartFromBytes(p.Image, p.MIMEType),
		genai.NewPartFromText(p.Objective),
		genai.NewPartFromText(p.Elements),
	)
	if err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}

func (g *Gemini) Reset() {
	g.chat = nil
}

// History returns the number of turns, user and model, the chat currently carries.
func (g *Gemini) History() int {
	if g.chat == nil {
		return 0
	}
	return len(g.chat.History(false))
}
