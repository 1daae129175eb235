package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiChatModel exposes a Gemini model through the eino chat model interface.
type GeminiChatModel struct {
	client      *genai.Client
	modelName   string
	temperature float32
	maxTokens   int32
}

func NewGeminiChatModel(ctx context.Context, apiKey, modelName string, temperature float32, maxTokens int) (*GeminiChatModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiChatModel{
		client:      client,
		modelName:   modelName,
		temperature: temperature,
		maxTokens:   int32(maxTokens),
	}, nil
}

// Close cleans up the Gemini client resources.
func (g *GeminiChatModel) Close() error {
	return g.client.Close()
}

func (g *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	// A fresh model per call keeps SystemInstruction from leaking between turns.
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(g.temperature)
	if g.maxTokens > 0 {
		m.SetMaxOutputTokens(g.maxTokens)
	}

	var system []string
	var parts []genai.Part
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		default:
			parts = append(parts, genai.Text(msg.Content))
		}
	}
	if len(system) > 0 {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}
	if len(parts) == 0 {
		return nil, errors.New("no user content to send")
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &UpstreamError{Kind: KindMalformed, Provider: "gemini", Err: errors.New("no response candidates from Gemini")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	return schema.AssistantMessage(text.String(), nil), nil
}

// Stream yields the whole reply as a single chunk.
func (g *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := g.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}
