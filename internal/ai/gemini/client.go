package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mockmate/mockmate/internal/ai"
)

const (
	defaultModel = "gemini-2.5-pro"

	// callTimeout bounds a single generation call. A timed-out call is
	// indistinguishable from any other failed call for the callers: they
	// fall back, they do not retry.
	callTimeout = 30 * time.Second
)

// Generator wraps the Google GenAI client to answer role-tagged message lists.
type Generator struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Generator{client: client, modelName: model, timeout: callTimeout}, nil
}

// Generate sends the ordered message list to Gemini and returns the first
// textual response. System-role messages become the system instruction; the
// remaining messages are sent as user content in their original order.
func (g *Generator) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("gemini generator is not initialized")
	}
	if len(messages) == 0 {
		return "", errors.New("at least one message is required")
	}

	config := &genai.GenerateContentConfig{}
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}

		part := &genai.Part{Text: text}
		if msg.Role == ai.RoleSystem {
			if config.SystemInstruction == nil {
				config.SystemInstruction = &genai.Content{Parts: []*genai.Part{part}}
				continue
			}
			config.SystemInstruction.Parts = append(config.SystemInstruction.Parts, part)
			continue
		}

		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{part},
		})
	}

	if len(contents) == 0 {
		return "", errors.New("at least one non-empty user message is required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
