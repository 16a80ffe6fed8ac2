package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"go.uber.org/zap"

	"github.com/aa87864763/wanyongzhi/internal/config"
	"github.com/aa87864763/wanyongzhi/internal/models"
)

var (
	ErrProviderUnavailable = errors.New("model provider is not configured")
	ErrNoUsableCandidates  = errors.New("model returned no usable questions")
)

// LLMClient is the interface every model backend satisfies.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Result is the outcome of one generation call after parsing and
// normalization.
type Result struct {
	Candidates   []models.QuestionResponse
	Rejected     []string
	PromptTokens int
	OutputTokens int
}

// Generator routes a request to the backend of its model provider and turns
// the reply into validated candidates.
type Generator struct {
	clients map[models.ModelProvider]LLMClient
	log     *zap.Logger
}

// NewGenerator builds the provider table for the configured mode. In api
// mode a provider without credentials is left out and requests for it fail
// with ErrProviderUnavailable.
func NewGenerator(cfg config.Generator, log *zap.Logger) *Generator {
	clients := make(map[models.ModelProvider]LLMClient)

	switch cfg.Mode {
	case "cli":
		cli := NewCLIClient(cfg.CLIPath, log)
		for p := range models.ValidModelProviders {
			clients[p] = cli
		}
		log.Info("generator using claude CLI", zap.String("path", cfg.CLIPath))
	case "mock":
		mock := NewMockClient()
		for p := range models.ValidModelProviders {
			clients[p] = mock
		}
		log.Info("generator using mock data")
	default:
		if cfg.AnthropicAPIKey != "" {
			clients[models.ModelClaude] = NewAPIClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, log)
		}
		if cfg.DeepseekAPIKey != "" {
			clients[models.ModelDeepseek] = NewOpenAIClient(cfg.DeepseekAPIKey, cfg.DeepseekBaseURL, cfg.DeepseekModel, log)
		}
		if cfg.QwenAPIKey != "" {
			clients[models.ModelTongyi] = NewOpenAIClient(cfg.QwenAPIKey, cfg.QwenBaseURL, cfg.QwenModel, log)
		}
		for p := range models.ValidModelProviders {
			if _, ok := clients[p]; !ok {
				log.Warn("model provider has no API key, requests for it will fail", zap.String("provider", string(p)))
			}
		}
	}

	return &Generator{clients: clients, log: log}
}

// NewGeneratorWithClients uses the given backends as they are.
func NewGeneratorWithClients(clients map[models.ModelProvider]LLMClient, log *zap.Logger) *Generator {
	return &Generator{clients: clients, log: log}
}

// Generate asks the backend for req.Count questions of req.Type. req must
// already carry defaults. A reply with fewer usable questions than requested
// is not an error; a reply with none is ErrNoUsableCandidates.
func (g *Generator) Generate(ctx context.Context, req models.QuestionRequest) (*Result, error) {
	llm, ok := g.clients[req.Model]
	if !ok {
		return nil, fmt.Errorf("generate with %q: %w", req.Model, ErrProviderUnavailable)
	}

	resp, err := llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("generate with %q: %w", req.Model, err)
	}

	batch, err := ParseResponse(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse %q response: %w", req.Model, err)
	}

	candidates, rejected := Normalize(req.Type, req.Language, batch.Questions)
	for _, reason := range rejected {
		g.log.Warn("dropped generated question", zap.String("provider", string(req.Model)), zap.String("reason", reason))
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("generate with %q: %w", req.Model, ErrNoUsableCandidates)
	}
	if len(candidates) > req.Count {
		candidates = candidates[:req.Count]
	}

	return &Result{
		Candidates:   candidates,
		Rejected:     rejected,
		PromptTokens: resp.PromptTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// ── APIClient: Anthropic SDK ───────────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
	log    *zap.Logger
}

func NewAPIClient(apiKey, model string, log *zap.Logger) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{client: &client, model: model, log: log}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Info("retrying anthropic call", zap.Duration("wait", wait), zap.Int("attempt", attempt+1))
			if err := sleepContext(ctx, wait); err != nil {
				return nil, err
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.log.Warn("anthropic call failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
