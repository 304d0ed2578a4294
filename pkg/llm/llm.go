package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"

	"github.com/sead/sqlassist/pkg/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const defaultTemperature = 0.7

type Message struct {
	Role    string
	Content string
}

type Client struct {
	OpenAICli      *openai.Client
	ChatModel      string
	EmbeddingModel string
	Dimensions     int64
	Temperature    float64
}

func New(cfg *config.Config, extra ...option.RequestOption) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.LLMBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.LLMBaseURL))
	}
	opts = append(opts, extra...)
	return &Client{
		OpenAICli:      openai.NewClient(opts...),
		ChatModel:      cfg.LLMChatModel,
		EmbeddingModel: cfg.LLMEmbeddingModel,
		Dimensions:     cfg.LLMEmbeddingDimensions,
		Temperature:    defaultTemperature,
	}
}

// Submit sends the conversation and returns the content of the first choice.
func (c *Client) Submit(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("prompt is empty")
	}
	params := openai.ChatCompletionNewParams{
		Messages:    openai.F(toOpenAI(messages)),
		Model:       openai.String(c.ChatModel),
		Temperature: openai.Float(c.Temperature),
	}

	log.Debug().Int("messages", len(messages)).Str("model", c.ChatModel).Msg("Submitting prompt")
	completion, err := c.OpenAICli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to get completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("completion has no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *Client) GenerateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input:          openai.F[openai.EmbeddingNewParamsInputUnion](shared.UnionString(text)),
		Model:          openai.String(c.EmbeddingModel),
		EncodingFormat: openai.F(openai.EmbeddingNewParamsEncodingFormatFloat),
	}
	if c.Dimensions > 0 && c.EmbeddingModel != "text-embedding-ada-002" {
		params.Dimensions = openai.Int(c.Dimensions)
	}
	resp, err := c.OpenAICli.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response has no data")
	}
	embedding := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
