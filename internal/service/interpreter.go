package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"propertychat/internal/config"
	"propertychat/internal/model"
	"propertychat/internal/utils"
)

const interpreterPrompt = `You are a real estate search assistant. The user refines a property search over several messages.
You receive the user's latest message and the current search criteria as JSON.

Reply with a single JSON object containing:
- message: a short, friendly reply to show the user (string, required)
- only the criteria fields the latest message changes:
  - location: area or city name (string)
  - amenities: the complete list of required amenities (array of strings, replaces the current list)
  - min_bedrooms, max_bedrooms, min_bathrooms, max_bathrooms (integers)
  - min_price, max_price (numbers, in the listing currency)
  - min_size, max_size (numbers, square feet)

Important rules:
- Respond ONLY with valid JSON
- Omit every field the user did not talk about; omitted fields keep their current value
- Use null to drop a constraint the user no longer wants ("any price is fine" => "max_price": null)
- For prices: "1.5M" = 1500000, "800K" = 800000
- For sizes: "1000 sqft" = 1000

Examples:
Current: {"location": null, "min_bedrooms": null}
Message: "3 bedroom place in Punggol"
Response: {"message": "Here are 3 bedroom homes in Punggol.", "location": "Punggol", "min_bedrooms": 3}

Current: {"location": "Punggol", "max_price": 900000}
Message: "actually budget doesn't matter, but it needs a pool and a gym"
Response: {"message": "No budget limit, with a pool and a gym.", "max_price": null, "amenities": ["Pool", "Gym"]}`

const defaultReply = "Here are the properties that match what you're looking for."

// chatCompleter is the slice of the go-openai client used here
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMInterpreter interprets utterances with an OpenAI-compatible chat model in JSON mode
type LLMInterpreter struct {
	client chatCompleter
	cfg    config.OpenAIConfig
	logger *zap.Logger
}

// NewLLMInterpreter creates an interpreter from cfg
func NewLLMInterpreter(cfg config.OpenAIConfig, logger *zap.Logger) (*LLMInterpreter, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.APIBase, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("LLM interpreter initialized",
		zap.String("model", cfg.ChatModel),
		zap.String("base", clientCfg.BaseURL))

	return &LLMInterpreter{client: openai.NewClientWithConfig(clientCfg), cfg: cfg, logger: logger}, nil
}

// Interpret implements Interpreter
func (i *LLMInterpreter) Interpret(ctx context.Context, utterance string, current model.Criteria) (*model.Interpretation, error) {
	currentJSON, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("encode current criteria: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model: i.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: interpreterPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Current: %s\nMessage: %q", currentJSON, utterance)},
		},
		Temperature:    float32(i.cfg.ChatTemperature),
		TopP:           float32(i.cfg.ChatTopP),
		MaxTokens:      i.cfg.ChatMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := i.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	content := resp.Choices[0].Message.Content
	var out model.Interpretation
	if err := utils.ParseAIJSON(content, &out); err != nil {
		i.logger.Warn("unparseable model output", zap.String("content", content))
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	if err := validateInterpretation(&out); err != nil {
		return nil, fmt.Errorf("model response validation failed: %w", err)
	}

	i.logger.Debug("utterance interpreted",
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("tokens", resp.Usage.TotalTokens))
	return &out, nil
}

// validateInterpretation applies business rules to a model answer. Ranges
// are not cross-checked: a later turn may fix the other bound.
func validateInterpretation(in *model.Interpretation) error {
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		in.Message = defaultReply
	}

	for name, f := range map[string]model.Field[int]{
		"min_bedrooms":  in.MinBedrooms,
		"max_bedrooms":  in.MaxBedrooms,
		"min_bathrooms": in.MinBathrooms,
		"max_bathrooms": in.MaxBathrooms,
	} {
		if v, ok := f.Get(); ok && (v < 0 || v > 20) {
			return fmt.Errorf("%s must be between 0 and 20, got %d", name, v)
		}
	}

	for name, f := range map[string]model.Field[float64]{
		"min_price": in.MinPrice,
		"max_price": in.MaxPrice,
		"min_size":  in.MinSize,
		"max_size":  in.MaxSize,
	} {
		if v, ok := f.Get(); ok && v < 0 {
			return fmt.Errorf("%s cannot be negative, got %f", name, v)
		}
	}
	return nil
}
