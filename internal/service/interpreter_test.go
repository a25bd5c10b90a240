package service

import (
	"context"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propertychat/internal/config"
	"propertychat/internal/model"
)

type fakeChat struct {
	content string
	err     error
	got     openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.got = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if f.content == "" {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}},
	}, nil
}

func newTestInterpreter(chat *fakeChat) *LLMInterpreter {
	return &LLMInterpreter{
		client: chat,
		cfg:    config.OpenAIConfig{ChatModel: "test-model", ChatTemperature: 0.2},
		logger: zap.NewNop(),
	}
}

func TestLLMInterpreter_Interpret(t *testing.T) {
	chat := &fakeChat{content: "```json\n{\"message\": \"Sure!\", \"min_bedrooms\": \"3\", \"max_price\": null}\n```"}
	interp := newTestInterpreter(chat)

	current := model.DefaultCriteria()
	current.Location = model.Set("Punggol")

	out, err := interp.Interpret(context.Background(), "3 beds, any price", current)
	require.NoError(t, err)

	assert.Equal(t, "Sure!", out.Message)
	assert.Equal(t, model.Set(3), out.MinBedrooms)
	assert.True(t, out.MaxPrice.IsNull())
	assert.True(t, out.Location.IsAbsent())

	assert.Equal(t, "test-model", chat.got.Model)
	require.Len(t, chat.got.Messages, 2)
	assert.Contains(t, chat.got.Messages[1].Content, `"location":"Punggol"`)
	assert.Contains(t, chat.got.Messages[1].Content, "3 beds, any price")
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, chat.got.ResponseFormat.Type)
}

func TestLLMInterpreter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		chat    *fakeChat
		wantErr string
	}{
		{name: "transport", chat: &fakeChat{err: errBoom}, wantErr: "boom"},
		{name: "no choices", chat: &fakeChat{}, wantErr: "no response"},
		{name: "not json", chat: &fakeChat{content: "I cannot help with that"}, wantErr: "parse"},
		{name: "negative price", chat: &fakeChat{content: `{"message": "x", "max_price": -5}`}, wantErr: "max_price"},
		{name: "absurd bedrooms", chat: &fakeChat{content: `{"message": "x", "min_bedrooms": 99}`}, wantErr: "min_bedrooms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestInterpreter(tt.chat).Interpret(context.Background(), "q", model.DefaultCriteria())
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestLLMInterpreter_EmptyMessageGetsDefault(t *testing.T) {
	out, err := newTestInterpreter(&fakeChat{content: `{"location": "Bedok"}`}).
		Interpret(context.Background(), "Bedok", model.DefaultCriteria())
	require.NoError(t, err)

	assert.Equal(t, defaultReply, out.Message)
	assert.Equal(t, model.Set("Bedok"), out.Location)
}

func TestNewLLMInterpreter_RequiresKey(t *testing.T) {
	_, err := NewLLMInterpreter(config.OpenAIConfig{}, nil)
	assert.Error(t, err)

	interp, err := NewLLMInterpreter(config.OpenAIConfig{APIKey: "k", Enabled: true, APIBase: "http://localhost:1/v1/", Timeout: 5}, nil)
	require.NoError(t, err)
	assert.NotNil(t, interp)
}
