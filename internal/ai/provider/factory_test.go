package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
	}{
		{provider: "deepseek", wantName: "deepseek"},
		{provider: "OpenAI", wantName: "openai"},
		{provider: " openrouter ", wantName: "openrouter"},
		{provider: "anthropic", wantName: "anthropic"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := New(context.Background(), Config{Provider: tt.provider, APIKey: "key"}, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.NotEmpty(t, p.Model())
		})
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "mistral", APIKey: "key"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown llm provider")
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "deepseek"}, zap.NewNop())
	require.Error(t, err)
}

func TestEnvKeys(t *testing.T) {
	assert.Equal(t, []string{"DEEPSEEK_API_KEY"}, EnvKeys("DeepSeek"))
	assert.Nil(t, EnvKeys("unknown"))
	assert.True(t, Supported("gemini"))
	assert.False(t, Supported("ollama"))
}
