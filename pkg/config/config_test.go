package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
agentset:
  base_url: "https://api.agentset.example"
  api_key: "agentset_test"
  namespace_id: "ns_test"
  timeout_secs: 15

openai:
  api_key: "sk-test"
  model: "gpt-4o"
  max_tokens: 1000
  temperature: 0.5

retrieval:
  top_k: 3
  min_score: 0.7
  rerank: true

server:
  addr: ":9090"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://api.agentset.example", config.Agentset.BaseURL)
	assert.Equal(t, "agentset_test", config.Agentset.APIKey)
	assert.Equal(t, "ns_test", config.Agentset.NamespaceID)
	assert.Equal(t, 15, config.Agentset.TimeoutSecs)
	assert.Equal(t, "gpt-4o", config.OpenAI.Model)
	assert.Equal(t, 1000, config.OpenAI.MaxTokens)
	assert.Equal(t, 0.5, config.OpenAI.Temperature)
	assert.Equal(t, 3, config.Retrieval.TopK)
	assert.Equal(t, 0.7, config.Retrieval.MinScore)
	assert.True(t, config.Retrieval.Rerank)
	assert.Equal(t, ":9090", config.Server.Addr)
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("agentset:\n  api_key: k\n"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://api.agentset.ai/v1", config.Agentset.BaseURL)
	assert.Equal(t, 30, config.Agentset.TimeoutSecs)
	assert.Equal(t, "gpt-4o-mini", config.OpenAI.Model)
	assert.Equal(t, 2000, config.OpenAI.MaxTokens)
	assert.Equal(t, 10, config.Retrieval.TopK)
	assert.Equal(t, 0.5, config.Retrieval.MinScore)
	assert.Equal(t, "zeroentropy:zerank-2", config.Retrieval.RerankModel)
	assert.Equal(t, ":8080", config.Server.Addr)
}

func TestLoadConfigExplicitZeros(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
openai:
  temperature: 0

retrieval:
  min_score: 0.0
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Zero is a legal setting for both knobs; a value written in the file
	// must not be replaced by the default
	assert.Equal(t, 0.0, config.Retrieval.MinScore)
	assert.Equal(t, 0.0, config.OpenAI.Temperature)

	// Untouched fields still pick up defaults
	assert.Equal(t, 10, config.Retrieval.TopK)
	assert.Equal(t, 2000, config.OpenAI.MaxTokens)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		config        Config
		expectedErrs  int
		errorMessages []string
	}{
		{
			name: "valid config",
			config: Config{
				Agentset: AgentsetConfig{
					BaseURL:     "https://api.agentset.ai/v1",
					APIKey:      "agentset_key",
					NamespaceID: "ns_123",
					TimeoutSecs: 30,
				},
				OpenAI: OpenAIConfig{
					APIKey:      "sk-test",
					MaxTokens:   1000,
					Temperature: 0.7,
				},
				Retrieval: RetrievalConfig{
					TopK:     10,
					MinScore: 0.5,
				},
			},
			expectedErrs: 0,
		},
		{
			name: "invalid config",
			config: Config{
				Agentset: AgentsetConfig{
					BaseURL:     "https://api.agentset.ai/v1",
					TimeoutSecs: 30,
				},
				OpenAI: OpenAIConfig{
					MaxTokens:   5000, // Invalid
					Temperature: 3.0,  // Invalid
				},
				Retrieval: RetrievalConfig{
					TopK:     0,   // Invalid
					MinScore: 1.5, // Invalid
				},
			},
			expectedErrs: 7,
			errorMessages: []string{
				"agentset.api_key: Agentset API key is required",
				"agentset.namespace_id: Agentset namespace ID is required",
				"openai.api_key: OpenAI API key is required",
				"openai.max_tokens: max_tokens must be between 1 and 4096",
				"openai.temperature: temperature must be between 0 and 2",
				"retrieval.top_k: top_k must be positive",
				"retrieval.min_score: min_score must be between 0 and 1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := tt.config.Validate()
			assert.Len(t, errors, tt.expectedErrs)

			if tt.errorMessages != nil {
				for i, msg := range tt.errorMessages {
					assert.Contains(t, errors[i].Error(), msg)
				}
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	// Set environment variables
	os.Setenv("AGENTSET_API_KEY", "env-agentset-key")
	os.Setenv("AGENTSET_NAMESPACE_ID", "ns_env")
	os.Setenv("OPENAI_API_KEY", "sk-env")
	os.Setenv("OPENAI_MODEL", "gpt-4o")
	defer func() {
		os.Unsetenv("AGENTSET_API_KEY")
		os.Unsetenv("AGENTSET_NAMESPACE_ID")
		os.Unsetenv("OPENAI_API_KEY")
		os.Unsetenv("OPENAI_MODEL")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "env-agentset-key", config.Agentset.APIKey)
	assert.Equal(t, "ns_env", config.Agentset.NamespaceID)
	assert.Equal(t, "sk-env", config.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", config.OpenAI.Model)
}
