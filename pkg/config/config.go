package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type AgentsetConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	NamespaceID string `yaml:"namespace_id"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type OpenAIConfig struct {
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
}

type RetrievalConfig struct {
	TopK        int     `yaml:"top_k"`
	MinScore    float64 `yaml:"min_score"`
	Rerank      bool    `yaml:"rerank"`
	RerankModel string  `yaml:"rerank_model"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Agentset  AgentsetConfig  `yaml:"agentset"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Server    ServerConfig    `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ragset/config.yaml"),
			"/etc/ragset/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	// Unmarshal over a fully defaulted struct so that a value written in the
	// file always wins, including explicit zeros like min_score: 0.0
	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(config)

	return config, nil
}

func getDefaultConfig() (*Config, error) {
	config := defaultConfig()
	mergeWithEnv(config)
	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Agentset: AgentsetConfig{
			BaseURL:     "https://api.agentset.ai/v1",
			TimeoutSecs: 30,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   2000,
			Temperature: 0.7,
		},
		Retrieval: RetrievalConfig{
			TopK:        10,
			MinScore:    0.5,
			RerankModel: "zeroentropy:zerank-2",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("AGENTSET_API_KEY"); key != "" {
		config.Agentset.APIKey = key
	}
	if ns := os.Getenv("AGENTSET_NAMESPACE_ID"); ns != "" {
		config.Agentset.NamespaceID = ns
	}
	if base := os.Getenv("AGENTSET_BASE_URL"); base != "" {
		config.Agentset.BaseURL = base
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.OpenAI.Model = model
	}
}
