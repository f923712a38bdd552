package config

import (
	"net/url"

	"github.com/Enes830/testagentset/pkg/apierr"
)

func (c *Config) Validate() []apierr.ValidationError {
	var errors []apierr.ValidationError

	// Validate Agentset config
	if c.Agentset.APIKey == "" {
		errors = append(errors, apierr.ValidationError{
			Field:   "agentset.api_key",
			Message: "Agentset API key is required",
		})
	}

	if c.Agentset.NamespaceID == "" {
		errors = append(errors, apierr.ValidationError{
			Field:   "agentset.namespace_id",
			Message: "Agentset namespace ID is required",
		})
	}

	if _, err := url.Parse(c.Agentset.BaseURL); err != nil || c.Agentset.BaseURL == "" {
		errors = append(errors, apierr.ValidationError{
			Field:   "agentset.base_url",
			Message: "invalid Agentset base URL",
		})
	}

	if c.Agentset.TimeoutSecs < 1 {
		errors = append(errors, apierr.ValidationError{
			Field:   "agentset.timeout_secs",
			Message: "timeout_secs must be positive",
		})
	}

	// Validate OpenAI config
	if c.OpenAI.APIKey == "" {
		errors = append(errors, apierr.ValidationError{
			Field:   "openai.api_key",
			Message: "OpenAI API key is required",
		})
	}

	if c.OpenAI.MaxTokens < 1 || c.OpenAI.MaxTokens > 4096 {
		errors = append(errors, apierr.ValidationError{
			Field:   "openai.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errors = append(errors, apierr.ValidationError{
			Field:   "openai.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate retrieval parameters
	if c.Retrieval.TopK < 1 {
		errors = append(errors, apierr.ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		errors = append(errors, apierr.ValidationError{
			Field:   "retrieval.min_score",
			Message: "min_score must be between 0 and 1",
		})
	}

	return errors
}
