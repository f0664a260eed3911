package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/jonathan/recruiter-agent/internal/retry"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient implements Client for any OpenAI-compatible chat completions API.
type OpenAIClient struct {
	client   *resty.Client
	config   *Config
	endpoint string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(config *Config, apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = NewConfig(ProviderOpenAI)
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")

	return &OpenAIClient{
		client:   client,
		config:   config,
		endpoint: baseURL + "/chat/completions",
	}, nil
}

// Complete implements Client. JSON requests set response_format to json_object.
func (c *OpenAIClient) Complete(ctx context.Context, in Request) (*Completion, error) {
	modelName, err := modelFor(c.config, in.Tier)
	if err != nil {
		return nil, err
	}

	req := chatRequest{
		Model:       modelName,
		Messages:    []chatMessage{{Role: "user", Content: in.Prompt}},
		Temperature: temperature,
	}
	if in.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	var apiErr chatError
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(c.endpoint)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, retry.Permanent(Service, err)
		}
		return nil, retry.Transient(Service, fmt.Errorf("chat completion request failed: %w", err))
	}

	if httpResp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = httpResp.Status()
		}
		return nil, retry.FromStatus(Service, httpResp.StatusCode(), errors.New(msg))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, retry.Permanent(Service, fmt.Errorf("no content in response"))
	}

	return &Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: modelName,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// Close is a no-op; the HTTP client holds no per-client resources.
func (c *OpenAIClient) Close() error {
	return nil
}
