package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/contentpilot/backend/config"
	"k8s.io/klog/v2"
)

// Client is a thin chat-completion client over the OpenAI-compatible API.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL: cfg.LLM.APIURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Complete sends one chat completion and returns the assistant message with
// the call's token usage.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	klog.V(6).Infof("completion request: model=%s, maxTokens=%d, json=%v, webSearch=%v",
		c.Model, req.MaxTokens, req.JSONMode, req.WebSearch)

	body := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.Role},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: 0.7,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if req.WebSearch {
		body.WebSearchOptions = &webSearchOptions{}
	}

	resp, err := c.sendRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from LLM")
	}

	return &CompletionResult{
		Message:     resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

// sendRequest posts the chat request to the provider.
func (c *Client) sendRequest(ctx context.Context, reqBody chatRequest) (*chatResponse, error) {
	url := c.BaseURL + "/chat/completions"
	klog.V(6).Infof("sending LLM request: url=%s, model=%s", url, reqBody.Model)

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	return &chatResp, nil
}
