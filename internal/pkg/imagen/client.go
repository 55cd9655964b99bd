package imagen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/contentpilot/backend/config"
	"k8s.io/klog/v2"
)

// Client talks to an OpenAI-compatible image generation API. Generation and
// edit calls can both come back with 429, which is surfaced as ErrRateLimited
// so the pipeline can apply its single-retry policy.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL: cfg.Image.APIURL,
		APIKey:  cfg.Image.APIKey,
		Model:   cfg.Image.Model,
		Client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Create generates an image from the prompt alone.
func (c *Client) Create(ctx context.Context, prompt, size string) (*ImageResult, error) {
	klog.V(6).Infof("image generation request: model=%s, size=%s", c.Model, size)

	jsonData, err := json.Marshal(generateRequest{
		Model:  c.Model,
		Prompt: prompt,
		N:      1,
		Size:   size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/images/generations", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	return c.do(req)
}

// Edit generates an image conditioned on a reference image.
func (c *Client) Edit(ctx context.Context, prompt string, reference []byte, size string) (*ImageResult, error) {
	klog.V(6).Infof("image edit request: model=%s, size=%s, referenceBytes=%d", c.Model, size, len(reference))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"model":  c.Model,
		"prompt": prompt,
		"n":      "1",
		"size":   size,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	part, err := w.CreateFormFile("image", "reference.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(reference); err != nil {
		return nil, fmt.Errorf("failed to write reference image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/images/edits", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*ImageResult, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, resp.Status)
	}

	var imageResp imageResponse
	if err := json.Unmarshal(body, &imageResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if imageResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", imageResp.Error.Message)
	}
	if len(imageResp.Data) == 0 {
		return nil, fmt.Errorf("no image in response")
	}

	data, err := base64.StdEncoding.DecodeString(imageResp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	tokens := imageResp.Usage.TotalTokens
	if tokens == 0 {
		tokens = imageResp.Usage.InputTokens + imageResp.Usage.OutputTokens
	}

	return &ImageResult{Data: data, Tokens: tokens}, nil
}
