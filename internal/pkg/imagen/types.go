package imagen

import "errors"

// ErrRateLimited is returned when the provider answers 429. The pipeline
// retries these exactly once; everything else is terminal for the attempt.
var ErrRateLimited = errors.New("image service rate limited")

// Output sizes accepted by the generation API.
const (
	SizeSquare    = "1024x1024"
	SizePortrait  = "1024x1536"
	SizeLandscape = "1536x1024"
)

// ImageResult carries the decoded image bytes and the call's token usage.
type ImageResult struct {
	Data   []byte
	Tokens int
}

type imageData struct {
	B64JSON string `json:"b64_json"`
	URL     string `json:"url,omitempty"`
}

type imageUsage struct {
	TotalTokens  int `json:"total_tokens"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type imageError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type imageResponse struct {
	Created int64       `json:"created"`
	Data    []imageData `json:"data"`
	Usage   imageUsage  `json:"usage"`
	Error   *imageError `json:"error,omitempty"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}
