package llm

// CompletionRequest is one chat-completion call. Role is the system prompt,
// Prompt the user message. JSONMode asks the provider for a structured
// object; WebSearch lets the model consult live results (the research call).
type CompletionRequest struct {
	Role      string
	Prompt    string
	MaxTokens int
	JSONMode  bool
	WebSearch bool
}

// CompletionResult carries the assistant message and the total token usage
// of the call. Callers are responsible for truncating message fields before
// persisting them.
type CompletionResult struct {
	Message     string
	TotalTokens int
}

// Wire types follow the OpenAI chat completion format.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"` // "json_object"
}

type webSearchOptions struct {
	SearchContextSize string `json:"search_context_size,omitempty"`
}

type chatRequest struct {
	Model            string            `json:"model"`
	Messages         []chatMessage     `json:"messages"`
	MaxTokens        int               `json:"max_tokens,omitempty"`
	Temperature      float64           `json:"temperature,omitempty"`
	ResponseFormat   *responseFormat   `json:"response_format,omitempty"`
	WebSearchOptions *webSearchOptions `json:"web_search_options,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
	Error   *chatError   `json:"error,omitempty"`
}
