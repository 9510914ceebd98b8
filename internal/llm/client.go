package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a chat completions request
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// response represents a chat completions response
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// streamChunk represents one SSE delta frame
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Client talks to a single OpenAI-compatible endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

// Factory builds clients per provider endpoint so callers own client
// lifetimes explicitly instead of sharing a process-wide cache.
type Factory struct {
	timeout time.Duration
}

// NewFactory creates a client factory with a shared per-call timeout.
func NewFactory(timeout time.Duration) *Factory {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Factory{timeout: timeout}
}

// Client returns a client for the given endpoint and key.
func (f *Factory) Client(baseURL, apiKey string) *Client {
	return NewClient(baseURL, apiKey, f.timeout)
}

// NewClient creates a client for one OpenAI-compatible endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if apiKey == "" {
		apiKey = "sk-no-key-required"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.New(log.Writer(), "[LLM] ", log.LstdFlags),
	}
}

// ChatCompletion generates a completion and returns the reply text plus the
// total token count reported by the endpoint.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, model, systemPrompt string, temperature float64, maxTokens int) (string, int, error) {
	body := request{
		Model:       model,
		Messages:    formatMessages(messages, systemPrompt),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", 0, fmt.Errorf("no choices in response")
	}
	return out.Choices[0].Message.Content, out.Usage.TotalTokens, nil
}

// ChatCompletionStream generates a streaming completion, invoking onChunk for
// every content delta. Returning an error from onChunk aborts the stream.
func (c *Client) ChatCompletionStream(ctx context.Context, messages []Message, model, systemPrompt string, temperature float64, maxTokens int, onChunk func(string) error) error {
	body := request{
		Model:       model,
		Messages:    formatMessages(messages, systemPrompt),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      true,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Printf("skipping malformed stream chunk: %v", err)
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onChunk(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ListModels fetches the model identifiers the endpoint advertises.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// GenerateSessionName asks the model for a short conversation title based on
// the first message. Failures degrade to "New Chat".
func (c *Client) GenerateSessionName(ctx context.Context, firstMessage, model string) string {
	messages := []Message{
		{Role: "system", Content: "Generate a very short (3-5 words max) title for a conversation that starts with the following message. Reply with ONLY the title, nothing else."},
		{Role: "user", Content: firstN(firstMessage, 500)},
	}
	name, _, err := c.ChatCompletion(ctx, messages, model, "", 0.7, 20)
	if err != nil {
		c.logger.Printf("session name generation failed: %v", err)
		return "New Chat"
	}
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	name = firstN(name, 50)
	if name == "" {
		return "New Chat"
	}
	return name
}

func formatMessages(messages []Message, systemPrompt string) []Message {
	formatted := make([]Message, 0, len(messages)+1)
	if systemPrompt != "" {
		formatted = append(formatted, Message{Role: "system", Content: systemPrompt})
	}
	formatted = append(formatted, TruncateMessages(messages, historyTokenBudget)...)
	return formatted
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
