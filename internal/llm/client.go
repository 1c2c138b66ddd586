package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Invoker is the contract the parsing and composing stages depend on.
// Any synchronous text-completion backend can stand in for Ollama.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Client talks to a local Ollama instance (https://ollama.com/).
type Client struct {
	Host       string
	Model      string
	HTTPClient *http.Client
}

// Invoke sends a prompt to Ollama and returns the model response (non-streaming).
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt cannot be empty")
	}

	host := c.Host
	if host == "" {
		host = "http://127.0.0.1:11434"
	}

	model := c.Model
	if model == "" {
		model = "gemma:2b"
	}

	payload := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal ollama payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned %s", resp.Status)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	return strings.TrimSpace(result.Response), nil
}
