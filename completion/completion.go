// Package completion talks to an OpenAI compatible chat completion endpoint (DeepSeek by default)
// and exposes it as an eino chat model.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the DeepSeek API root
	DefaultBaseURL = "https://api.deepseek.com/v1"
	// DefaultModel is the DeepSeek chat model
	DefaultModel = "deepseek-chat"
	// DefaultTemperature is used when no temperature option is passed
	DefaultTemperature float32 = 0.7

	maxBodyLength = 500
)

// Config configures a completion client
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	// Timeout bounds a single round trip, 0 leaves the http client default
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a chat completion client. It satisfies model.BaseChatModel
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float32
	http        *http.Client
}

var _ model.BaseChatModel = (*Client)(nil)

// StatusError is returned when the remote answers with a non-2xx status
type StatusError struct {
	Code int
	Body string
}

// Error satisfies the error type interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("completion api returned status %d: %s", e.Code, e.Body)
}

// RateLimited is true for HTTP 429
func (e *StatusError) RateLimited() bool {
	return e.Code == http.StatusTooManyRequests
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// New creates a new completion client
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key must be set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	c := &Client{
		endpoint:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		http:        cfg.HTTPClient,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	return c, nil
}

// Generate performs exactly one round trip to the completion endpoint
func (c *Client) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: &c.temperature,
		Model:       &c.model,
	}, opts...)

	req := chatRequest{
		Model:     c.model,
		MaxTokens: options.MaxTokens,
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = *options.Model
	}
	if options.Temperature != nil {
		req.Temperature = *options.Temperature
	}
	for _, m := range input {
		if m == nil {
			continue
		}
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "post")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(respBody), maxBodyLength)}
	}

	var cr chatResponse
	err = json.Unmarshal(respBody, &cr)
	if err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}

	content := cr.Choices[0].Message.Content
	log.Debug().Str("model", req.Model).Int("length", len(content)).Msg("completion received")
	return schema.AssistantMessage(content, nil), nil
}

// Stream is Generate delivered as a single chunk, the relay never needs partial output
func (c *Client) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := c.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
