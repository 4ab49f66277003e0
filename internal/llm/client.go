// Package llm streams chat completions from an Azure OpenAI deployment.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/briefdesk/brief-service/internal/config"
)

const cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

var (
	// ErrNotConfigured is returned when the model endpoint or credentials are absent.
	ErrNotConfigured = errors.New("Azure OpenAI configuration missing")
	// ErrContentFiltered matches provider rejections on content policy grounds.
	ErrContentFiltered = errors.New("content rejected by provider policy")
)

// ChatMessage is one message of the model conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UpstreamError is a non-success response from the model provider.
type UpstreamError struct {
	StatusCode int
	Code       string
	InnerCode  string
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model provider returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is lets errors.Is(err, ErrContentFiltered) match policy rejections.
func (e *UpstreamError) Is(target error) bool {
	if target != ErrContentFiltered {
		return false
	}
	return e.Code == "content_filter" || e.InnerCode == "ResponsibleAIPolicyViolation"
}

// Client posts streaming chat completion requests.
type Client struct {
	endpoint    string
	deployment  string
	apiVersion  string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewClient validates configuration and picks api-key or Entra ID auth.
func NewClient(ctx context.Context, cfg config.OpenAIConfig, azure config.AzureIdentityConfig) (*Client, error) {
	if cfg.Endpoint == "" || cfg.Deployment == "" {
		return nil, ErrNotConfigured
	}
	client := &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		deployment:  cfg.Deployment,
		apiVersion:  cfg.APIVersion,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	switch {
	case cfg.APIKey != "":
		client.httpClient = &http.Client{}
	case azure.Configured():
		creds := clientcredentials.Config{
			ClientID:     azure.ClientID,
			ClientSecret: azure.ClientSecret,
			TokenURL:     azure.TokenURL(),
			Scopes:       []string{cognitiveServicesScope},
		}
		client.httpClient = creds.Client(ctx)
	default:
		return nil, ErrNotConfigured
	}
	return client, nil
}

type completionRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

// StreamChat returns the provider's text/event-stream body. Cancelling ctx
// aborts the upstream request. The caller closes the returned reader.
func (c *Client) StreamChat(ctx context.Context, messages []ChatMessage) (io.ReadCloser, error) {
	body, err := json.Marshal(completionRequest{
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, readUpstreamError(resp)
	}
	return resp.Body, nil
}

func readUpstreamError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	upstream := &UpstreamError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}

	var payload struct {
		Error struct {
			Code       string `json:"code"`
			Message    string `json:"message"`
			InnerError struct {
				Code string `json:"code"`
			} `json:"innererror"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error.Message != "" {
		upstream.Code = payload.Error.Code
		upstream.InnerCode = payload.Error.InnerError.Code
		upstream.Message = payload.Error.Message
	}
	return upstream
}
