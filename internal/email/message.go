// Package email renders briefs and delivers them through Azure Communication Services.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message is one outgoing email.
type Message struct {
	From        string
	To          string
	Subject     string
	HTML        string
	PlainText   string
	OperationID string
}

// Result is the transport outcome of a delivered message. Status is an
// opaque provider token such as "Succeeded".
type Result struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// Transport sends a message and waits for the provider to confirm it.
type Transport interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
}

// ConfigError reports the setting that keeps the transport from being built.
type ConfigError struct {
	Missing []string
	Detail  string
}

func (e *ConfigError) Error() string {
	if e.Detail != "" {
		return "email service not configured: " + e.Detail
	}
	return fmt.Sprintf("email service not configured: missing %s", strings.Join(e.Missing, " or "))
}

// IsConfigError reports whether err is a transport configuration error.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// APIError is a non-success HTTP response from the provider.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return fmt.Sprintf("authentication failed: %s", e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("email provider returned %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("email provider returned %d: %s", e.StatusCode, e.Message)
}

// OperationError is a send operation the provider finished without success.
type OperationError struct {
	OperationID string
	Status      string
	Code        string
	Message     string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("email operation %s ended with status %s: %s", e.OperationID, e.Status, e.Message)
}

// ErrorName classifies err for the recorded email error.
func ErrorName(err error) string {
	var (
		apiErr *APIError
		opErr  *OperationError
	)
	switch {
	case err == nil:
		return ""
	case IsConfigError(err):
		return "ConfigurationError"
	case errors.As(err, &apiErr):
		return "RestError"
	case errors.As(err, &opErr):
		return "OperationError"
	case errors.Is(err, context.DeadlineExceeded):
		return "TimeoutError"
	default:
		return "Error"
	}
}
