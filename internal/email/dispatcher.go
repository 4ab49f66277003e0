package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/config"
	"github.com/briefdesk/brief-service/internal/domain"
	"github.com/briefdesk/brief-service/internal/parser"
)

// Substrings that mark a send failure as permanent. They must track the
// messages the transport produces for these conditions.
var nonRetryableMarkers = []string{
	"not configured",
	"invalid email",
	"authentication failed",
}

// RetryPolicy bounds the attempts of one dispatch.
type RetryPolicy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

// RetryPolicyFromConfig reads the policy from email settings.
func RetryPolicyFromConfig(cfg config.EmailConfig) RetryPolicy {
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return RetryPolicy{
		MaxRetries:     retries,
		BaseDelay:      cfg.RetryBaseDelay(),
		MaxDelay:       cfg.RetryMaxDelay(),
		AttemptTimeout: cfg.AttemptTimeout(),
	}
}

// Delay is the wait after failed attempt n (0-indexed): base*2^n capped at MaxDelay.
func (p RetryPolicy) Delay(n int) time.Duration {
	if n > 30 {
		return p.MaxDelay
	}
	d := p.BaseDelay << uint(n)
	if d > p.MaxDelay || d <= 0 {
		return p.MaxDelay
	}
	return d
}

// IsRetryable reports whether a failed attempt may be repeated.
func IsRetryable(err error) bool {
	if err == nil || IsConfigError(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range nonRetryableMarkers {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	return true
}

// DispatcherDependencies wires a Dispatcher.
type DispatcherDependencies struct {
	// Transport may be nil when TransportErr explains why it is unavailable.
	Transport    Transport
	TransportErr error
	Renderer     *Renderer
	Sender       string
	Policy       RetryPolicy
	Logger       *zap.Logger
}

// Dispatcher renders a brief and sends it with bounded exponential backoff.
type Dispatcher struct {
	transport    Transport
	transportErr error
	renderer     *Renderer
	sender       string
	policy       RetryPolicy
	logger       *zap.Logger
	sleep        func(context.Context, time.Duration) error
}

func NewDispatcher(deps DispatcherDependencies) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sender := deps.Sender
	if sender == "" {
		sender = config.DefaultSenderAddress
	}
	return &Dispatcher{
		transport:    deps.Transport,
		transportErr: deps.TransportErr,
		renderer:     deps.Renderer,
		sender:       sender,
		policy:       deps.Policy,
		logger:       logger,
		sleep:        sleepContext,
	}
}

// Configured reports whether a transport is available.
func (d *Dispatcher) Configured() bool {
	return d.transport != nil
}

// SendBriefEmail emails the brief to the contact. Permanent failures return
// after one attempt; otherwise the last attempt's error is returned once
// retries run out.
func (d *Dispatcher) SendBriefEmail(ctx context.Context, contact domain.ContactInfo, brief domain.Brief, conversationID string) (*Result, error) {
	if d.transport == nil {
		if d.transportErr != nil {
			return nil, d.transportErr
		}
		return nil, &ConfigError{Detail: "no transport"}
	}
	if !parser.ValidEmail(contact.Email) {
		return nil, fmt.Errorf("invalid email address for recipient: %q", contact.Email)
	}
	if !parser.ValidEmail(d.sender) {
		return nil, fmt.Errorf("invalid email address for sender: %q", d.sender)
	}

	msg, err := d.compose(contact, brief, conversationID)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= d.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := d.policy.Delay(attempt - 1)
			d.logger.Info("retrying brief email",
				zap.String("conversation_id", conversationID),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			if err := d.sleep(ctx, delay); err != nil {
				return nil, lastErr
			}
		}

		result, err := d.attempt(ctx, msg)
		if err == nil {
			d.logger.Info("brief email sent",
				zap.String("conversation_id", conversationID),
				zap.String("message_id", result.MessageID),
				zap.String("status", result.Status),
				zap.Int("attempt", attempt+1))
			return result, nil
		}

		lastErr = err
		d.logger.Warn("brief email attempt failed",
			zap.String("conversation_id", conversationID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, msg *Message) (*Result, error) {
	if d.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.policy.AttemptTimeout)
		defer cancel()
	}
	result, err := d.transport.Send(ctx, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("email send timed out after %s: %w", d.policy.AttemptTimeout, err)
		}
		return nil, err
	}
	if result == nil {
		return nil, errors.New("email transport returned no result")
	}
	return result, nil
}

func (d *Dispatcher) compose(contact domain.ContactInfo, brief domain.Brief, conversationID string) (*Message, error) {
	html, err := d.renderer.HTML(brief, conversationID)
	if err != nil {
		return nil, err
	}
	text, err := d.renderer.PlainText(brief, conversationID)
	if err != nil {
		return nil, err
	}
	return &Message{
		From:        d.sender,
		To:          contact.Email,
		Subject:     d.renderer.Subject(brief),
		HTML:        html,
		PlainText:   text,
		OperationID: uuid.NewString(),
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
