package email

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	acsStatusSucceeded = "Succeeded"
	acsStatusFailed    = "Failed"
	acsStatusCanceled  = "Canceled"

	maxErrorBody = 4 << 10
)

// ACSClient talks to the Azure Communication Services email REST API:
// it begins a send operation and polls it until the provider settles it.
type ACSClient struct {
	endpoint     string
	apiVersion   string
	httpClient   *http.Client
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewACSClient builds a client. httpClient carries authentication, either
// HMAC request signing or an Entra ID bearer token source.
func NewACSClient(endpoint, apiVersion string, httpClient *http.Client, pollInterval time.Duration, logger *zap.Logger) *ACSClient {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &ACSClient{
		endpoint:     strings.TrimRight(endpoint, "/"),
		apiVersion:   apiVersion,
		httpClient:   httpClient,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

type sendRequest struct {
	SenderAddress string         `json:"senderAddress"`
	Recipients    sendRecipients `json:"recipients"`
	Content       sendContent    `json:"content"`
}

type sendRecipients struct {
	To []sendAddress `json:"to"`
}

type sendAddress struct {
	Address string `json:"address"`
}

type sendContent struct {
	Subject   string `json:"subject"`
	PlainText string `json:"plainText,omitempty"`
	HTML      string `json:"html,omitempty"`
}

type operationStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`

	retryAfter time.Duration
}

// Send begins the operation and blocks until it succeeds, fails, or ctx ends.
func (c *ACSClient) Send(ctx context.Context, msg *Message) (*Result, error) {
	operationID := msg.OperationID
	if operationID == "" {
		operationID = uuid.NewString()
	}

	body, err := json.Marshal(sendRequest{
		SenderAddress: msg.From,
		Recipients:    sendRecipients{To: []sendAddress{{Address: msg.To}}},
		Content:       sendContent{Subject: msg.Subject, PlainText: msg.PlainText, HTML: msg.HTML},
	})
	if err != nil {
		return nil, fmt.Errorf("encode email: %w", err)
	}

	status, err := c.begin(ctx, operationID, body)
	if err != nil {
		return nil, err
	}

	for {
		switch status.Status {
		case acsStatusSucceeded:
			return &Result{MessageID: status.ID, Status: status.Status}, nil
		case acsStatusFailed, acsStatusCanceled:
			opErr := &OperationError{OperationID: status.ID, Status: status.Status}
			if status.Error != nil {
				opErr.Code = status.Error.Code
				opErr.Message = status.Error.Message
			}
			return nil, opErr
		}

		wait := c.pollInterval
		if status.retryAfter > 0 {
			wait = status.retryAfter
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		if status, err = c.poll(ctx, operationID); err != nil {
			return nil, err
		}
	}
}

func (c *ACSClient) begin(ctx context.Context, operationID string, body []byte) (*operationStatus, error) {
	endpoint := c.endpoint + "/emails:send?api-version=" + url.QueryEscape(c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Operation-Id", operationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return decodeOperation(resp, operationID)
	case http.StatusConflict:
		// A previous attempt already started this operation.
		c.logger.Debug("email operation already started", zap.String("operation_id", operationID))
		return &operationStatus{ID: operationID, Status: "Running"}, nil
	default:
		return nil, readAPIError(resp)
	}
}

func (c *ACSClient) poll(ctx context.Context, operationID string) (*operationStatus, error) {
	endpoint := fmt.Sprintf("%s/emails/operations/%s?api-version=%s",
		c.endpoint, url.PathEscape(operationID), url.QueryEscape(c.apiVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}
	return decodeOperation(resp, operationID)
}

func decodeOperation(resp *http.Response, operationID string) (*operationStatus, error) {
	var status operationStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode email operation: %w", err)
	}
	if status.ID == "" {
		status.ID = operationID
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		status.retryAfter = time.Duration(secs) * time.Second
	}
	return &status, nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}

	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error.Message != "" {
		apiErr.Code = payload.Error.Code
		apiErr.Message = payload.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// hmacTransport signs requests with a Communication Services access key.
type hmacTransport struct {
	key  []byte
	base http.RoundTripper
	now  func() time.Time
}

func newHMACTransport(key []byte, base http.RoundTripper) *hmacTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &hmacTransport{key: key, base: base, now: time.Now}
}

func (t *hmacTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
	}

	sum := sha256.Sum256(body)
	contentHash := base64.StdEncoding.EncodeToString(sum[:])
	date := t.now().UTC().Format(http.TimeFormat)

	signed := req.Clone(req.Context())
	signed.Body = io.NopCloser(bytes.NewReader(body))
	signed.ContentLength = int64(len(body))

	stringToSign := signed.Method + "\n" + signed.URL.RequestURI() + "\n" + date + ";" + signed.URL.Host + ";" + contentHash
	mac := hmac.New(sha256.New, t.key)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	signed.Header.Set("x-ms-date", date)
	signed.Header.Set("x-ms-content-sha256", contentHash)
	signed.Header.Set("Authorization", "HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature="+signature)
	return t.base.RoundTrip(signed)
}

// ParseConnectionString splits "endpoint=...;accesskey=..." into its parts.
func ParseConnectionString(conn string) (endpoint, accessKey string, err error) {
	for _, part := range strings.Split(conn, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "endpoint":
			endpoint = value
		case "accesskey":
			accessKey = value
		}
	}
	if endpoint == "" || accessKey == "" {
		return "", "", &ConfigError{Detail: "connection string must contain endpoint and accesskey"}
	}
	return endpoint, accessKey, nil
}
