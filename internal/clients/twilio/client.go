// Package twilio sends SMS and MMS through the Twilio Messages REST API.
package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tbourn/go-mms-backend/internal/clients/httpx"
)

// Config configures Client.
type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration // first retry wait; 1s when zero
}

// Client is a minimal Messages API client.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	cfg.AccountSID = strings.TrimSpace(cfg.AccountSID)
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	cfg.FromNumber = strings.TrimSpace(cfg.FromNumber)
	switch {
	case cfg.AccountSID == "":
		return nil, fmt.Errorf("missing TWILIO_ACCOUNT_SID")
	case cfg.AuthToken == "":
		return nil, fmt.Errorf("missing TWILIO_AUTH_TOKEN")
	case cfg.FromNumber == "":
		return nil, fmt.Errorf("missing TWILIO_FROM_NUMBER")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}, nil
}

// SendMessageRequest is one outbound message. MediaURLs turn it into an MMS.
type SendMessageRequest struct {
	To        string
	Body      string
	MediaURLs []string
}

// Message is the subset of the API resource the service reads.
type Message struct {
	SID          string  `json:"sid,omitempty"`
	To           string  `json:"to,omitempty"`
	Status       string  `json:"status,omitempty"`
	ErrorCode    *int    `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	StatusCode int
	Body       string
	APIError   *apiError
}

func (e *HTTPError) Error() string {
	if e.APIError != nil && strings.TrimSpace(e.APIError.Message) != "" {
		if e.APIError.Code != 0 {
			return fmt.Sprintf("twilio http %d: %s (code=%d)", e.StatusCode, e.APIError.Message, e.APIError.Code)
		}
		return fmt.Sprintf("twilio http %d: %s", e.StatusCode, e.APIError.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return fmt.Sprintf("twilio http %d: %s", e.StatusCode, msg)
}

// HTTPStatusCode implements httpx.HTTPStatusCoder.
func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

// SendMessage posts a message and returns the created resource.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	req.To = strings.TrimSpace(req.To)
	req.Body = strings.TrimSpace(req.Body)
	if req.To == "" {
		return nil, errors.New("twilio: To required")
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", c.cfg.FromNumber)
	if req.Body != "" {
		form.Set("Body", req.Body)
	}
	hasMedia := false
	for _, mu := range req.MediaURLs {
		if mu = strings.TrimSpace(mu); mu != "" {
			form.Add("MediaUrl", mu)
			hasMedia = true
		}
	}
	if req.Body == "" && !hasMedia {
		return nil, errors.New("twilio: content required (Body or MediaURLs)")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)
	encoded := form.Encode()
	return httpx.Do(ctx, httpx.Policy{Name: "twilio", MaxRetries: c.cfg.MaxRetries, Initial: c.cfg.Backoff},
		func(ctx context.Context) (*Message, *http.Response, error) {
			return c.postForm(ctx, endpoint, encoded)
		})
}

func (c *Client) postForm(ctx context.Context, endpoint, encoded string) (*Message, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && strings.TrimSpace(ae.Message) != "" {
			return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), APIError: &ae}
		}
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out Message
	if len(raw) == 0 {
		return &out, resp, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("twilio decode error: %w", err)
	}
	return &out, resp, nil
}
