// Package imagegen talks to an OpenAI-compatible Images API and returns the
// decoded image bytes for a text prompt.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/go-mms-backend/internal/clients/httpx"
	"github.com/tbourn/go-mms-backend/internal/domain"
)

// ErrUnavailable is returned when no provider is configured or a failure is
// being simulated.
var ErrUnavailable = errors.New("image generation unavailable")

// Config configures Client.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Size       string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration // first retry wait; 1s when zero
}

// Client generates images over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("missing OPENAI_IMAGE_MODEL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}, nil
}

type generationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type generationResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// HTTPError is a non-2xx answer from the provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, body)
}

// HTTPStatusCode implements httpx.HTTPStatusCoder.
func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

// Generate renders one image for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (domain.GeneratedImage, error) {
	var out domain.GeneratedImage
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return out, errors.New("image prompt required")
	}

	reqBody, err := json.Marshal(generationRequest{
		Model:          c.cfg.Model,
		Prompt:         prompt,
		N:              1,
		Size:           strings.TrimSpace(c.cfg.Size),
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return out, err
	}

	resp, err := httpx.Do(ctx, httpx.Policy{Name: "openai", MaxRetries: c.cfg.MaxRetries, Initial: c.cfg.Backoff},
		func(ctx context.Context) (generationResponse, *http.Response, error) {
			return c.doOnce(ctx, reqBody)
		})
	if err != nil {
		return out, err
	}
	if len(resp.Data) == 0 {
		return out, errors.New("no image returned")
	}
	b64 := strings.TrimSpace(resp.Data[0].B64JSON)
	if b64 == "" {
		return out, errors.New("image response missing b64_json")
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return out, fmt.Errorf("decode image base64: %w", err)
	}
	if len(raw) == 0 {
		return out, errors.New("empty image returned")
	}

	out.Bytes = raw
	out.MimeType = sniff(raw)
	out.ModelInfo = c.cfg.Model
	if s := strings.TrimSpace(c.cfg.Size); s != "" {
		out.ModelInfo += " " + s
	}
	return out, nil
}

func (c *Client) doOnce(ctx context.Context, body []byte) (generationResponse, *http.Response, error) {
	var out generationResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return out, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return out, resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, resp, fmt.Errorf("openai decode error: %w", err)
	}
	return out, resp, nil
}

// sniff detects the image type, defaulting to PNG which the API returns.
func sniff(b []byte) string {
	ct := http.DetectContentType(b)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/png"
}

// Unavailable is a generator that always fails. It stands in when no API key
// is configured or when IMAGEGEN_SIMULATE_FAILURE is set.
type Unavailable struct {
	Reason string
}

// Generate always returns ErrUnavailable.
func (u Unavailable) Generate(context.Context, string) (domain.GeneratedImage, error) {
	if u.Reason == "" {
		return domain.GeneratedImage{}, ErrUnavailable
	}
	return domain.GeneratedImage{}, fmt.Errorf("%w: %s", ErrUnavailable, u.Reason)
}
