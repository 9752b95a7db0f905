package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/presenca/discovery-audit/internal/resilience"
)

// Client sends WhatsApp messages through an Evolution API gateway.
type Client interface {
	// SendText sends a plain text message to a phone number in E.164 digits
	// without the plus sign.
	SendText(ctx context.Context, number, text string) (*SendResult, error)
}

// SendResult carries the gateway's acknowledgment of an accepted message.
type SendResult struct {
	MessageID string
	Status    string
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL  string
	apiKey   string
	instance string
	http     *http.Client
}

// NewClient creates an Evolution API client bound to one WhatsApp instance.
func NewClient(baseURL, apiKey, instance string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		instance: instance,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendTextResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	Status string `json:"status"`
}

func (c *httpClient) SendText(ctx context.Context, number, text string) (*SendResult, error) {
	body, err := json.Marshal(sendTextRequest{Number: number, Text: text})
	if err != nil {
		return nil, eris.Wrap(err, "evolution: marshal request")
	}

	url := c.baseURL + "/message/sendText/" + c.instance
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "evolution: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "evolution: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "evolution: read response")
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("evolution: status %d: %s", resp.StatusCode, string(respBody)),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, eris.Errorf("evolution: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result sendTextResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "evolution: unmarshal response")
	}
	return &SendResult{MessageID: result.Key.ID, Status: result.Status}, nil
}
