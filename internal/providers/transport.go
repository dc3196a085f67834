package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 16 << 20

// transport performs JSON calls for a provider, retrying throttled and
// unavailable responses with exponential backoff.
type transport struct {
	provider   string
	client     *http.Client
	headers    map[string]string
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

func newTransport(name string, client *http.Client, timeout time.Duration, headers map[string]string, retries int, backoff time.Duration, logger *slog.Logger) *transport {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &transport{
		provider:   name,
		client:     client,
		headers:    headers,
		maxRetries: retries,
		backoff:    backoff,
		logger:     logger.With("system", "providers", "provider", name),
	}
}

func (t *transport) do(ctx context.Context, method, url, model string, in, out any) error {
	var payload []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		status, body, err := t.send(ctx, method, url, payload)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &ProviderError{Provider: t.provider, Model: model, Message: err.Error()}
		}

		if status >= 200 && status < 300 {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return &ProviderError{
					Provider:   t.provider,
					Model:      model,
					StatusCode: status,
					Message:    fmt.Sprintf("decode response: %v", err),
				}
			}
			return nil
		}

		if retryable(status) && attempt < t.maxRetries {
			wait := t.backoff << attempt
			t.logger.WarnContext(ctx, "provider request throttled",
				"provider", t.provider, "model", model, "status", status, "attempt", attempt+1, "wait", wait)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		return &ProviderError{
			Provider:   t.provider,
			Model:      model,
			StatusCode: status,
			Message:    errorMessage(body),
		}
	}
}

func (t *transport) send(ctx context.Context, method, url string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, data, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// errorMessage extracts {"error":{"message":...}}, {"error":"..."}, or
// {"message":...} from an error body, falling back to the raw text.
func errorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if json.Unmarshal(envelope.Error, &flat) == nil && flat != "" {
			return flat
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response body"
	}
	return msg
}
