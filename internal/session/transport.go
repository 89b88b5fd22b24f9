package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

type epochKey struct{}

// OnRequest returns a copy of req carrying the session token and the current epoch.
// A request that already sets Authorization keeps it.
func (m *Manager) OnRequest(req *http.Request) *http.Request {
	m.mu.Lock()
	token, epoch := m.creds.AccessToken, m.epoch
	m.mu.Unlock()

	req = req.Clone(context.WithValue(req.Context(), epochKey{}, epoch))
	if token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// OnResponse clears the session when an auth endpoint rejected the token. Answers from
// any other route, including 401 and 403, leave the session alone. A response to a
// request sent before the latest session change is ignored.
func (m *Manager) OnResponse(resp *http.Response) {
	if resp == nil || resp.Request == nil || !invalidates(resp.Request.URL.Path, resp.StatusCode) {
		return
	}

	m.mu.Lock()
	if epoch, ok := resp.Request.Context().Value(epochKey{}).(uint64); ok && epoch != m.epoch {
		m.mu.Unlock()
		return
	}
	if !m.hasSessionLocked() {
		m.mu.Unlock()
		return
	}
	m.clearLocked()
	m.mu.Unlock()

	m.logger.Info("Auth endpoint rejected the session",
		zap.String("path", resp.Request.URL.Path),
		zap.Int("status", resp.StatusCode),
	)
	m.cleared(ReasonAuthEndpoint)
}

type hookTransport struct {
	manager *Manager
	base    http.RoundTripper
}

func (t *hookTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = t.manager.OnRequest(req)
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.manager.OnResponse(resp)
	return resp, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []FieldError    `json:"errors"`
}

// Call sends a JSON request to path through Client and decodes the envelope's data into out.
// Non-2xx answers come back as *StatusError.
func (m *Manager) Call(ctx context.Context, method, path string, body, out any) error {
	return m.do(ctx, m.client, method, path, "", body, out)
}

// call is Call for the manager's own requests: it bypasses the hooks and uses token as given.
func (m *Manager) call(ctx context.Context, method, path, token string, body, out any) error {
	return m.do(ctx, m.raw, method, path, token, body, out)
}

func (m *Manager) do(ctx context.Context, client *http.Client, method, path, token string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.RequestTimeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.opts.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code:    resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: env.Message,
			Fields:  env.Errors,
		}
	}
	if decodeErr != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, decodeErr)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}
