package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultRequestTimeout bounds every Gateway call. A hung request fails
// instead of hanging its caller.
const DefaultRequestTimeout = 15 * time.Second

// RequestError is the uniform failure for every Gateway call: non-2xx
// statuses and 2xx bodies carrying success:false both surface as one.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// apiEnvelope is the server's response shape: {success, data, message?}
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Gateway executes API requests with the session's bearer token attached
// and normalizes every failure into a *RequestError.
type Gateway struct {
	baseURL string
	session *SessionStore
	client  *http.Client
	logger  *log.Logger
}

// NewGateway builds a Gateway against baseURL (scheme + host, no /api
// suffix) reading credentials from the given session store.
func NewGateway(baseURL string, session *SessionStore) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		client:  &http.Client{Timeout: DefaultRequestTimeout},
		logger:  log.New(os.Stdout, "[GATEWAY] ", log.LstdFlags),
	}
}

// Get performs a GET and decodes the envelope's data into out. Transport
// errors are retried once; GETs are the only idempotent verb we retry.
func (g *Gateway) Get(ctx context.Context, path string, out interface{}) error {
	err := g.do(ctx, http.MethodGet, path, nil, out)
	if err == nil {
		return nil
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) || ctx.Err() != nil {
		// Server answered, or the caller gave up: no retry
		return err
	}
	g.logger.Printf("GET %s failed (%v), retrying once", path, err)
	return g.do(ctx, http.MethodGet, path, nil, out)
}

func (g *Gateway) Post(ctx context.Context, path string, body, out interface{}) error {
	return g.do(ctx, http.MethodPost, path, body, out)
}

func (g *Gateway) Put(ctx context.Context, path string, body, out interface{}) error {
	return g.do(ctx, http.MethodPut, path, body, out)
}

func (g *Gateway) Patch(ctx context.Context, path string, body, out interface{}) error {
	return g.do(ctx, http.MethodPatch, path, body, out)
}

func (g *Gateway) Delete(ctx context.Context, path string, out interface{}) error {
	return g.do(ctx, http.MethodDelete, path, nil, out)
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+"/api"+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.session.Token())

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{
			Status:  resp.StatusCode,
			Message: serverMessage(raw, resp.StatusCode),
		}
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.Success {
		message := envelope.Message
		if message == "" {
			message = fmt.Sprintf("API error: %d", resp.StatusCode)
		}
		return &RequestError{Status: resp.StatusCode, Message: message}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// serverMessage pulls the server's error message out of a failure body,
// falling back to a generic status-based one.
func serverMessage(raw []byte, status int) string {
	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return fmt.Sprintf("API error: %d", status)
}
