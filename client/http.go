package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/GoCodeAlone/taskhub/server/api"
)

// APIError is a failure reported by the server, carrying the envelope's
// user-displayable message.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string { return e.Message }

// do issues an authenticated request and decodes the envelope's data into
// out (which may be nil). It returns the envelope meta for list responses.
func (s *TaskStore) do(ctx context.Context, method, path string, body, out any) (*api.Meta, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
		Meta api.Meta        `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return nil, fmt.Errorf("decode response data: %w", err)
	}
	return &env.Meta, nil
}

// decodeAPIError turns an error envelope into an *APIError, falling back to
// a generic message when the body is not an envelope.
func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	var env api.ErrorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Message == "" {
		return &APIError{
			Status:  resp.StatusCode,
			Code:    api.CodeInternal,
			Message: fmt.Sprintf("server returned %d", resp.StatusCode),
		}
	}
	return &APIError{
		Status:  resp.StatusCode,
		Code:    env.Error.Code,
		Message: env.Error.Message,
	}
}
