package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GoCodeAlone/taskhub/user"
)

// Credentials is the result of a successful signup or signin.
type Credentials struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// Signup registers a new owner account and returns its credentials.
func Signup(ctx context.Context, httpc *http.Client, baseURL, email, password, name string) (*Credentials, error) {
	return authRequest(ctx, httpc, baseURL, "/api/auth/signup",
		map[string]string{"email": email, "password": password, "name": name})
}

// Signin authenticates an existing owner and returns its credentials.
func Signin(ctx context.Context, httpc *http.Client, baseURL, email, password string) (*Credentials, error) {
	return authRequest(ctx, httpc, baseURL, "/api/auth/signin",
		map[string]string{"email": email, "password": password})
}

func authRequest(ctx context.Context, httpc *http.Client, baseURL, path string, body map[string]string) (*Credentials, error) {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp)
	}
	var env struct {
		Data Credentials `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env.Data, nil
}
