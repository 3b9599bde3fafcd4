package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/S1riyS/happyphone/server/internal/middleware"
	"github.com/S1riyS/happyphone/server/internal/service"
	"github.com/S1riyS/happyphone/server/pkg/response"
)

// API is the terminal server as the TUI sees it.
type API interface {
	Command(ctx context.Context, line string) (*service.Response, error)
	Downloads(ctx context.Context) (*service.PollResult, error)
	History(ctx context.Context) ([]string, error)
	EditBuffer(ctx context.Context, path string) (*service.EditBuffer, error)
	EditFile(ctx context.Context, path, content string) (*service.Response, error)
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type Client struct {
	baseURL  string
	token    string
	userID   string
	userName string
	http     *http.Client
}

// NewClient talks to baseURL. A non-empty token is sent as a bearer token;
// otherwise userID and userName go in the identity headers.
func NewClient(baseURL, token, userID, userName string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		userID:   userID,
		userName: userName,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Command(ctx context.Context, line string) (*service.Response, error) {
	var resp service.Response
	if err := c.do(ctx, http.MethodPost, "/api/command", map[string]string{"line": line}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Downloads(ctx context.Context) (*service.PollResult, error) {
	var res service.PollResult
	if err := c.do(ctx, http.MethodGet, "/api/downloads", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) History(ctx context.Context) ([]string, error) {
	var res struct {
		History []string `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/history", nil, &res); err != nil {
		return nil, err
	}
	return res.History, nil
}

func (c *Client) EditBuffer(ctx context.Context, path string) (*service.EditBuffer, error) {
	var buf service.EditBuffer
	if err := c.do(ctx, http.MethodGet, "/api/edit?path="+url.QueryEscape(path), nil, &buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

func (c *Client) EditFile(ctx context.Context, path, content string) (*service.Response, error) {
	var resp service.Response
	body := map[string]string{"path": path, "content": content}
	if err := c.do(ctx, http.MethodPost, "/api/edit", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		req.Header.Set(middleware.UserIDHeader, c.userID)
		req.Header.Set(middleware.UserNameHeader, c.userName)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var eb response.ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error == "" {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return &APIError{Status: resp.StatusCode, Kind: eb.Kind, Message: eb.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
