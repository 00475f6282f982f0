package main

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

	"github.com/gorilla/websocket"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// APIError is a non-2xx response from the server
type APIError struct {
	Status int
	Code   string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Reason, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Code, e.Status)
}

// Client talks to the MediaGrab HTTP API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
}

// NewClient creates an API client
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		dialer:  websocket.DefaultDialer,
	}
}

// Submit posts a download request and returns the job id
func (c *Client) Submit(ctx context.Context, rawURL, mediaType, quality string) (string, error) {
	payload := map[string]string{"url": rawURL, "media_type": mediaType}
	if quality != "" {
		payload["quality"] = quality
	}

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/downloads", payload, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// GetJob fetches one job
func (c *Client) GetJob(ctx context.Context, id string) (*domain.DownloadJob, error) {
	var job domain.DownloadJob
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs lists jobs newest first. An empty owner means the caller.
func (c *Client) ListJobs(ctx context.Context, owner string) ([]*domain.DownloadJob, error) {
	path := "/api/v1/jobs"
	if owner != "" {
		path += "?owner=" + url.QueryEscape(owner)
	}
	var jobs []*domain.DownloadJob
	if err := c.do(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Watch streams job snapshots into updates until the server closes the stream.
// updates is closed on return.
func (c *Client) Watch(ctx context.Context, id string, updates chan<- *domain.DownloadJob) error {
	defer close(updates)

	wsURL, err := c.watchURL(id)
	if err != nil {
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return decodeAPIError(resp)
		}
		return fmt.Errorf("failed to open watch stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var job domain.DownloadJob
		if err := conn.ReadJSON(&job); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("watch stream failed: %w", err)
		}
		select {
		case updates <- &job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) watchURL(id string) (string, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/jobs/" + url.PathEscape(id) + "/watch")
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("access_token", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
