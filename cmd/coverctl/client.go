package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/thereceipt/cover-engine/internal/jobs"
)

// client talks to the cover server's export endpoints.
type client struct {
	baseURL string
	http    *http.Client
}

func newHTTPClient(serverURL string, timeout time.Duration) *client {
	return &client{
		baseURL: strings.TrimRight(serverURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is the error body every handler returns.
type apiError struct {
	Error string `json:"error"`
}

func (c *client) do(ctx context.Context, method, path string, body []byte) ([]byte, http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e apiError
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return nil, nil, fmt.Errorf("server: %s", e.Error)
		}
		return nil, nil, fmt.Errorf("server: %s", resp.Status)
	}
	return data, resp.Header, nil
}

// Submit queues an export of a raw project file and returns the job ID.
func (c *client) Submit(ctx context.Context, project []byte, format string, dpi float64) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"project": json.RawMessage(project),
		"format":  format,
		"dpi":     dpi,
	})
	if err != nil {
		return "", err
	}

	data, _, err := c.do(ctx, http.MethodPost, "/exports", body)
	if err != nil {
		return "", err
	}

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("invalid response: %w", err)
	}
	return resp.JobID, nil
}

// Job fetches one job.
func (c *client) Job(ctx context.Context, id string) (*jobs.Job, error) {
	data, _, err := c.do(ctx, http.MethodGet, "/exports/"+id, nil)
	if err != nil {
		return nil, err
	}
	var job jobs.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return &job, nil
}

// Jobs fetches every job.
func (c *client) Jobs(ctx context.Context) ([]*jobs.Job, error) {
	data, _, err := c.do(ctx, http.MethodGet, "/exports", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Jobs []*jobs.Job `json:"jobs"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return resp.Jobs, nil
}

// File downloads a finished job and returns its data and suggested name.
func (c *client) File(ctx context.Context, id string) ([]byte, string, error) {
	data, header, err := c.do(ctx, http.MethodGet, "/exports/"+id+"/file", nil)
	if err != nil {
		return nil, "", err
	}

	name := id
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return data, name, nil
}
