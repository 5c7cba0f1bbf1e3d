package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 4 << 20

// Client calls the answering backend over HTTP. The first question for a
// document uploads the raw file; the backend replies with a case_id that
// later questions reference instead of re-sending the bytes.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	backoff    func(attempt int) time.Duration

	// Stats records per-call latency for the stats endpoint.
	Stats *Stats
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		backoff: Backoff,
		Stats:   NewStats(time.Hour),
	}
}

// BaseURL returns the backend address the client was configured with.
func (c *Client) BaseURL() string { return c.baseURL }

// AskRequest is one question against one document. CaseID empty means this
// is the first question: FileName and FileData must carry the document.
type AskRequest struct {
	Question string
	CaseID   string
	FileName string
	FileData []byte
}

// Ask sends one question and decodes the backend's answer. Rate limiting
// and backend-side failures come back as *RetryableError.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*Response, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, errors.New("question is empty")
	}

	var (
		body        *bytes.Buffer
		contentType string
	)
	if req.CaseID != "" {
		payload, err := json.Marshal(map[string]string{
			"case_id":  req.CaseID,
			"question": req.Question,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(payload)
		contentType = "application/json"
	} else {
		if len(req.FileData) == 0 {
			return nil, errors.New("first question needs the document bytes")
		}
		var err error
		body, contentType, err = multipartAsk(req)
		if err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("answering backend: %w", err)
	}
	defer resp.Body.Close()
	if c.Stats != nil {
		c.Stats.Record(time.Since(start).Milliseconds())
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("answering backend status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// AskWithRetry wraps Ask with jittered exponential backoff on retryable
// failures, up to MaxRetries attempts.
func (c *Client) AskWithRetry(ctx context.Context, req AskRequest) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		resp, err := c.Ask(ctx, req)
		if err == nil || !IsRetryable(err) {
			return resp, err
		}
		lastErr = err
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// multipartAsk builds the first-question body: the document file plus the
// question as form fields.
func multipartAsk(req AskRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.FileData); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.WriteField("question", req.Question); err != nil {
		return nil, "", fmt.Errorf("write question field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
