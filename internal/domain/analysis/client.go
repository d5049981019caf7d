package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/bytedance/sonic"

	"leafai-server-go/internal/platform/logging"
)

// RequestError is a failed analyze call: a transport-level failure carries
// status zero, a non-2xx response carries the status and any detail the
// server included.
type RequestError struct {
	StatusCode int
	Detail     string
	Body       []byte
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("analyze request failed (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("analyze request failed (status %d)", e.StatusCode)
}

// Client issues exactly one multipart POST per Analyze call against a
// remote analyze endpoint. No retry, no caching, no timeout of its own;
// whatever the transport enforces applies.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption customises the client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the underlying transport (useful for tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     logging.DefaultLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze serializes the upload and prompt into a multipart form and posts
// it to the analyze endpoint. Errors are propagated unchanged; the response
// body is returned raw for shape normalization by the caller.
func (c *Client) Analyze(ctx context.Context, upload Upload, prompt string) (json.RawMessage, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name="file"; filename=%q`, upload.Filename,
	))
	if upload.MIME != "" {
		header.Set("Content-Type", upload.MIME)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, fmt.Errorf("write file part: %w", err)
	}
	if err := writer.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("write prompt field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalise multipart body: %w", err)
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.DebugTag(
		"ANALYSIS",
		"posting upload: url=%s filename=%s size=%d prompt_len=%d",
		url, upload.Filename, upload.Size(), len(prompt),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post analyze request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read analyze response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Detail:     extractDetail(raw),
			Body:       raw,
		}
	}

	return raw, nil
}

// extractDetail pulls the server's `detail` field out of an error body.
// String details are surfaced verbatim; structured details are compacted to
// their JSON text so something readable always comes back.
func extractDetail(raw []byte) string {
	var probe struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := sonic.Unmarshal(raw, &probe); err != nil || !rawPresent(probe.Detail) {
		return ""
	}

	var detail string
	if err := sonic.Unmarshal(probe.Detail, &detail); err == nil {
		return detail
	}
	return string(bytes.TrimSpace(probe.Detail))
}
