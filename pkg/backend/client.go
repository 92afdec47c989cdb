package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const (
	processPath  = "/process-content/"
	statusPath   = "/status/"
	chatPath     = "/chat/"
	llmCheckPath = "/llm-check"

	maxErrorBodyChars = 300
)

// Config holds connection settings for the summarization backend.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the document summarization backend over HTTP.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// New creates a backend client. A zero Timeout falls back to five minutes,
// which leaves room for large uploads.
func New(config *Config) *Client {
	cfg := *config
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Client{
		config: &cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// ResponseError reports a response body that could not be decoded.
type ResponseError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected response (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("unexpected response (status %d): %s", e.StatusCode, e.Body)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// ProcessContent uploads a file and/or URL and starts a processing job.
// A non-2xx response with a JSON body is returned as a rejection, not an
// error.
func (c *Client) ProcessContent(ctx context.Context, in ProcessRequest) (*ProcessResponse, error) {
	body, contentType, err := encodeMultipart(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+processPath, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var out ProcessResponse
	code, err := c.do(req, &out)
	if err != nil {
		return nil, err
	}
	if !ok(code) {
		out.Success = false
	}
	return &out, nil
}

// Status fetches the current state of a processing job.
func (c *Client) Status(ctx context.Context, sessionID string) (*StatusResponse, error) {
	endpoint := c.config.BaseURL + statusPath + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out StatusResponse
	if _, err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat asks a question about a processed document.
func (c *Client) Chat(ctx context.Context, in ChatRequest) (*ChatResponse, error) {
	if in.ChatHistory == nil {
		in.ChatHistory = []Message{}
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out ChatResponse
	code, err := c.do(req, &out)
	if err != nil {
		return nil, err
	}
	if !ok(code) {
		out.Success = false
	}
	return &out, nil
}

// CheckLLM asks the backend whether its language model is reachable.
func (c *Client) CheckLLM(ctx context.Context) (*LLMCheckResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+llmCheckPath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out LLMCheckResponse
	if _, err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, out any) (int, error) {
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, &ResponseError{
			StatusCode: resp.StatusCode,
			Body:       describeBody(resp.Header.Get("Content-Type"), body),
			Err:        err,
		}
	}
	return resp.StatusCode, nil
}

func ok(code int) bool {
	return code >= 200 && code < 300
}

func encodeMultipart(in ProcessRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if in.File != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(in.File.Name)))
		contentType := mime.TypeByExtension(filepath.Ext(in.File.Name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("creating file part: %w", err)
		}
		if in.File.Content != nil {
			if _, err := io.Copy(part, in.File.Content); err != nil {
				return nil, "", fmt.Errorf("writing file part: %w", err)
			}
		}
	}
	if in.URL != "" {
		if err := mw.WriteField("url", in.URL); err != nil {
			return nil, "", fmt.Errorf("writing url field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// describeBody turns an undecodable response body into a short readable
// excerpt. HTML error pages from proxies are flattened to text first.
func describeBody(contentType string, body []byte) string {
	text := string(body)
	if strings.Contains(strings.ToLower(contentType), "html") {
		if md, err := htmltomarkdown.ConvertString(text); err == nil {
			text = md
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxErrorBodyChars {
		text = text[:maxErrorBodyChars] + "..."
	}
	return text
}
