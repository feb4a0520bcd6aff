package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultUserAgent = "lector/0.1"
	defaultTimeout   = 10 * time.Second
	defaultOrigin    = "http://127.0.0.1:5000"
	maxErrorBody     = 64 * 1024
)

// BaseURLSource supplies the base URL requests are resolved against. An empty
// value means same origin.
type BaseURLSource interface {
	BaseURL() string
}

// StaticBase is a fixed BaseURLSource.
type StaticBase string

// BaseURL implements BaseURLSource.
func (s StaticBase) BaseURL() string { return string(s) }

// Options configure a Client.
type Options struct {
	Base        BaseURLSource
	Origin      string        // what "same origin" resolves to; defaults to 127.0.0.1:5000
	Timeout     time.Duration // per call; defaults to 10s
	Credentials Credentials   // defaults to an empty cookie handle
	HTTPClient  *http.Client  // Timeout is overridden
	Logger      *zap.Logger
	UserAgent   string
}

// Client issues JSON requests against the OCR service and classifies failures.
type Client struct {
	base      BaseURLSource
	origin    *url.URL
	http      *http.Client
	creds     Credentials
	logger    *zap.Logger
	userAgent string

	mu        sync.Mutex
	listeners []func()
}

// New builds a Client.
func New(opts Options) (*Client, error) {
	origin := strings.TrimSpace(opts.Origin)
	if origin == "" {
		origin = defaultOrigin
	}
	originURL, err := ParseBaseURL(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}

	base := opts.Base
	if base == nil {
		base = StaticBase("")
	}
	creds := opts.Credentials
	if creds == nil {
		creds = NewCookieCredentials()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{}
	if opts.HTTPClient != nil {
		dup := *opts.HTTPClient
		httpClient = &dup
	}
	httpClient.Timeout = timeout
	httpClient.Jar = nil

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		base:      base,
		origin:    originURL,
		http:      httpClient,
		creds:     creds,
		logger:    logger.Named("transport"),
		userAgent: userAgent,
	}, nil
}

// OnUnauthorized registers fn to run on every 401 response, before the
// failing call returns.
func (c *Client) OnUnauthorized(fn func()) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// ClearCredentials forgets the stored session credentials.
func (c *Client) ClearCredentials() {
	c.creds.Clear()
}

// Do sends a request with an optional JSON body and decodes a JSON response
// into dest when dest is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, dest any) error {
	op := method + " " + path
	reqURL, err := c.resolve(path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, op, dest)
}

// Upload sends data as the multipart form field named field.
func (c *Client) Upload(ctx context.Context, path, field, filename, contentType string, data []byte, dest any) error {
	op := http.MethodPost + " " + path
	reqURL, err := c.resolve(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write form part: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return c.send(req, op, dest)
}

func (c *Client) send(req *http.Request, op string, dest any) error {
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	c.creds.Attach(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return networkError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.creds.Observe(resp)

	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		failure := statusError(op, resp.StatusCode, extractReason(raw))
		if failure.Kind == KindUnauthorized {
			c.notifyUnauthorized()
		}
		return failure
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) notifyUnauthorized() {
	c.mu.Lock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (c *Client) resolve(path string) (*url.URL, error) {
	base := c.origin
	if raw := strings.TrimSpace(c.base.BaseURL()); raw != "" {
		u, err := ParseBaseURL(raw)
		if err != nil {
			return nil, err
		}
		base = u
	}
	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	// The base may carry a prefix such as /backend; request paths go below it.
	u := base.JoinPath(rel.Path)
	u.RawQuery = rel.RawQuery
	return u, nil
}

// extractReason pulls the human-readable message out of an error body.
func extractReason(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if s, ok := payload.Error.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return payload.Message
}

// ParseBaseURL normalizes an absolute base URL, adding http:// when no scheme
// is present. A path prefix is kept without its trailing slash; query and
// fragment are dropped.
func ParseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
