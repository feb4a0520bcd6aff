package ocrapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/five82/lector/internal/transport"
)

// Authenticator covers the session endpoints. Implemented by *Client.
type Authenticator interface {
	Login(ctx context.Context, req LoginRequest) error
	Logout(ctx context.Context) error
	Register(ctx context.Context, reg Registration) error
	CurrentUser(ctx context.Context) (*User, error)
}

// ResultService covers the OCR job and result endpoints. Implemented by *Client.
type ResultService interface {
	SubmitFile(ctx context.Context, upload Upload) (OCRResponse, error)
	ListResults(ctx context.Context) ([]Result, error)
	GetResult(ctx context.Context, id string) (Result, error)
	DeleteResult(ctx context.Context, id string) error
}

var (
	_ Authenticator = (*Client)(nil)
	_ ResultService = (*Client)(nil)
)

// Client binds the service's HTTP contract to a transport.
type Client struct {
	t *transport.Client
}

// NewClient wraps t.
func NewClient(t *transport.Client) *Client {
	return &Client{t: t}
}

// Login posts credentials. The reply body is ignored: identity is always
// read back from /api/user.
func (c *Client) Login(ctx context.Context, req LoginRequest) error {
	return c.t.Do(ctx, http.MethodPost, "/api/login", req, nil)
}

// Logout ends the server session. Local credentials are dropped whatever the
// outcome.
func (c *Client) Logout(ctx context.Context) error {
	defer c.t.ClearCredentials()
	return c.t.Do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.t.Do(ctx, http.MethodPost, "/api/register", reg, nil)
}

// CurrentUser returns the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.t.Do(ctx, http.MethodGet, "/api/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SubmitFile uploads a file for extraction.
func (c *Client) SubmitFile(ctx context.Context, upload Upload) (OCRResponse, error) {
	if len(upload.Data) == 0 {
		return OCRResponse{}, transport.Validation("No file selected")
	}
	var payload OCRResponse
	if err := c.t.Upload(ctx, "/api/ocr", "file", upload.Filename, upload.ContentType, upload.Data, &payload); err != nil {
		return OCRResponse{}, err
	}
	return payload, nil
}

// ListResults returns the caller's results in server order.
func (c *Client) ListResults(ctx context.Context) ([]Result, error) {
	var payload ResultList
	if err := c.t.Do(ctx, http.MethodGet, "/api/results", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// GetResult fetches one result with its full text.
func (c *Client) GetResult(ctx context.Context, id string) (Result, error) {
	path, err := resultPath(id)
	if err != nil {
		return Result{}, err
	}
	var payload Result
	if err := c.t.Do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return Result{}, err
	}
	return payload, nil
}

// DeleteResult removes one result.
func (c *Client) DeleteResult(ctx context.Context, id string) error {
	path, err := resultPath(id)
	if err != nil {
		return err
	}
	return c.t.Do(ctx, http.MethodDelete, path, nil, nil)
}

func resultPath(id string) (string, error) {
	if !ValidResultID(id) {
		return "", transport.Validation("Invalid result ID")
	}
	return fmt.Sprintf("/api/results/%s", url.PathEscape(id)), nil
}
