package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/five82/lector/internal/config"
	"github.com/five82/lector/internal/endpoint"
	"github.com/five82/lector/internal/ocrapi"
	"github.com/five82/lector/internal/results"
	"github.com/five82/lector/internal/session"
	"github.com/five82/lector/internal/state"
	"github.com/five82/lector/internal/transport"
)

// Options configure a Client.
type Options struct {
	Config config.Config
	Logger *zap.Logger

	// CookiePath persists session cookies between runs. Empty keeps them in
	// memory only.
	CookiePath string
	// Candidates replaces the endpoints derived from Config.APIBase.
	Candidates []string
	// HTTPClient is used for probes and API calls. Nil uses a default.
	HTTPClient *http.Client
	// SkipSessionCheck leaves the session Anonymous instead of asking the
	// server on startup.
	SkipSessionCheck bool
}

// Client is one running lector context: a resolved endpoint, a transport
// carrying the session credentials, and the session and result state built on
// top. Nothing here is global; tests build as many as they like.
type Client struct {
	Config    config.Config
	Resolver  *endpoint.Resolver
	Transport *transport.Client
	API       *ocrapi.Client
	Session   *session.Manager
	Results   *results.Store

	// Health records background refresh outcomes.
	Health *state.Store

	creds      *transport.CookieCredentials
	cookiePath string
	logger     *zap.Logger
}

// New resolves the endpoint, restores saved cookies and runs the startup
// session check. A failed check is not an error; the session is Anonymous.
func New(ctx context.Context, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config

	candidates := opts.Candidates
	if len(candidates) == 0 {
		candidates = endpoint.Candidates(cfg.APIBase)
	}
	resolver := endpoint.NewResolver(endpoint.Options{
		Candidates:   candidates,
		ProbeTimeout: cfg.ProbeTimeout,
		HTTPClient:   opts.HTTPClient,
		Logger:       logger,
	})
	resolver.Resolve(ctx)

	creds := transport.NewCookieCredentials()
	if opts.CookiePath != "" {
		if err := creds.Load(opts.CookiePath); err != nil {
			logger.Warn("ignoring unreadable cookie file", zap.String("path", opts.CookiePath), zap.Error(err))
		}
	}

	tc, err := transport.New(transport.Options{
		Base:        resolver,
		Origin:      cfg.Origin,
		Timeout:     cfg.RequestTimeout,
		Credentials: creds,
		HTTPClient:  opts.HTTPClient,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init transport: %w", err)
	}

	api := ocrapi.NewClient(tc)
	c := &Client{
		Config:    cfg,
		Resolver:  resolver,
		Transport: tc,
		API:       api,
		Session:   session.NewManager(api, logger),
		Results: results.NewStore(api, results.Options{
			Limits: results.Limits{MaxBytes: cfg.MaxUploadBytes()},
			Logger: logger,
		}),
		Health:     &state.Store{},
		creds:      creds,
		cookiePath: opts.CookiePath,
		logger:     logger.Named("app"),
	}
	tc.OnUnauthorized(c.sessionLost)

	if !opts.SkipSessionCheck {
		c.Session.CheckSession(ctx)
	}
	c.logger.Info("client ready",
		zap.String("endpoint", describeBase(resolver.Current())),
		zap.String("session", c.Session.Snapshot().Status.String()),
	)
	return c, nil
}

// Endpoint returns the base URL requests go to.
func (c *Client) Endpoint() string {
	if base := c.Resolver.Current(); base != "" {
		return base
	}
	return c.Config.Origin
}

// Reconnect probes the candidates again and re-checks the session. It returns
// the endpoint now in use.
func (c *Client) Reconnect(ctx context.Context) string {
	before := c.Resolver.Current()
	after := c.Resolver.Resolve(ctx)
	if after != before {
		c.logger.Info("endpoint changed", zap.String("from", describeBase(before)), zap.String("to", describeBase(after)))
	}
	c.Session.CheckSession(ctx)
	return c.Endpoint()
}

// sessionLost runs on every 401. When it ends an authenticated session, the
// results and poll health of that session are dropped too.
func (c *Client) sessionLost() {
	wasAuthenticated := c.Session.Snapshot().Authenticated()
	c.Session.Invalidate()
	if !wasAuthenticated {
		return
	}
	c.logger.Info("session expired, dropping cached results")
	c.Results.Expire()
	c.Health.Reset()
}

// Logout ends the session and forgets the previous user's results and
// cookies.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Session.Logout(ctx)
	c.Results.Reset()
	c.Health.Reset()
	c.Transport.ClearCredentials()
	return err
}

// Close saves the session cookies when a cookie path was configured.
func (c *Client) Close() error {
	if c.cookiePath == "" {
		return nil
	}
	if err := c.creds.Save(c.cookiePath); err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	return nil
}

func describeBase(base string) string {
	if base == "" {
		return "same origin"
	}
	return base
}
