package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/lector/internal/ocrapi"
	"github.com/five82/lector/internal/transport"
)

// Status is the client's belief about its authentication state.
type Status int

const (
	StatusAnonymous Status = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrNoSession is returned by Login when the server accepted the credentials
// but the follow-up identity check found no user.
var ErrNoSession = errors.New("login accepted but no session was established")

const (
	msgInvalidCredentials = "Invalid username or password"
	msgMissingCredentials = "Missing username or password"
	msgMissingFields      = "Missing required fields"
	msgPasswordMismatch   = "Passwords do not match"
	msgRegisterFailed     = "Registration failed"
	msgLogoutFailed       = "Logout failed"
	msgNoSession          = "Login succeeded but the session could not be established"
)

// Snapshot is a copy of the session state.
type Snapshot struct {
	Status    Status
	User      *ocrapi.User
	LastError string
	Pending   bool // an operation is in flight
	CheckedAt time.Time
}

// Authenticated reports whether a user is logged in.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Username returns the logged in user's name, or "".
func (s Snapshot) Username() string {
	if s.User == nil {
		return ""
	}
	return s.User.Username
}

// Manager owns the session state machine. Login, logout, register and
// session checks are serialized: a second call waits for the first to settle.
type Manager struct {
	api    ocrapi.Authenticator
	logger *zap.Logger

	op sync.Mutex

	mu        sync.RWMutex
	status    Status
	user      *ocrapi.User
	lastError string
	pending   int
	checkedAt time.Time
}

// NewManager returns a Manager in the anonymous state.
func NewManager(api ocrapi.Authenticator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{api: api, logger: logger.Named("session")}
}

// CheckSession asks the server who is logged in and makes the session match.
// A 401 or an empty user means anonymous; any other failure is logged and
// also resolves to anonymous. It reports whether a user is authenticated.
func (m *Manager) CheckSession(ctx context.Context) bool {
	m.op.Lock()
	defer m.op.Unlock()
	m.begin()
	defer m.end()
	return m.checkSession(ctx)
}

func (m *Manager) checkSession(ctx context.Context) bool {
	user, err := m.api.CurrentUser(ctx)
	switch {
	case err == nil && user != nil && user.Username != "":
		m.mu.Lock()
		m.status = StatusAuthenticated
		m.user = cloneUser(user)
		m.checkedAt = time.Now()
		m.mu.Unlock()
		return true
	case err == nil, transport.IsUnauthorized(err):
	default:
		m.logger.Warn("session check failed", zap.Error(err))
	}
	m.mu.Lock()
	m.status = StatusAnonymous
	m.user = nil
	m.checkedAt = time.Now()
	m.mu.Unlock()
	return false
}

// Login authenticates with username and password. On success the identity is
// read back from the server; the login reply itself is never trusted. On
// failure the session ends in StatusFailed with LastError set and the error is
// returned.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	m.op.Lock()
	defer m.op.Unlock()
	m.begin()
	defer m.end()

	m.mu.Lock()
	m.status = StatusAuthenticating
	m.lastError = ""
	m.mu.Unlock()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return m.fail(transport.Validation(msgMissingCredentials), msgMissingCredentials)
	}
	if err := m.api.Login(ctx, ocrapi.LoginRequest{Username: username, Password: password}); err != nil {
		m.logger.Info("login rejected", zap.String("username", username), zap.Error(err))
		return m.fail(err, loginMessage(err))
	}
	if !m.checkSession(ctx) {
		return m.fail(ErrNoSession, msgNoSession)
	}
	m.logger.Info("logged in", zap.String("username", username))
	return nil
}

func loginMessage(err error) string {
	if transport.IsUnauthorized(err) && transport.ReasonOf(err) == "" {
		return msgInvalidCredentials
	}
	return transport.Message(err, msgInvalidCredentials)
}

func (m *Manager) fail(err error, message string) error {
	m.mu.Lock()
	m.status = StatusFailed
	m.user = nil
	m.lastError = message
	m.mu.Unlock()
	return err
}

// Logout ends the session. The session is anonymous afterwards whatever the
// server says. A 401 means the server had already dropped the session and is
// not reported.
func (m *Manager) Logout(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()
	m.begin()
	defer m.end()

	err := m.api.Logout(ctx)
	if transport.IsUnauthorized(err) {
		err = nil
	}

	m.mu.Lock()
	m.status = StatusAnonymous
	m.user = nil
	m.lastError = ""
	if err != nil {
		m.lastError = transport.Message(err, msgLogoutFailed)
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("logout request failed, session cleared locally", zap.Error(err))
		return err
	}
	m.logger.Info("logged out")
	return nil
}

// Register creates an account. It never changes the session status.
func (m *Manager) Register(ctx context.Context, reg ocrapi.Registration) error {
	m.op.Lock()
	defer m.op.Unlock()
	m.begin()
	defer m.end()
	m.setError("")

	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Username == "" || reg.Email == "" || reg.Password == "" {
		m.setError(msgMissingFields)
		return transport.Validation(msgMissingFields)
	}
	if reg.Password != reg.Password2 {
		m.setError(msgPasswordMismatch)
		return transport.Validation(msgPasswordMismatch)
	}
	if err := m.api.Register(ctx, reg); err != nil {
		m.setError(transport.Message(err, msgRegisterFailed))
		return err
	}
	m.logger.Info("registered", zap.String("username", reg.Username))
	return nil
}

// ClearError drops LastError without touching the status.
func (m *Manager) ClearError() {
	m.setError("")
}

// Invalidate drops the session after the server rejected a request with 401.
// It does not wait for in-flight operations.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusAuthenticated {
		m.logger.Info("session invalidated by server")
	}
	m.status = StatusAnonymous
	m.user = nil
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Status:    m.status,
		User:      cloneUser(m.user),
		LastError: m.lastError,
		Pending:   m.pending > 0,
		CheckedAt: m.checkedAt,
	}
}

func (m *Manager) setError(message string) {
	m.mu.Lock()
	m.lastError = message
	m.mu.Unlock()
}

func (m *Manager) begin() {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()
}

func (m *Manager) end() {
	m.mu.Lock()
	m.pending--
	m.mu.Unlock()
}

func cloneUser(u *ocrapi.User) *ocrapi.User {
	if u == nil {
		return nil
	}
	dup := ocrapi.User{Username: u.Username}
	if u.Profile != nil {
		dup.Profile = make(map[string]any, len(u.Profile))
		for k, v := range u.Profile {
			dup.Profile[k] = v
		}
	}
	return &dup
}
