package ui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/five82/lector/internal/app"
	"github.com/five82/lector/internal/config"
	"github.com/five82/lector/internal/prefs"
	"github.com/five82/lector/internal/session"
)

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type backend struct {
	*httptest.Server

	mu      sync.Mutex
	expired bool
	nextID  int
	results []map[string]any
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{nextID: 2, results: []map[string]any{
		{"id": 1, "filename": "scan.png", "timestamp": "2024-01-01T00:00:00", "text_preview": "hello", "text": "hello world"},
	}}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) expire() {
	b.mu.Lock()
	b.expired = true
	b.mu.Unlock()
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	reply := func(status int, body any) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}

	switch r.URL.Path {
	case "/api/test":
		reply(http.StatusOK, map[string]string{"status": "ok"})
		return
	case "/api/login":
		var body struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			reply(http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
			return
		}
		b.expired = false
		http.SetCookie(w, &http.Cookie{Name: "session", Value: body.Username, Path: "/"})
		reply(http.StatusOK, map[string]any{"success": true})
		return
	}

	cookie, err := r.Cookie("session")
	if err != nil || b.expired {
		reply(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
		return
	}

	switch {
	case r.URL.Path == "/api/user":
		reply(http.StatusOK, map[string]any{"id": 1, "username": cookie.Value})
	case r.URL.Path == "/api/logout":
		reply(http.StatusOK, map[string]any{"success": true})
	case r.URL.Path == "/api/results":
		reply(http.StatusOK, map[string]any{"results": b.results})
	case r.URL.Path == "/api/ocr":
		file, header, err := r.FormFile("file")
		if err != nil {
			reply(http.StatusBadRequest, map[string]string{"error": "No file part"})
			return
		}
		_, _ = io.Copy(io.Discard, file)
		id := b.nextID
		b.nextID++
		b.results = append([]map[string]any{{"id": id, "filename": header.Filename, "text_preview": "fresh"}}, b.results...)
		reply(http.StatusOK, map[string]any{"success": true, "result_id": id, "filename": header.Filename, "text": "fresh text"})
	case strings.HasPrefix(r.URL.Path, "/api/results/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/results/")
		for i, item := range b.results {
			if jsonID(item["id"]) != id {
				continue
			}
			if r.Method == http.MethodDelete {
				b.results = append(b.results[:i], b.results[i+1:]...)
				reply(http.StatusOK, map[string]any{"success": true})
				return
			}
			reply(http.StatusOK, item)
			return
		}
		reply(http.StatusNotFound, map[string]string{"error": "Result not found"})
	default:
		http.NotFound(w, r)
	}
}

func jsonID(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func newTestModel(t *testing.T, b *backend) (Model, *app.Client) {
	t.Helper()
	cfg := config.Default()
	cfg.APIBase = b.URL
	cfg.ProbeTimeout = time.Second
	cfg.RequestTimeout = 2 * time.Second
	client, err := app.New(context.Background(), app.Options{
		Config:     cfg,
		Logger:     zaptest.NewLogger(t),
		Candidates: []string{b.URL},
	})
	require.NoError(t, err)

	m := New(Options{
		Context:   context.Background(),
		Client:    client,
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	return m, client
}

// step applies msg and returns the new model, discarding commands.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// run applies msg, then runs the command it returns, if any, and applies
// that command's message.
func run(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	return step(t, m, cmd())
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func login(t *testing.T, m Model) Model {
	t.Helper()
	require.Equal(t, modeLogin, m.mode)
	m = step(t, m, keyPress("alice"))
	m = step(t, m, keyPress("enter"))
	m = step(t, m, keyPress("secret"))
	m = run(t, m, keyPress("enter"))
	require.True(t, m.session.Authenticated(), "login should succeed")
	return m
}

func TestNew_AnonymousOpensLogin(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newBackend(t))
	assert.Equal(t, modeLogin, m.mode)
	assert.Equal(t, session.StatusAnonymous, m.session.Status)
	assert.Contains(t, m.View(), "Log in")
}

func TestModel_LoginThenList(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newBackend(t))
	m = login(t, m)
	assert.Equal(t, modeNone, m.mode)
	assert.Equal(t, "Logged in as alice", m.notice)

	// The login reply schedules a list.
	next, cmd := m.Update(loginDoneMsg{username: "alice"})
	m = next.(Model)
	require.NotNil(t, cmd)
	m = step(t, m, cmd())

	require.Len(t, m.results.Results, 1)
	assert.Equal(t, "scan.png", m.results.Results[0].Filename)
	assert.Contains(t, m.View(), "scan.png")
	assert.Equal(t, "alice", m.prefs.LastUsername)
}

func TestModel_WrongPasswordStaysOnForm(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newBackend(t))
	m = step(t, m, keyPress("alice"))
	m = step(t, m, keyPress("enter"))
	m = step(t, m, keyPress("nope"))
	m = run(t, m, keyPress("enter"))

	assert.Equal(t, modeLogin, m.mode)
	assert.Equal(t, session.StatusFailed, m.session.Status)
	assert.Equal(t, "Invalid username or password", m.session.LastError)
	assert.Empty(t, m.loginInputs[1].Value(), "password is cleared after a failure")
}

func TestModel_OpenAndDelete(t *testing.T) {
	t.Parallel()

	m, client := newTestModel(t, newBackend(t))
	m = login(t, m)
	m = run(t, m, keyPress("r"))
	require.Len(t, m.results.Results, 1)

	m = run(t, m, keyPress("enter"))
	assert.Equal(t, ViewDetail, m.view)
	require.NotNil(t, m.results.Current)
	assert.Equal(t, "hello world", m.results.Current.TextContent)

	m = step(t, m, keyPress("d"))
	require.Equal(t, modeConfirmDelete, m.mode)
	assert.Equal(t, "1", m.pendingDelete)

	m = run(t, m, keyPress("y"))
	assert.Equal(t, modeNone, m.mode)
	assert.Equal(t, ViewResults, m.view)
	assert.Empty(t, m.results.Results)
	assert.Nil(t, m.results.Current)
	assert.Equal(t, "Deleted result 1", m.notice)
	assert.Empty(t, client.Results.Snapshot().Results)
}

func TestModel_DeleteCancelled(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newBackend(t))
	m = login(t, m)
	m = run(t, m, keyPress("r"))

	m = step(t, m, keyPress("d"))
	require.Equal(t, modeConfirmDelete, m.mode)
	m = step(t, m, keyPress("n"))
	assert.Equal(t, modeNone, m.mode)
	assert.Len(t, m.results.Results, 1)
}

func TestModel_Upload(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newBackend(t))
	m = login(t, m)
	m = run(t, m, keyPress("r"))

	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, os.WriteFile(path, pngData, 0o644))

	m = step(t, m, keyPress("u"))
	require.Equal(t, modeUpload, m.mode)
	m = step(t, m, keyPress(path))
	m = run(t, m, keyPress("enter"))

	assert.Equal(t, modeNone, m.mode)
	assert.Equal(t, ViewDetail, m.view)
	require.Len(t, m.results.Results, 2)
	assert.Equal(t, "2", m.results.Results[0].ID)
	require.NotNil(t, m.results.Current)
	assert.Equal(t, "fresh text", m.results.Current.TextContent)
	assert.Equal(t, "Extracted text from page.png", m.notice)
}

func TestModel_UploadMissingFile(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newBackend(t))
	m = login(t, m)

	m = step(t, m, keyPress("u"))
	m = step(t, m, keyPress(filepath.Join(t.TempDir(), "missing.png")))
	m = run(t, m, keyPress("enter"))

	assert.Equal(t, modeUpload, m.mode, "form stays open so the path can be fixed")
	assert.NotEmpty(t, m.notice)
}

func TestModel_ExpiredSessionReopensLogin(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	m, _ := newTestModel(t, b)
	m = login(t, m)
	m = run(t, m, keyPress("r"))
	require.Len(t, m.results.Results, 1)

	b.expire()
	m = run(t, m, keyPress("r"))

	assert.Equal(t, session.StatusAnonymous, m.session.Status)
	assert.Empty(t, m.results.Results)
	assert.Equal(t, modeLogin, m.mode)
	assert.Equal(t, "Session expired. Please log in again.", m.results.LastError)
}

func TestModel_Logout(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newBackend(t))
	m = login(t, m)
	m = run(t, m, keyPress("r"))

	m = run(t, m, keyPress("O"))
	assert.Equal(t, session.StatusAnonymous, m.session.Status)
	assert.Empty(t, m.results.Results)
	assert.Equal(t, modeLogin, m.mode)
	assert.Equal(t, "Logged out", m.notice)
}

func TestModel_CycleThemeSavesPrefs(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newBackend(t))
	m = step(t, m, keyPress("esc"))
	require.Equal(t, modeNone, m.mode)

	m = step(t, m, keyPress("T"))
	assert.Equal(t, "Kanagawa", m.theme.Name)

	saved, err := prefs.Load(m.prefsPath)
	require.NoError(t, err)
	assert.Equal(t, "Kanagawa", saved.Theme)
}

func TestModel_SelectionMoves(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	b.mu.Lock()
	b.results = append(b.results,
		map[string]any{"id": 7, "filename": "b.png", "text_preview": "b"},
		map[string]any{"id": 8, "filename": "c.png", "text_preview": "c"},
	)
	b.mu.Unlock()
	m, _ := newTestModel(t, b)
	m = login(t, m)
	m = run(t, m, keyPress("r"))
	require.Len(t, m.results.Results, 3)

	m = step(t, m, keyPress("j"))
	m = step(t, m, keyPress("j"))
	m = step(t, m, keyPress("j"))
	assert.Equal(t, 2, m.selected, "selection stops at the last row")
	m = step(t, m, keyPress("g"))
	assert.Equal(t, 0, m.selected)
	m = step(t, m, keyPress("G"))
	assert.Equal(t, 2, m.selected)
	m = step(t, m, keyPress("k"))
	assert.Equal(t, 1, m.selected)
}

func TestModel_HelpOverlay(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newBackend(t))
	m = step(t, m, keyPress("esc"))
	m = step(t, m, keyPress("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "keyboard shortcuts")

	m = step(t, m, keyPress("x"))
	assert.False(t, m.showHelp)
}

func TestModel_ShowsOfflineAfterFailedRefreshes(t *testing.T) {
	t.Parallel()

	m, client := newTestModel(t, newBackend(t))
	m = step(t, m, keyPress("esc"))
	assert.NotContains(t, m.View(), "offline")

	client.Health.Record(client.Endpoint(), assert.AnError)
	client.Health.Record(client.Endpoint(), assert.AnError)
	m = step(t, m, tickMsg(time.Now()))

	assert.Contains(t, m.View(), "offline (2 failed refreshes)")
}

func TestLogsView_WarningsOnly(t *testing.T) {
	t.Parallel()
	b := newBackend(t)
	m, _ := newTestModel(t, b)
	m = login(t, m)

	logPath := filepath.Join(t.TempDir(), "lector.log")
	lines := `{"level":"info","logger":"lector.session","msg":"logged in"}` + "\n" +
		`{"level":"warn","logger":"lector.app","msg":"refresh failed"}` + "\n"
	require.NoError(t, os.WriteFile(logPath, []byte(lines), 0o644))
	m.logPath = logPath

	m = step(t, m, keyPress("tab"))
	m = run(t, m, keyPress("tab"))
	require.Equal(t, ViewLogs, m.view)
	require.Len(t, m.logLines, 2)

	m = run(t, m, keyPress("w"))
	require.Len(t, m.logLines, 1)
	assert.Contains(t, m.logLines[0], "refresh failed")

	m = run(t, m, keyPress("w"))
	assert.Len(t, m.logLines, 2)
}
