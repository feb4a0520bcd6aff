package ocrapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/five82/lector/internal/transport"
)

func newClient(t *testing.T, handler http.Handler) (*Client, *transport.CookieCredentials) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	creds := transport.NewCookieCredentials()
	tc, err := transport.New(transport.Options{Base: transport.StaticBase(server.URL), Credentials: creds})
	if err != nil {
		t.Fatalf("transport.New returned error: %v", err)
	}
	return NewClient(tc), creds
}

func TestClient_EndpointsUseContractPaths(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []string
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "POST /api/login":
			var body LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Username != "alice" || body.Password != "pw" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
			_, _ = w.Write([]byte(`{"success": true, "user": {"username": "mallory"}}`))
		case "GET /api/user":
			_, _ = w.Write([]byte(`{"id": 1, "username": "alice", "email": "a@example.com"}`))
		case "POST /api/register":
			var body Registration
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Password2 != "pw" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"success": true}`))
		case "POST /api/ocr":
			_, _ = w.Write([]byte(`{"success": true, "result_id": 5, "filename": "a.png", "text": "hi"}`))
		case "GET /api/results":
			_, _ = w.Write([]byte(`{"results": [{"id": 5, "filename": "a.png", "timestamp": "2024-01-01T00:00:00", "text_preview": "hi"}]}`))
		case "GET /api/results/5":
			_, _ = w.Write([]byte(`{"id": 5, "filename": "a.png", "timestamp": "2024-01-01T00:00:00", "text": "hi there"}`))
		case "DELETE /api/results/5":
			_, _ = w.Write([]byte(`{"success": true}`))
		case "POST /api/logout":
			_, _ = w.Write([]byte(`{"success": true}`))
		default:
			http.NotFound(w, r)
		}
	})
	c, creds := newClient(t, handler)
	ctx := context.Background()

	if err := c.Login(ctx, LoginRequest{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	user, err := c.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser returned error: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("CurrentUser username = %q, want alice", user.Username)
	}
	if err := c.Register(ctx, Registration{Username: "bob", Email: "b@example.com", Password: "pw", Password2: "pw"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	reply, err := c.SubmitFile(ctx, Upload{Filename: "a.png", ContentType: "image/png", Data: []byte{1}})
	if err != nil {
		t.Fatalf("SubmitFile returned error: %v", err)
	}
	if reply.ResultID != "5" || reply.Text != "hi" {
		t.Fatalf("SubmitFile reply = %#v, want id 5 text hi", reply)
	}
	list, err := c.ListResults(ctx)
	if err != nil {
		t.Fatalf("ListResults returned error: %v", err)
	}
	if len(list) != 1 || list[0].ID != "5" || list[0].Preview != "hi" {
		t.Fatalf("ListResults = %#v, want one result id 5", list)
	}
	one, err := c.GetResult(ctx, "5")
	if err != nil {
		t.Fatalf("GetResult returned error: %v", err)
	}
	if one.FullText() != "hi there" {
		t.Fatalf("GetResult text = %q, want %q", one.FullText(), "hi there")
	}
	if err := c.DeleteResult(ctx, "5"); err != nil {
		t.Fatalf("DeleteResult returned error: %v", err)
	}
	if creds.Empty() {
		t.Fatalf("credentials empty after login, want session cookie")
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if !creds.Empty() {
		t.Fatalf("credentials kept after logout, want cleared")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		"POST /api/login", "GET /api/user", "POST /api/register", "POST /api/ocr",
		"GET /api/results", "GET /api/results/5", "DELETE /api/results/5", "POST /api/logout",
	}
	if len(seen) != len(want) {
		t.Fatalf("requests = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("request %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestClient_InvalidIDsNeverReachServer(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	ctx := context.Background()

	for _, id := range []string{"", "undefined", "null"} {
		if _, err := c.GetResult(ctx, id); !transport.IsValidation(err) {
			t.Fatalf("GetResult(%q) error = %v, want validation error", id, err)
		}
		if err := c.DeleteResult(ctx, id); !transport.IsValidation(err) {
			t.Fatalf("DeleteResult(%q) error = %v, want validation error", id, err)
		}
	}
	if _, err := c.SubmitFile(ctx, Upload{Filename: "empty.png"}); !transport.IsValidation(err) {
		t.Fatalf("SubmitFile(empty) error = %v, want validation error", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("server hits = %d, want 0", hits.Load())
	}
}

func TestClient_LogoutClearsCredentialsOnFailure(t *testing.T) {
	t.Parallel()

	c, creds := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
			return
		}
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	ctx := context.Background()

	if err := c.Login(ctx, LoginRequest{Username: "a", Password: "b"}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if err := c.Logout(ctx); err == nil {
		t.Fatalf("Logout returned nil error, want status error")
	}
	if !creds.Empty() {
		t.Fatalf("credentials kept after failed logout, want cleared")
	}
}

func TestClient_ListResultsMissingEnvelope(t *testing.T) {
	t.Parallel()

	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": null}`))
	}))
	list, err := c.ListResults(context.Background())
	if err != nil {
		t.Fatalf("ListResults returned error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("ListResults = %#v, want empty", list)
	}
}
