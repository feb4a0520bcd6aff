package transport

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/net/publicsuffix"
)

// Credentials is the session handle threaded through every request. The
// transport never inspects it; a token scheme can replace the cookie jar
// without touching callers.
type Credentials interface {
	// Attach adds stored credentials to an outgoing request.
	Attach(req *http.Request)
	// Observe records credentials issued by the server.
	Observe(resp *http.Response)
	// Clear forgets all stored credentials.
	Clear()
}

// CookieCredentials keeps server-issued session cookies.
type CookieCredentials struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	origins map[string]*url.URL
}

var _ Credentials = (*CookieCredentials)(nil)

// NewCookieCredentials returns an empty cookie-backed credential handle.
func NewCookieCredentials() *CookieCredentials {
	return &CookieCredentials{jar: newJar(), origins: make(map[string]*url.URL)}
}

func newJar() *cookiejar.Jar {
	// cookiejar.New never fails with a non-nil options value.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// Attach implements Credentials.
func (c *CookieCredentials) Attach(req *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cookie := range c.jar.Cookies(req.URL) {
		req.AddCookie(cookie)
	}
}

// Observe implements Credentials.
func (c *CookieCredentials) Observe(resp *http.Response) {
	if resp == nil || resp.Request == nil {
		return
	}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	u := resp.Request.URL
	c.jar.SetCookies(u, cookies)
	c.origins[originKey(u)] = &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
}

// Clear implements Credentials.
func (c *CookieCredentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jar = newJar()
	c.origins = make(map[string]*url.URL)
}

// Empty reports whether no cookies are held for any known origin.
func (c *CookieCredentials) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.origins {
		if len(c.jar.Cookies(u)) > 0 {
			return false
		}
	}
	return true
}

type cookieFile struct {
	Cookies []storedCookie `toml:"cookies"`
}

type storedCookie struct {
	URL   string `toml:"url"`
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// Save writes the held cookies to path so a later process can reuse the
// session. An empty handle removes the file.
func (c *CookieCredentials) Save(path string) error {
	c.mu.Lock()
	var file cookieFile
	for _, u := range c.origins {
		for _, cookie := range c.jar.Cookies(u) {
			file.Cookies = append(file.Cookies, storedCookie{URL: u.String(), Name: cookie.Name, Value: cookie.Value})
		}
	}
	c.mu.Unlock()

	if len(file.Cookies) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove cookies: %w", err)
		}
		return nil
	}
	sort.Slice(file.Cookies, func(i, j int) bool {
		if file.Cookies[i].URL != file.Cookies[j].URL {
			return file.Cookies[i].URL < file.Cookies[j].URL
		}
		return file.Cookies[i].Name < file.Cookies[j].Name
	})

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}
	bytes, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}
	if err := os.WriteFile(path, bytes, 0o600); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}
	return nil
}

// Load restores cookies written by Save. A missing file is not an error.
func (c *CookieCredentials) Load(path string) error {
	bytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cookies: %w", err)
	}
	var file cookieFile
	if err := toml.Unmarshal(bytes, &file); err != nil {
		return fmt.Errorf("parse cookies: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, stored := range file.Cookies {
		u, err := url.Parse(stored.URL)
		if err != nil || u.Host == "" {
			continue
		}
		c.jar.SetCookies(u, []*http.Cookie{{Name: stored.Name, Value: stored.Value, Path: "/"}})
		c.origins[originKey(u)] = &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	}
	return nil
}

func originKey(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
