package endpoint

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/lector/internal/transport"
)

const (
	// ProductionBase is the hosted OCR service.
	ProductionBase = "https://ocr-flask-oyoc.onrender.com"

	// DefaultProbeTimeout bounds each health probe.
	DefaultProbeTimeout = 4 * time.Second

	healthPath = "/api/test"
)

// LocalFallbacks are tried last, for a backend running on the same machine.
var LocalFallbacks = []string{"http://localhost:5000", "http://127.0.0.1:5000"}

// Candidates returns the ordered candidate list for a configured API base.
// An empty base means same origin and yields a single empty candidate, which
// is never probed.
func Candidates(apiBase string) []string {
	apiBase = strings.TrimSpace(apiBase)
	if apiBase == "" {
		return []string{""}
	}
	all := append([]string{apiBase, ProductionBase}, LocalFallbacks...)
	seen := make(map[string]bool, len(all))
	out := make([]string, 0, len(all))
	for _, c := range all {
		c = strings.TrimRight(strings.TrimSpace(c), "/")
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Resolver picks the first reachable candidate and shares it with the
// transport. It implements transport.BaseURLSource.
type Resolver struct {
	candidates []string
	timeout    time.Duration
	http       *http.Client
	logger     *zap.Logger

	mu      sync.RWMutex
	current string
}

var _ transport.BaseURLSource = (*Resolver)(nil)

// Options configure a Resolver.
type Options struct {
	Candidates   []string
	ProbeTimeout time.Duration
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// NewResolver builds a Resolver. Until Resolve runs, the first candidate is
// current.
func NewResolver(opts Options) *Resolver {
	candidates := append([]string(nil), opts.Candidates...)
	if len(candidates) == 0 {
		candidates = []string{""}
	}
	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		candidates: candidates,
		timeout:    timeout,
		http:       client,
		logger:     logger.Named("endpoint"),
		current:    candidates[0],
	}
}

// Resolve probes the candidates in order and selects the first reachable one.
// The probes run one after another: order encodes preference, so a later
// candidate is only tried once the earlier one has failed or timed out. When
// nothing answers, the first candidate is kept as a degraded default and no
// error is reported; calls made through the transport will surface the
// failure. The previous selection is replaced atomically.
func (r *Resolver) Resolve(ctx context.Context) string {
	selected := r.candidates[0]
	if selected == "" {
		r.set(selected)
		return selected
	}

	found := false
	for _, candidate := range r.candidates {
		if ctx.Err() != nil {
			break
		}
		if candidate == "" || r.probe(ctx, candidate) {
			selected = candidate
			found = true
			break
		}
		r.logger.Warn("endpoint unreachable", zap.String("base", candidate))
	}
	if found {
		r.logger.Info("using backend", zap.String("base", selected))
	} else {
		r.logger.Error("no backend reachable, keeping default", zap.String("base", selected))
	}
	r.set(selected)
	return selected
}

// Current returns the selected base URL.
func (r *Resolver) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// BaseURL implements transport.BaseURLSource.
func (r *Resolver) BaseURL() string {
	return r.Current()
}

// Candidates returns a copy of the candidate list.
func (r *Resolver) Candidates() []string {
	return append([]string(nil), r.candidates...)
}

func (r *Resolver) set(base string) {
	r.mu.Lock()
	r.current = base
	r.mu.Unlock()
}

// probe reports whether base answered the health check with any status below
// 500 within the probe timeout. Probes carry no credentials.
func (r *Resolver) probe(ctx context.Context, base string) bool {
	u, err := transport.ParseBaseURL(base)
	if err != nil {
		r.logger.Warn("invalid candidate", zap.String("base", base), zap.Error(err))
		return false
	}
	u = u.JoinPath(healthPath)

	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false
	}
	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Debug("probe failed", zap.String("base", base), zap.Error(err))
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
