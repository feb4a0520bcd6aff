package results

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/five82/lector/internal/ocrapi"
	"github.com/five82/lector/internal/transport"
)

const (
	msgInvalidID     = "Invalid result ID"
	msgListFailed    = "Failed to fetch results"
	msgFetchFailed   = "Failed to fetch result"
	msgSubmitFailed  = "Failed to process file"
	msgDeleteFailed  = "Failed to delete result"
	msgMissingID     = "Server returned no result ID"
	msgResultDeleted = "Result was deleted"

	previewRunes    = 100
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	// ErrMissingID means the service accepted an upload but returned no usable id.
	ErrMissingID = errors.New("ocr response carried no result id")
	// ErrDeleted means a fetch completed after the same result was deleted.
	ErrDeleted = errors.New("result deleted while it was being fetched")
	// ErrStale means the session ended while the call was in flight. Its
	// answer belonged to that session and was discarded.
	ErrStale = errors.New("session changed while the request was in flight")
)

// Result is one extraction result held by the store.
type Result struct {
	ID          string
	Filename    string
	Timestamp   string
	TextContent string
	Preview     string
}

// ParsedTimestamp returns the timestamp as time.Time when possible.
func (r Result) ParsedTimestamp() time.Time {
	return ocrapi.ParseTime(r.Timestamp)
}

func fromAPI(r ocrapi.Result) Result {
	text := r.FullText()
	preview := r.Preview
	if preview == "" {
		preview = makePreview(text)
	}
	return Result{
		ID:          r.ID.String(),
		Filename:    r.Filename,
		Timestamp:   r.Timestamp,
		TextContent: text,
		Preview:     preview,
	}
}

func makePreview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "..."
}

// Snapshot is a copy of the store's state.
type Snapshot struct {
	Results     []Result
	Current     *Result
	LastError   string
	Pending     bool
	LastUpdated time.Time
}

// Options configure a Store.
type Options struct {
	Limits Limits
	Logger *zap.Logger
	Now    func() time.Time
}

// Store keeps the local result collection consistent with the server.
//
// The collection is newest first and never holds two results with the same
// id. The current slot holds the most recently fetched or created result and
// is cleared when that result is deleted. Operations may overlap; a journal of
// creations and deletions made while other operations were in flight lets a
// late list or fetch reconcile against them.
type Store struct {
	api    ocrapi.ResultService
	limits Limits
	logger *zap.Logger
	now    func() time.Time

	mu          sync.RWMutex
	items       []Result
	current     *Result
	lastError   string
	lastUpdated time.Time
	pending     int

	seq     uint64
	gen     uint64
	created map[string]uint64
	deleted map[string]uint64
}

// op is where an operation started: the journal position and the session
// generation.
type op struct {
	seq uint64
	gen uint64
}

// NewStore returns an empty Store.
func NewStore(api ocrapi.ResultService, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		api:     api,
		limits:  opts.Limits.normalized(),
		logger:  logger.Named("results"),
		now:     now,
		created: make(map[string]uint64),
		deleted: make(map[string]uint64),
	}
}

// Limits returns the upload limits in force.
func (s *Store) Limits() Limits {
	return s.limits
}

// List replaces the collection with the server's, in server order. On failure
// the previous collection is kept.
func (s *Store) List(ctx context.Context) ([]Result, error) {
	start := s.begin()
	defer s.end()

	items, err := s.api.ListResults(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleLocked(start) {
		return nil, s.discardLocked("list", err)
	}
	if err != nil {
		return nil, s.failLocked(err, msgListFailed)
	}

	seen := make(map[string]bool, len(items))
	fresh := make([]Result, 0, len(items))
	for _, item := range items {
		r := fromAPI(item)
		if !ocrapi.ValidResultID(r.ID) {
			s.logger.Warn("dropping listed result without id", zap.String("filename", r.Filename))
			continue
		}
		if seen[r.ID] {
			s.logger.Warn("dropping duplicate listed result", zap.String("id", r.ID))
			continue
		}
		if s.deleted[r.ID] > start.seq {
			continue
		}
		seen[r.ID] = true
		fresh = append(fresh, r)
	}

	// Results created while this list was in flight are not in the response.
	var recent []Result
	for _, r := range s.items {
		if s.created[r.ID] > start.seq && !seen[r.ID] {
			seen[r.ID] = true
			recent = append(recent, r)
		}
	}

	s.items = append(recent, fresh...)
	s.lastUpdated = s.now()
	return cloneResults(s.items), nil
}

// Submit validates and uploads file. The new result is put at the front of
// the collection and into the current slot, and returned.
func (s *Store) Submit(ctx context.Context, file File) (Result, error) {
	upload, err := Validate(file, s.limits)
	if err != nil {
		s.setError(transport.Message(err, msgSubmitFailed))
		return Result{}, err
	}

	start := s.begin()
	defer s.end()

	reply, err := s.api.SubmitFile(ctx, upload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleLocked(start) {
		return Result{}, s.discardLocked("submit", err)
	}
	if err != nil {
		return Result{}, s.failLocked(err, msgSubmitFailed)
	}
	id := reply.ResultID.String()
	if !ocrapi.ValidResultID(id) {
		s.lastError = msgMissingID
		s.logger.Error("ocr response without result id", zap.String("filename", upload.Filename))
		return Result{}, ErrMissingID
	}

	filename := reply.Filename
	if filename == "" {
		filename = upload.Filename
	}
	now := s.now()
	result := Result{
		ID:          id,
		Filename:    filename,
		Timestamp:   now.UTC().Format(timestampLayout),
		TextContent: reply.Text,
		Preview:     makePreview(reply.Text),
	}

	if s.indexLocked(id) >= 0 {
		s.logger.Warn("server reused an existing result id, replacing entry", zap.String("id", id))
	}
	s.items = append([]Result{result}, s.withoutLocked(id)...)
	s.seq++
	s.created[id] = s.seq
	delete(s.deleted, id)
	current := result
	s.current = &current
	s.lastUpdated = now
	return result, nil
}

// FetchOne loads one result into the current slot. The collection is not
// touched. Invalid ids are rejected without a request.
func (s *Store) FetchOne(ctx context.Context, id string) (Result, error) {
	if !ocrapi.ValidResultID(id) {
		s.setError(msgInvalidID)
		return Result{}, transport.Validation(msgInvalidID)
	}

	start := s.begin()
	defer s.end()

	item, err := s.api.GetResult(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleLocked(start) {
		return Result{}, s.discardLocked("fetch", err)
	}
	if err != nil {
		s.current = nil
		return Result{}, s.failLocked(err, msgFetchFailed)
	}
	if s.deleted[id] > start.seq {
		s.lastError = msgResultDeleted
		return Result{}, ErrDeleted
	}

	result := fromAPI(item)
	if result.ID == "" {
		result.ID = id
	}
	current := result
	s.current = &current
	return result, nil
}

// DeleteOne deletes a result on the server, then drops it locally. Nothing is
// removed unless the server confirms.
func (s *Store) DeleteOne(ctx context.Context, id string) error {
	if !ocrapi.ValidResultID(id) {
		s.setError(msgInvalidID)
		return transport.Validation(msgInvalidID)
	}

	start := s.begin()
	defer s.end()

	err := s.api.DeleteResult(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleLocked(start) {
		return s.discardLocked("delete", err)
	}
	if err != nil {
		return s.failLocked(err, msgDeleteFailed)
	}

	s.items = s.withoutLocked(id)
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.seq++
	s.deleted[id] = s.seq
	delete(s.created, id)
	s.lastUpdated = s.now()
	return nil
}

// ClearError drops LastError.
func (s *Store) ClearError() {
	s.setError("")
}

// Reset forgets everything held for the previous session. Operations still
// in flight discard their answers when they complete.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropSessionLocked()
	s.lastError = ""
	s.lastUpdated = time.Time{}
}

// Expire is Reset for a session the server reported gone: the collection is
// dropped and LastError says the session expired.
func (s *Store) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropSessionLocked()
	s.lastError = transport.SessionExpiredMessage
}

func (s *Store) dropSessionLocked() {
	s.gen++
	s.items = nil
	s.current = nil
	clear(s.created)
	clear(s.deleted)
}

func (s *Store) staleLocked(start op) bool {
	return start.gen != s.gen
}

// discardLocked handles an answer that arrived for an ended session. The
// store is left as the reset made it.
func (s *Store) discardLocked(name string, err error) error {
	s.logger.Debug("discarding answer from ended session", zap.String("op", name), zap.Error(err))
	if err != nil {
		return err
	}
	return ErrStale
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Results:     cloneResults(s.items),
		LastError:   s.lastError,
		Pending:     s.pending > 0,
		LastUpdated: s.lastUpdated,
	}
	if s.current != nil {
		current := *s.current
		snap.Current = &current
	}
	return snap
}

// failLocked records err as the last error. A 401 means the data belongs to a
// session that no longer exists, so it is dropped.
func (s *Store) failLocked(err error, fallback string) error {
	s.lastError = transport.Message(err, fallback)
	if transport.IsUnauthorized(err) {
		s.lastError = transport.SessionExpiredMessage
		s.dropSessionLocked()
	}
	s.logger.Warn("result operation failed", zap.Error(err))
	return err
}

func (s *Store) setError(message string) {
	s.mu.Lock()
	s.lastError = message
	s.mu.Unlock()
}

// begin marks an operation in flight, clears the previous error and returns
// where it started.
func (s *Store) begin() op {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending++
	s.lastError = ""
	return op{seq: s.seq, gen: s.gen}
}

func (s *Store) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		clear(s.created)
		clear(s.deleted)
	}
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.items {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) withoutLocked(id string) []Result {
	out := make([]Result, 0, len(s.items))
	for _, r := range s.items {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func cloneResults(items []Result) []Result {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Result, len(items))
	copy(dup, items)
	return dup
}
