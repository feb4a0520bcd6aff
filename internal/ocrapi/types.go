package ocrapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ResultID is an opaque result identifier. The service emits integers; they
// are kept as strings and never interpreted.
type ResultID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ResultID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ResultID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("result id: %w", err)
	}
	*id = ResultID(n.String())
	return nil
}

// String returns the identifier text.
func (id ResultID) String() string { return string(id) }

// ValidResultID reports whether id may be sent to the service. Empty ids and
// the literal placeholders "undefined" and "null" are rejected.
func ValidResultID(id string) bool {
	trimmed := strings.TrimSpace(id)
	switch trimmed {
	case "", "undefined", "null":
		return false
	}
	return trimmed == id
}

// LoginRequest is the /api/login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the /api/register body.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// User mirrors /api/user. Fields other than username are kept opaque.
type User struct {
	Username string
	Profile  map[string]any
}

// UnmarshalJSON keeps every field in Profile and lifts out username.
func (u *User) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	u.Profile = fields
	u.Username = ""
	if name, ok := fields["username"].(string); ok {
		u.Username = strings.TrimSpace(name)
	}
	return nil
}

// Field returns a profile field formatted for display.
func (u User) Field(name string) string {
	v, ok := u.Profile[name]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Result is an extraction result as returned by the list and detail
// endpoints. The list carries only a preview; the detail carries the text.
type Result struct {
	ID          ResultID `json:"id"`
	Filename    string   `json:"filename"`
	Timestamp   string   `json:"timestamp"`
	Text        string   `json:"text"`
	TextContent string   `json:"text_content"`
	Preview     string   `json:"text_preview"`
}

// FullText returns whichever text field the server populated.
func (r Result) FullText() string {
	if r.Text != "" {
		return r.Text
	}
	return r.TextContent
}

// ParsedTimestamp returns the timestamp as time.Time when possible.
func (r Result) ParsedTimestamp() time.Time {
	return ParseTime(r.Timestamp)
}

// ResultList mirrors /api/results.
type ResultList struct {
	Results []Result `json:"results"`
}

// OCRResponse mirrors a successful /api/ocr reply.
type OCRResponse struct {
	Success  bool     `json:"success"`
	ResultID ResultID `json:"result_id"`
	Filename string   `json:"filename"`
	Text     string   `json:"text"`
}

// Upload is a file ready to be posted to /api/ocr.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ParseTime parses the ISO-8601 variants the service emits. Python's
// isoformat omits the zone, so naive timestamps are read as UTC.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
