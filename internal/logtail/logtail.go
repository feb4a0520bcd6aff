package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A missing
// file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if count < maxLines {
		return ring[:count:count], nil
	}
	lines := make([]string, count)
	for i := range lines {
		lines[i] = ring[(idx+i)%maxLines]
	}
	return lines, nil
}

// Entry is one structured line from lector's JSON log.
type Entry struct {
	Time    time.Time
	Level   string
	Logger  string
	Message string
	Fields  map[string]string
	Raw     string
}

var reserved = map[string]bool{"ts": true, "level": true, "logger": true, "msg": true, "caller": true, "stacktrace": true}

// Parse decodes a JSON log line. Lines that are not JSON objects come back
// with only Message and Raw set.
func Parse(line string) Entry {
	entry := Entry{Raw: line}
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		entry.Message = line
		return entry
	}
	entry.Level = strings.ToUpper(stringField(raw, "level"))
	entry.Logger = stringField(raw, "logger")
	entry.Message = stringField(raw, "msg")
	if ts := stringField(raw, "ts"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Time = parsed
		}
	}
	for k, v := range raw {
		if reserved[k] {
			continue
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]string)
		}
		entry.Fields[k] = fmt.Sprint(v)
	}
	return entry
}

// Format renders an entry as a single human-readable line.
func Format(e Entry) string {
	if e.Level == "" && e.Time.IsZero() {
		return e.Message
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	b.WriteString(e.Level)
	if e.Logger != "" {
		b.WriteString(" [" + e.Logger + "]")
	}
	b.WriteString(" " + e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" " + k + "=" + e.Fields[k])
	}
	return b.String()
}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3, "DPANIC": 4, "PANIC": 4, "FATAL": 5}

// AtLeast keeps entries at or above min. Entries without a level are kept.
func AtLeast(entries []Entry, min string) []Entry {
	floor, ok := levelRank[strings.ToUpper(min)]
	if !ok {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		rank, known := levelRank[e.Level]
		if !known || rank >= floor {
			out = append(out, e)
		}
	}
	return out
}

// Tail reads and parses the last maxLines of the log at path.
func Tail(path string, maxLines int) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, Parse(line))
	}
	return entries, nil
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}
