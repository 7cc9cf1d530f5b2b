// Package history reads the remote chat history for the sidebar. The
// service owns the history; nothing here is persisted.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"text2ppt/internal/logging"
)

const (
	previewLimit     = 100
	noPreview        = "No preview available"
	timeLayout       = "15:04"
	weekdayLayout    = "Mon"
	monthDayLayout   = "Jan 2"
	recentThreshold  = 24 * time.Hour
	weekdayThreshold = 7 * 24 * time.Hour
)

// Chat is one sidebar entry.
type Chat struct {
	ID        string
	Title     string
	Timestamp time.Time
	Preview   string
}

// Parse interprets either {"history": [string...]} or a raw array of
// chat objects. Any other shape yields no chats.
func Parse(raw []byte, now time.Time) []Chat {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	switch v := doc.(type) {
	case map[string]any:
		items, ok := v["history"].([]any)
		if !ok {
			return nil
		}
		chats := make([]Chat, 0, len(items))
		for i, item := range items {
			text, ok := item.(string)
			if !ok {
				text = fmt.Sprint(item)
			}
			chats = append(chats, Chat{
				ID:        fmt.Sprintf("chat_%d", i+1),
				Title:     fmt.Sprintf("Chat %d", i+1),
				Timestamp: now,
				Preview:   truncate(text, previewLimit),
			})
		}
		return chats

	case []any:
		chats := make([]Chat, 0, len(v))
		for i, item := range v {
			obj, _ := item.(map[string]any)
			chats = append(chats, Chat{
				ID:        firstText(obj, fmt.Sprintf("chat_%d", i+1), "id"),
				Title:     firstText(obj, fmt.Sprintf("Chat %d", i+1), "title"),
				Timestamp: parseTimestamp(obj["timestamp"], now),
				Preview:   firstText(obj, noPreview, "preview", "content", "text"),
			})
		}
		return chats
	}
	return nil
}

// firstText returns the first key holding a non-empty string or a number.
func firstText(obj map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v != 0 {
				return fmt.Sprint(v)
			}
		}
	}
	return def
}

func parseTimestamp(v any, now time.Time) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return now
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

// Filter keeps chats whose title or preview contains query,
// case-insensitively. A blank query keeps everything.
func Filter(chats []Chat, query string) []Chat {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return chats
	}
	var out []Chat
	for _, c := range chats {
		if strings.Contains(strings.ToLower(c.Title), q) || strings.Contains(strings.ToLower(c.Preview), q) {
			out = append(out, c)
		}
	}
	return out
}

// FormatTimestamp renders ts relative to now: clock time within a day,
// weekday within a week, otherwise month and day.
func FormatTimestamp(ts, now time.Time) string {
	ts = ts.In(now.Location())
	switch d := now.Sub(ts); {
	case d < recentThreshold:
		return ts.Format(timeLayout)
	case d < weekdayThreshold:
		return ts.Format(weekdayLayout)
	}
	return ts.Format(monthDayLayout)
}

// Source returns the raw history document for a user.
type Source interface {
	History(ctx context.Context, username string) (json.RawMessage, error)
}

// Fetcher loads history for the sidebar. Concurrent fetches for the same
// user share one request.
type Fetcher struct {
	src   Source
	group singleflight.Group
	now   func() time.Time
}

// NewFetcher creates a Fetcher over src.
func NewFetcher(src Source) *Fetcher {
	return &Fetcher{src: src, now: time.Now}
}

// Fetch returns the user's chats. Every failure yields an empty list;
// the sidebar never shows an error.
func (f *Fetcher) Fetch(ctx context.Context, username string) []Chat {
	if strings.TrimSpace(username) == "" {
		return nil
	}
	v, err, shared := f.group.Do(username, func() (any, error) {
		raw, err := f.src.History(ctx, username)
		if err != nil {
			return nil, err
		}
		return Parse(raw, f.now()), nil
	})
	log := logging.Get(logging.CategoryHistory)
	if err != nil {
		log.Warnw("fetch failed", "user", username, "error", err)
		return nil
	}
	chats := v.([]Chat)
	log.Debugw("fetched", "user", username, "chats", len(chats), "shared", shared)
	return chats
}
