package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 * 1024

// maxPlainMessage caps a non-JSON error body used verbatim as a message.
const maxPlainMessage = 300

// HTTPError is a non-2xx response from the service.
type HTTPError struct {
	StatusCode int
	RequestID  string
	Message    string // user-facing
}

func (e *HTTPError) Error() string {
	return e.Message
}

// TransportError is a failure to reach the service or read its reply.
type TransportError struct {
	Op        string
	RequestID string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// messageFromBody picks the most readable message out of an error body:
// JSON "message", then "detail" (string or validation list), then the
// visible text of an HTML or plain body, then the status fallback.
func messageFromBody(status int, contentType string, body []byte) string {
	body = bytes.TrimSpace(body)

	if isJSON(contentType) || (len(body) > 0 && body[0] == '{') {
		var obj map[string]any
		if err := json.Unmarshal(body, &obj); err == nil {
			if msg := jsonMessage(obj); msg != "" {
				return msg
			}
			return statusMessage(status)
		}
	}

	if len(body) > 0 {
		if text := visibleText(string(body)); text != "" && len([]rune(text)) <= maxPlainMessage {
			return text
		}
	}
	return statusMessage(status)
}

func statusMessage(status int) string {
	return fmt.Sprintf("HTTP error! status: %d", status)
}

func jsonMessage(obj map[string]any) string {
	if s, ok := obj["message"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	switch d := obj["detail"].(type) {
	case string:
		return visibleText(d)
	case []any:
		// FastAPI request validation: [{"loc": [...], "msg": "...", ...}]
		var msgs []string
		for _, item := range d {
			if m, ok := item.(map[string]any); ok {
				if s, ok := m["msg"].(string); ok && s != "" {
					msgs = append(msgs, s)
				}
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// visibleText strips markup, returning whitespace-collapsed text.
func visibleText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	var sb strings.Builder
	collectText(doc, &sb, 0)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func collectText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 50 {
		return
	}
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "head":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb, depth+1)
	}
}
