package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names one kind of audited action.
type AuditEventType string

const (
	// Generation requests
	AuditGenerateStart    AuditEventType = "generate_start"
	AuditGenerateComplete AuditEventType = "generate_complete"
	AuditGenerateError    AuditEventType = "generate_error"

	// Identity changes
	AuditSignIn  AuditEventType = "sign_in"
	AuditSignOut AuditEventType = "sign_out"
	AuditSignUp  AuditEventType = "sign_up"

	// Saved files
	AuditDownload AuditEventType = "download"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	Timestamp  int64          `json:"ts"` // Unix milliseconds
	EventType  AuditEventType `json:"event"`
	User       string         `json:"user,omitempty"`
	Target     string         `json:"target,omitempty"`
	Success    bool           `json:"success"`
	DurationMs int64          `json:"dur_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger = &AuditLogger{}
)

// AuditLogger writes audit events as JSON lines next to the main log.
type AuditLogger struct {
	user string
}

// InitAudit opens today's audit file. A no-op outside debug mode.
func InitAudit() error {
	mu.RLock()
	debug, dir := opts.DebugMode, opts.Dir
	mu.RUnlock()
	if !debug {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(dir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	return auditLogger
}

// AuditForUser returns a logger that stamps user on every event.
func AuditForUser(user string) *AuditLogger {
	return &AuditLogger{user: user}
}

// Log writes event. Events are dropped when no audit file is open.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.User == "" {
		event.User = a.user
	}

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.Write(append(data, '\n'))
	}
}

// GenerateStart records a request leaving for the service.
func (a *AuditLogger) GenerateStart(byEmail bool, images int, hasDocument bool) {
	a.Log(AuditEvent{
		EventType: AuditGenerateStart,
		Success:   true,
		Fields: map[string]any{
			"email":    byEmail,
			"images":   images,
			"document": hasDocument,
		},
	})
}

// GenerateComplete records how a request settled.
func (a *AuditLogger) GenerateComplete(outcome string, durationMs int64, success bool, errMsg string) {
	eventType := AuditGenerateComplete
	if !success {
		eventType = AuditGenerateError
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Target:     outcome,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
	})
}

// Identity records a sign-in, sign-out or sign-up.
func (a *AuditLogger) Identity(eventType AuditEventType, user string, success bool) {
	a.Log(AuditEvent{
		EventType: eventType,
		User:      user,
		Success:   success,
	})
}

// Download records a saved presentation.
func (a *AuditLogger) Download(path string, size int64) {
	a.Log(AuditEvent{
		EventType: AuditDownload,
		Target:    path,
		Success:   true,
		Fields:    map[string]any{"bytes": size},
	})
}
