package auth

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Audit event types.
const (
	EventPluginLoad    = "plugin_load"
	EventPluginResolve = "plugin_resolve"
	EventStrategy      = "strategy"
)

// Audit event subtypes.
const (
	SubtypeLoaded    = "loaded"
	SubtypeLoadFail  = "load_failed"
	SubtypeFallback  = "fallback"
	SubtypeMissing   = "missing"
	SubtypeMismatch  = "mismatch"
	SubtypeCreated   = "created"
	SubtypeRefused   = "refused"
	SubtypeDisabled  = "disabled"
	SubtypeMalformed = "malformed_param"
)

// Audit event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Audit event severities.
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// AuditEvent is a structured record of one plugin lifecycle step.
type AuditEvent struct {
	Timestamp     string `json:"timestamp"` // RFC 3339 UTC
	EventType     string `json:"event_type"`
	Subtype       string `json:"subtype"`
	Severity      string `json:"severity"`
	Source        string `json:"source"`
	Path          string `json:"path,omitempty"`
	Method        string `json:"method,omitempty"`
	CorrelationID string `json:"correlation_id"`
	Outcome       string `json:"outcome"`

	Details map[string]any `json:"details,omitempty"`
}

// String returns the JSON representation of the event.
func (e *AuditEvent) String() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// AuditLogger writes plugin lifecycle events. A nil *AuditLogger or one
// without a logger discards events.
type AuditLogger struct {
	logger        *slog.Logger
	correlationID string
}

// NewAuditLogger creates an AuditLogger with a fresh correlation ID.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger:        logger,
		correlationID: uuid.New().String(),
	}
}

// CorrelationID returns the ID attached to every event.
func (l *AuditLogger) CorrelationID() string {
	if l == nil {
		return ""
	}
	return l.correlationID
}

// Log constructs and writes an event.
func (l *AuditLogger) Log(eventType, subtype, severity, outcome, path, method string, details map[string]any) {
	if l == nil || l.logger == nil {
		return
	}

	event := &AuditEvent{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EventType:     eventType,
		Subtype:       subtype,
		Severity:      severity,
		Source:        "go-msgauth",
		Path:          path,
		Method:        method,
		CorrelationID: l.correlationID,
		Outcome:       outcome,
		Details:       details,
	}

	switch severity {
	case SeverityWarning:
		l.logger.Warn("AuditEvent", "event", event)
	case SeverityError:
		l.logger.Error("AuditEvent", "event", event)
	default:
		l.logger.Info("AuditEvent", "event", event)
	}
}
