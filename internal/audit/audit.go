// Package audit provides a structured trail of privacy-relevant events
// (entity detected, placeholder created, mapping restored) separate from
// the operational zerolog stream, so a compliance reviewer can replay what
// happened to a thread without wading through debug logs. Adapted from the
// teacher's internal/audit, re-scoped from secret interception to the
// entity/placeholder vocabulary.
package audit

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// EventType identifies the kind of privacy event recorded.
type EventType string

const (
	EventEntityDetected      EventType = "entity_detected"
	EventPlaceholderCreated  EventType = "placeholder_created"
	EventPlaceholderRestored EventType = "placeholder_restored"
	EventTurnProcessed       EventType = "turn_processed"
	EventMappingCleared      EventType = "mapping_cleared"
	EventDetectorError       EventType = "detector_error"
	EventStoreError          EventType = "store_error"
	EventLLMError            EventType = "llm_error"
)

// Event is one audit log entry. Note what it never carries: the original
// or placeholder value itself, only the label and count — the audit trail
// must not become a second copy of the data it's auditing the protection
// of.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Thread    string            `json:"thread,omitempty"`
	Label     string            `json:"label,omitempty"`
	Count     int               `json:"count,omitempty"`
	Duration  float64           `json:"duration_ms,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Config holds audit logger configuration.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // "minimal", "standard", "verbose"
	Output  string `yaml:"output"`
	Format  string `yaml:"format"`
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() *Config {
	return &Config{Enabled: true, Level: "standard", Output: "stdout", Format: "json"}
}

// Logger handles audit logging.
type Logger struct {
	mu      sync.RWMutex
	config  *Config
	logger  *slog.Logger
	output  io.Writer
	enabled bool
}

// NewLogger creates a new audit logger from cfg.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Logger{config: cfg, enabled: cfg.Enabled}
	if err := l.setupOutput(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) setupOutput() error {
	var output io.Writer
	switch l.config.Output {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(l.config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		output = f
	}
	l.output = output

	var handler slog.Handler
	if l.config.Format == "json" {
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	l.logger = slog.New(handler)
	return nil
}

// Log records event, unless it is filtered by the configured level.
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	enabled := l.enabled
	logger := l.logger
	l.mu.RUnlock()

	if !enabled || logger == nil || !l.shouldLog(event.Type) {
		return
	}

	event.Timestamp = time.Now()

	attrs := []any{slog.String("type", string(event.Type))}
	if event.Thread != "" {
		attrs = append(attrs, slog.String("thread", event.Thread))
	}
	if event.Label != "" {
		attrs = append(attrs, slog.String("label", event.Label))
	}
	if event.Count > 0 {
		attrs = append(attrs, slog.Int("count", event.Count))
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Float64("duration_ms", event.Duration))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}
	logger.Info("audit", attrs...)
}

func (l *Logger) shouldLog(eventType EventType) bool {
	switch l.config.Level {
	case "minimal":
		return eventType == EventEntityDetected || eventType == EventPlaceholderCreated || eventType == EventPlaceholderRestored
	case "standard":
		return eventType != EventMappingCleared
	case "verbose":
		return true
	default:
		return true
	}
}

// LogEntityDetected records that count entities of label were found in thread.
func (l *Logger) LogEntityDetected(thread, label string, count int) {
	l.Log(&Event{Type: EventEntityDetected, Thread: thread, Label: label, Count: count})
}

// LogPlaceholderCreated records a new mapping for label in thread.
func (l *Logger) LogPlaceholderCreated(thread, label string) {
	l.Log(&Event{Type: EventPlaceholderCreated, Thread: thread, Label: label})
}

// LogPlaceholderRestored records count placeholders restored in a response.
func (l *Logger) LogPlaceholderRestored(thread string, count int) {
	l.Log(&Event{Type: EventPlaceholderRestored, Thread: thread, Count: count})
}

// LogTurnProcessed records one completed ProcessTurn call.
func (l *Logger) LogTurnProcessed(thread string, durationMs float64) {
	l.Log(&Event{Type: EventTurnProcessed, Thread: thread, Duration: durationMs})
}

// LogError records a failure from detector, store, or LLM.
func (l *Logger) LogError(eventType EventType, thread, errorMsg string) {
	l.Log(&Event{Type: eventType, Thread: thread, Error: errorMsg})
}

// Close releases the log output, if it is a file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if closer, ok := l.output.(io.Closer); ok && l.output != os.Stdout && l.output != os.Stderr {
		return closer.Close()
	}
	return nil
}

// ToJSON converts an event to JSON.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NopLogger discards every event. With audit.Config.Enabled false,
// NewLogger's *Logger drops events itself; NopLogger is a separate type.
type NopLogger struct{}

// NewNopLogger returns a no-op Logger.
func NewNopLogger() *NopLogger { return &NopLogger{} }

func (l *NopLogger) Log(_ *Event)                                  {}
func (l *NopLogger) LogEntityDetected(_, _ string, _ int)          {}
func (l *NopLogger) LogPlaceholderCreated(_, _ string)             {}
func (l *NopLogger) LogPlaceholderRestored(_ string, _ int)        {}
func (l *NopLogger) LogTurnProcessed(_ string, _ float64)          {}
func (l *NopLogger) LogError(_ EventType, _, _ string)             {}
func (l *NopLogger) Close() error                                  { return nil }
