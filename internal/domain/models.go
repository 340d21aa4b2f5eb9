package domain

import (
	"time"
)

// Kind distinguishes the two families of indexed items.
type Kind string

const (
	KindService Kind = "service"
	KindPlugin  Kind = "plugin"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindService || k == KindPlugin
}

// Plural returns the URL segment used for the kind ("services", "plugins").
func (k Kind) Plural() string {
	return string(k) + "s"
}

// InferTask is the fallback task name used when a service declares no tasks.
const InferTask = "infer"

// ServiceMeta describes a registered service
type ServiceMeta struct {
	Name           string           `json:"name"`
	Folder         string           `json:"folder,omitempty"`
	Provider       string           `json:"provider,omitempty"`
	Tasks          []string         `json:"tasks"`
	Kind           Kind             `json:"kind,omitempty"`
	Description    string           `json:"description,omitempty"`
	ExamplePayload string           `json:"example_payload,omitempty"`
	Models         []map[string]any `json:"models,omitempty"`
}

// HasTask reports whether the service declares the task.
func (m ServiceMeta) HasTask(task string) bool {
	for _, t := range m.Tasks {
		if t == task {
			return true
		}
	}
	return false
}

// Payload is the arbitrary JSON object a task receives
type Payload map[string]any

// Clone returns a shallow copy of the payload. A nil payload yields an empty map.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the string value of key, or def when missing or not a string.
func (p Payload) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Bool returns the bool value of key, or def when missing or not a bool.
func (p Payload) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Int returns the integer value of key. JSON numbers decode as float64, so both
// float64 and int are accepted; fractional values are truncated.
func (p Payload) Int(key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

// TaskResult is the envelope returned for a task run
type TaskResult struct {
	Service string `json:"plugin"`
	Task    string `json:"task"`
	Result  any    `json:"result"`
}

// PageText holds the text of a single PDF page
type PageText struct {
	PageNumber int    `json:"page"`
	Text       string `json:"text"`
	OCR        bool   `json:"ocr,omitempty"`
}

// Upload describes a stored PDF upload
type Upload struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	StoredAs  string    `json:"stored_as"`
	RelPath   string    `json:"rel_path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart          EventType = "start"
	EventPageProcessing EventType = "page_processing"
	EventPageText       EventType = "page_text"
	EventPageComplete   EventType = "page_complete"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	PageNumber int         `json:"page_number,omitempty"`
	TotalPages int         `json:"total_pages,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
