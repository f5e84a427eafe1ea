// Package diag holds the severity-classified diagnostics collected while a model is loaded.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Severity classifies a diagnostic message.
type Severity string

const (
	// Info is used for naming-convention notes and other non-blocking observations.
	Info Severity = "INFO"
	// Warning marks an ignored or incomplete resolution that is not a failure.
	Warning Severity = "WARNING"
	// Error marks a failed resolution or an aborted load.
	Error Severity = "ERROR"
)

var severityRank = map[Severity]int{
	Info:    0,
	Warning: 1,
	Error:   2,
}

// Rank orders severities from least (INFO) to most severe (ERROR).
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// ParseSeverity converts a string to a Severity (case-insensitive).
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return Info, nil
	case "WARN", "WARNING":
		return Warning, nil
	case "ERROR":
		return Error, nil
	default:
		return "", fmt.Errorf("unknown severity: %q", s)
	}
}

// Message is a single diagnostic.
type Message struct {
	Severity  Severity `json:"severity" yaml:"severity"`
	Text      string   `json:"text" yaml:"text"`
	Code      string   `json:"code,omitempty" yaml:"code,omitempty"`
	ElementID string   `json:"elementId,omitempty" yaml:"elementId,omitempty"`
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.Severity, m.Text)
}

// Classified is implemented by errors that know their own diagnostic severity and code.
type Classified interface {
	error
	MessageSeverity() Severity
	MessageCode() string
	// MessageText is the error text without the code, which Message carries separately.
	MessageText() string
}

// Messages is an ordered, append-only collection of diagnostics.
// A Messages value is owned by one load pass and is not safe for concurrent mutation.
type Messages struct {
	items []Message
}

// New creates an empty container.
func New() *Messages {
	return &Messages{}
}

// Add appends a message with the given severity.
func (m *Messages) Add(sev Severity, text string) {
	m.items = append(m.items, Message{Severity: sev, Text: text})
}

// Addf appends a formatted message.
func (m *Messages) Addf(sev Severity, format string, args ...interface{}) {
	m.Add(sev, fmt.Sprintf(format, args...))
}

// AddMessage appends a fully populated message.
func (m *Messages) AddMessage(msg Message) {
	m.items = append(m.items, msg)
}

// Info appends an INFO message.
func (m *Messages) Info(text string) { m.Add(Info, text) }

// Warning appends a WARNING message.
func (m *Messages) Warning(text string) { m.Add(Warning, text) }

// Error appends an ERROR message.
func (m *Messages) Error(text string) { m.Add(Error, text) }

// AddErr converts err into a message for the given element.
// Errors implementing Classified keep their severity and code; anything else becomes an ERROR.
func (m *Messages) AddErr(elementID string, err error) {
	if err == nil {
		return
	}
	msg := Message{Severity: Error, Text: err.Error(), ElementID: elementID}
	var c Classified
	if errors.As(err, &c) {
		msg.Severity = c.MessageSeverity()
		msg.Code = c.MessageCode()
		msg.Text = strings.Replace(msg.Text, c.Error(), c.MessageText(), 1)
	}
	m.items = append(m.items, msg)
}

// Merge appends all messages of other, preserving their order.
func (m *Messages) Merge(other *Messages) {
	if other == nil {
		return
	}
	m.items = append(m.items, other.items...)
}

// All returns a copy of every message in insertion order.
func (m *Messages) All() []Message {
	if m == nil {
		return nil
	}
	out := make([]Message, len(m.items))
	copy(out, m.items)
	return out
}

// Len returns the number of messages.
func (m *Messages) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// Count returns the number of messages with the given severity.
func (m *Messages) Count(sev Severity) int {
	if m == nil {
		return 0
	}
	n := 0
	for _, it := range m.items {
		if it.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors reports whether any ERROR message was recorded.
func (m *Messages) HasErrors() bool {
	return m.Count(Error) > 0
}

// BySeverity returns the messages with the given severity, in insertion order.
func (m *Messages) BySeverity(sev Severity) []Message {
	if m == nil {
		return nil
	}
	var out []Message
	for _, it := range m.items {
		if it.Severity == sev {
			out = append(out, it)
		}
	}
	return out
}

// AtLeast returns the messages whose severity is sev or worse.
func (m *Messages) AtLeast(sev Severity) []Message {
	if m == nil {
		return nil
	}
	var out []Message
	for _, it := range m.items {
		if it.Severity.Rank() >= sev.Rank() {
			out = append(out, it)
		}
	}
	return out
}

// Summary counts messages per severity.
type Summary struct {
	Errors   int `json:"errors" yaml:"errors"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Infos    int `json:"infos" yaml:"infos"`
}

// Summary returns per-severity counts.
func (m *Messages) Summary() Summary {
	return Summary{
		Errors:   m.Count(Error),
		Warnings: m.Count(Warning),
		Infos:    m.Count(Info),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("%d error(s), %d warning(s), %d info", s.Errors, s.Warnings, s.Infos)
}
