// Package stream implements the newline-delimited JSON event protocol used
// by the streaming stage providers (research, draft, rewrite). A stream is
// zero or more informational events followed by exactly one terminal event:
// either a completion marker or an error.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"

	"github.com/contentline/contentline/pkg/models"
)

// EventType discriminates workflow events on the wire.
type EventType string

const (
	EventMeta      EventType = "meta"
	EventProgress  EventType = "progress"
	EventProvider  EventType = "provider"
	EventSource    EventType = "source"
	EventInsight   EventType = "insight"
	EventContent   EventType = "content"
	EventVariant   EventType = "variant"
	EventValidator EventType = "validator"
	EventWarning   EventType = "warning"
	EventError     EventType = "error"
)

// Event is the discriminated union carried on the stream. Only the fields
// matching the Type discriminator are populated.
type Event struct {
	Type EventType `json:"type"`

	// meta
	RequestID string `json:"request_id,omitempty"`

	// meta, provider
	Provider string `json:"provider,omitempty"`

	// progress
	Progress int `json:"progress,omitempty"`

	// progress, warning, error
	Message string `json:"message,omitempty"`

	// source
	Source *models.Source `json:"source,omitempty"`

	// insight
	Insight *models.Insight `json:"insight,omitempty"`

	// content
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`

	// variant
	Platform string                  `json:"platform,omitempty"`
	Variant  *models.PlatformVariant `json:"variant,omitempty"`

	// validator
	Validation *models.ValidationResult `json:"validation,omitempty"`

	// error
	Code string `json:"code,omitempty"`
}

// Err converts a terminal error event into a stage error.
func (e *Event) Err() error {
	if e.Type != EventError {
		return nil
	}

	code := models.ErrorCode(e.Code)
	if code == "" {
		code = models.CodeUnknownError
	}

	return models.NewStageError(code, e.Message)
}

// maxLineSize bounds a single event line. Draft content events can carry
// whole paragraphs, so this is generous.
const maxLineSize = 1 << 20

// Decoder reads events off a line-delimited JSON stream. Blank lines and
// undecodable fragments (a partial trailing line from a cut connection) are
// skipped rather than failing the whole stream.
type Decoder struct {
	scanner *bufio.Scanner
	dropped int
}

// NewDecoder wraps a raw response body.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &Decoder{scanner: scanner}
}

// Next returns the next event, or io.EOF when the stream is exhausted.
func (d *Decoder) Next() (*Event, error) {
	for d.scanner.Scan() {
		line := d.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil || event.Type == "" {
			d.dropped++

			continue
		}

		return &event, nil
	}

	if err := d.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

// Dropped reports how many undecodable lines were skipped.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// ErrNoTerminalEvent indicates a stream ended without a completion marker or
// an error event.
var ErrNoTerminalEvent = errors.New("event stream ended without a terminal event")

// Encoder writes events as one JSON object per line. Used by provider test
// doubles and the CLI's verbose mode.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(event *Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}

	raw = append(raw, '\n')
	_, err = e.w.Write(raw)

	return err
}
