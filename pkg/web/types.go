package web

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// Envelope wraps every business-level API response with ok=true; a failed
// run still rides in data with its status and structured error. The error
// field and ok=false belong to requests that never reached the pipeline,
// which are answered with RFC 7807 problem documents instead.
type Envelope struct {
	OK    bool  `json:"ok"`
	Data  any   `json:"data,omitempty"`
	Error any   `json:"error,omitempty"`
	Meta  *Meta `json:"meta,omitempty"`
}

type Meta struct {
	RequestID  string `json:"request_id"`
	DurationMs int64  `json:"duration_ms"`
}

// respond writes an envelope with request metadata. started comes from the
// per-request timer set in the handler.
func respond(c fiber.Ctx, status int, data any, started time.Time) error {
	return c.Status(status).JSON(Envelope{
		OK:   true,
		Data: data,
		Meta: &Meta{
			RequestID:  requestID(c),
			DurationMs: time.Since(started).Milliseconds(),
		},
	})
}

func requestID(c fiber.Ctx) string {
	if id := c.Get("X-Request-Id"); id != "" {
		return id
	}

	return uuid.New().String()
}
