package protocol

import (
	"encoding/json"
	"fmt"
)

// Error is a failure reported by the bulb itself, carried verbatim from the
// error envelope of a command reply.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("device error %d: %s", e.Code, e.Message)
}

// Notification is an unsolicited device-initiated message, typically a
// "props" update listing the property values that changed.
type Notification struct {
	Method string
	Params map[string]any
}

// Envelope is one decoded line from the command connection. Exactly one of
// the three shapes applies:
//
//   - success reply: id set, Result non-nil
//   - error reply: id set, Err non-nil
//   - notification: no id, Method set
//
// The correlation id distinguishes replies from notifications, so a reply id
// of 0 is never issued by the sending side.
type Envelope struct {
	ID     *uint32        `json:"id"`
	Result []any          `json:"result"`
	Err    *Error         `json:"error"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// Decode parses a single wire line into an Envelope.
func Decode(line []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("malformed response line: %w", err)
	}
	if env.ID == nil && env.Method == "" {
		return nil, fmt.Errorf("malformed response line: neither reply nor notification: %q", line)
	}
	return &env, nil
}

// IsNotification reports whether the envelope is an unsolicited notification
// rather than a command reply.
func (e *Envelope) IsNotification() bool {
	return e.ID == nil
}

// Notification returns the envelope's notification form.
// Only meaningful when IsNotification is true.
func (e *Envelope) Notification() *Notification {
	return &Notification{Method: e.Method, Params: e.Params}
}
