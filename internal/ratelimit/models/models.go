package models

import "time"

// Class groups routes that share a limit.
type Class string

const (
	// ClassWrite covers every mutating registry call.
	ClassWrite Class = "write"
	ClassRead  Class = "read"
)

// Limit is a request allowance per sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one limiter check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is set on denial, in whole seconds.
	RetryAfter int
}

// Key scopes a counter to a caller and class.
func Key(class Class, identity string) string {
	return "rl:" + string(class) + ":" + identity
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
