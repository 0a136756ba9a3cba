package models

// Source identifies the transport a request arrived on.
type Source string

const (
	SourceHTTP Source = "http"
	SourceNATS Source = "nats"
	SourceCLI  Source = "cli"
)

// FibRequest is the transport-neutral request handed to the core runner.
// When N is set it is used as the index directly; otherwise Path is parsed.
type FibRequest struct {
	Path   string  `json:"path"`
	N      *uint64 `json:"n,omitempty"`
	Source Source  `json:"-"`
}

// FibResult is the response body: the clamped index, the exact term as a
// decimal string and the moment it was computed (RFC 3339, UTC).
type FibResult struct {
	N         uint64 `json:"n"`
	Fibonacci string `json:"fibonacci"`
	Timestamp string `json:"timestamp"`
}

// ResultEvent is published after each computation for observers.
type ResultEvent struct {
	N              uint64 `json:"n"`
	Requested      uint64 `json:"requested"`
	Digits         int    `json:"digits"`
	DurationMicros int64  `json:"durationMicros"`
	Source         Source `json:"source"`
}

// ErrorResponse is the body sent when a request could not be served.
type ErrorResponse struct {
	Error string `json:"error"`
}
