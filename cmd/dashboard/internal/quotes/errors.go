package quotes

import (
	"errors"
	"fmt"
)

var (
	ErrNoSymbols         = errors.New("quotes: no symbols requested")
	ErrTransport         = errors.New("quotes: transport error")
	ErrUpstream          = errors.New("quotes: upstream error")
	ErrMalformedResponse = errors.New("quotes: malformed response")
)

// UpstreamError reports a non-success HTTP status from the quote API.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("quotes: %s returned status %d", e.Endpoint, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }
