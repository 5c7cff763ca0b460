package api

import "fmt"

// TransportError reports a failed exchange with the remote service. The
// upstream status code and response detail are preserved verbatim so callers
// can inspect or render them; the underlying cause stays reachable via Unwrap.
type TransportError struct {
	Op         string
	StatusCode int    // zero when no response was received
	Detail     string // upstream response body or transport error text
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode >= 300:
		if e.Detail != "" {
			return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Detail)
		}
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": request failed"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
