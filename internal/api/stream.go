package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const streamChunkSize = 4 << 10

// Stream is a lazy, single-pass sequence of generated text chunks. It is not
// restartable: once Next returns io.EOF or an error the stream is finished.
type Stream struct {
	body      io.ReadCloser
	cancel    context.CancelFunc
	sessionID string
	buf       []byte
	err       error
}

// QueryStream starts a streaming generation request. Chunks arrive in
// generation order via Next; the caller must Close the stream, which aborts
// the underlying transport if generation is still in flight.
func (c *Client) QueryStream(ctx context.Context, req QueryRequest) (*Stream, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: opQueryStream, Detail: "invalid request", Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/llm/query/stream", nil, bytes.NewReader(raw))
	if err != nil {
		cancel()
		return nil, &TransportError{Op: opQueryStream, Detail: "invalid request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, &TransportError{Op: opQueryStream, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readDetail(resp.Body)
		_ = resp.Body.Close()
		cancel()
		return nil, &TransportError{Op: opQueryStream, StatusCode: resp.StatusCode, Detail: detail}
	}

	return &Stream{
		body:      resp.Body,
		cancel:    cancel,
		sessionID: resp.Header.Get("X-Session-ID"),
		buf:       make([]byte, streamChunkSize),
	}, nil
}

// SessionID returns the correlation id assigned by the service, if any.
func (s *Stream) SessionID() string { return s.sessionID }

// Next blocks until the next chunk of generated text arrives. It returns
// io.EOF once the remote side finishes the response.
func (s *Stream) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	for {
		n, err := s.body.Read(s.buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.err = io.EOF
			} else {
				s.err = &TransportError{Op: opQueryStream, Detail: "stream interrupted", Err: err}
			}
		}
		if n > 0 {
			// Deliver the chunk now; a pending error surfaces on the next call.
			return string(s.buf[:n]), nil
		}
		if s.err != nil {
			return "", s.err
		}
	}
}

// Close aborts the transport and releases the response body. Reads after
// Close report io.EOF. Safe to call more than once.
func (s *Stream) Close() error {
	s.cancel()
	if s.err == nil {
		s.err = io.EOF
	}
	return s.body.Close()
}
