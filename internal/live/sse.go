package live

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// SSETransport subscribes to a text/event-stream endpoint.
type SSETransport struct {
	// Client must not set a Timeout; streams stay open indefinitely.
	Client *http.Client
}

// Open issues the GET and checks the response is an event stream. The
// stream lives as long as ctx.
func (t SSETransport) Open(ctx context.Context, endpoint string) (Stream, error) {
	hc := t.Client
	if hc == nil {
		hc = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build event stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("open event stream: unexpected status %d", resp.StatusCode)
	}
	return &sseStream{body: resp.Body, r: bufio.NewReader(resp.Body)}, nil
}

type sseStream struct {
	body io.ReadCloser
	r    *bufio.Reader
}

// Recv returns the data of the next dispatched event. Comment lines (":")
// and fields other than data are skipped; multiple data lines are joined
// with newlines.
func (s *sseStream) Recv(context.Context) ([]byte, error) {
	var data [][]byte
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			// An event cut off before its blank line is never dispatched.
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) == 0:
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			continue
		case line[0] == ':':
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		if string(field) == "data" {
			value = bytes.TrimPrefix(value, []byte(" "))
			data = append(data, append([]byte(nil), value...))
		}
	}
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
