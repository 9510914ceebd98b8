package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// sseStream writes server-sent events over an echo response.
type sseStream struct {
	c       echo.Context
	flusher http.Flusher
}

func newSSEStream(c echo.Context) (*sseStream, error) {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	return &sseStream{c: c, flusher: flusher}, nil
}

// send marshals v and emits it as one SSE data event.
func (s *sseStream) send(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.c.Response(), "data: %s\n\n", b); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
