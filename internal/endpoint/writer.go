package endpoint

import (
	"errors"
	"io"
	"net/http"
)

var (
	streamChunkSize = 1024
)

// streamWriter pushes a long body to the client every streamChunkSize bytes.
// After the first write or flush failure every later Write fails with the same error,
// so renderers stop early when the client has gone.
type streamWriter struct {
	w  io.Writer
	rc *http.ResponseController

	pending int
	err     error
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	return &streamWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

func (s *streamWriter) Write(b []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}

	n, err := s.w.Write(b)
	if err != nil {
		s.err = err
		return n, err
	}

	s.pending += n
	if s.pending >= streamChunkSize {
		s.flush()
	}

	return n, s.err
}

func (s *streamWriter) flush() {
	s.pending = 0
	if s.rc == nil {
		return
	}

	err := s.rc.Flush()
	switch {
	case errors.Is(err, http.ErrNotSupported):
		s.rc = nil
	case err != nil:
		s.err = err
	}
}
