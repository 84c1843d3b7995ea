package server

import (
	"bytes"
	"net/http"
)

// recorder buffers a handler's response so the encrypted request pipeline
// can decide, once the handler has finished, whether to encrypt the body
// (2xx) or pass it through in the clear.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), status: http.StatusOK}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) Write(b []byte) (int, error) { return r.body.Write(b) }

func (r *recorder) WriteHeader(status int) { r.status = status }

func (r *recorder) success() bool { return r.status >= 200 && r.status < 300 }
