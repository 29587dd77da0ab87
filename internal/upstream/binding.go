package upstream

import (
	"bytes"
	"io"
	"net/http"
)

// bindingTransport serves requests by invoking an http.Handler directly,
// skipping the network entirely. It lets the same Client drive either a
// remote API or a service mounted in the same process.
type bindingTransport struct {
	handler http.Handler
}

func (t bindingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	recorder := &responseRecorder{
		header: make(http.Header),
		status: http.StatusOK,
	}

	t.handler.ServeHTTP(recorder, req)

	return &http.Response{
		StatusCode:    recorder.status,
		Header:        recorder.header,
		Body:          io.NopCloser(bytes.NewReader(recorder.body.Bytes())),
		ContentLength: int64(recorder.body.Len()),
		Request:       req,
	}, nil
}

// responseRecorder is the minimal http.ResponseWriter needed to capture a
// handler's response without pulling httptest into production code.
type responseRecorder struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (r *responseRecorder) Header() http.Header {
	return r.header
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	return r.body.Write(p)
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
}
