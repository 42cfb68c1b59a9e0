// Package testserver provides an in-process HTTP server that behaves
// like a small file store, for exercising transfers end to end.
//
//	GET  /files/{name}    serves a stored file, honouring Range
//	PUT  /files/{name}    stores the body, appending under Content-Range
//	POST /echo            answers with the request body
//	GET  /status/{code}   answers with code and a short body
//	GET  /slow            waits for ?delay= before answering
package testserver

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Record describes one request the server received.
type Record struct {
	Method        string
	Path          string
	Header        http.Header
	ContentLength int64
	Body          []byte
}

// Server is a running test server.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	files   map[string][]byte
	records []Record
}

// New starts a Server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{files: make(map[string][]byte)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /files/{name}", s.getFile)
	mux.HandleFunc("PUT /files/{name}", s.putFile)
	mux.HandleFunc("POST /echo", s.echo)
	mux.HandleFunc("GET /status/{code}", s.status)
	mux.HandleFunc("GET /slow", s.slow)

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)

	return s
}

// URL joins path onto the server's base URL.
func (s *Server) URL(path string) string {
	return s.Server.URL + path
}

// Put stores data under name.
func (s *Server) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = bytes.Clone(data)
}

// File returns a copy of the data stored under name.
func (s *Server) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[name]
	return bytes.Clone(b), ok
}

// Records returns every request received so far.
func (s *Server) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "reading body: "+err.Error(), http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.records = append(s.records, Record{
			Method:        r.Method,
			Path:          r.URL.Path,
			Header:        r.Header.Clone(),
			ContentLength: r.ContentLength,
			Body:          body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	data, ok := s.File(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
}

func (s *Server) putFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	body, _ := io.ReadAll(r.Body)

	cr := r.Header.Get("Content-Range")
	if cr == "" {
		s.Put(name, body)
		w.WriteHeader(http.StatusCreated)
		return
	}

	start, total, err := parseContentRange(cr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.files[name]
	switch {
	case start < 0:
		// "bytes */N": nothing left to send.
	case start != int64(len(existing)):
		http.Error(w, fmt.Sprintf("range starts at %d, have %d bytes", start, len(existing)), http.StatusRequestedRangeNotSatisfiable)
		return
	default:
		s.files[name] = append(existing, body...)
	}

	if int64(len(s.files[name])) > total {
		http.Error(w, "upload exceeds announced size", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// parseContentRange reads "bytes K-E/N" or "bytes */N". start is -1 for
// the latter.
func parseContentRange(v string) (start, total int64, err error) {
	spec, ok := strings.CutPrefix(v, "bytes ")
	if !ok {
		return 0, 0, fmt.Errorf("content range %q: missing unit", v)
	}

	rng, size, ok := strings.Cut(spec, "/")
	if !ok {
		return 0, 0, fmt.Errorf("content range %q: missing size", v)
	}
	if total, err = strconv.ParseInt(size, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("content range %q: %w", v, err)
	}

	if rng == "*" {
		return -1, total, nil
	}

	first, _, ok := strings.Cut(rng, "-")
	if !ok {
		return 0, 0, fmt.Errorf("content range %q: malformed range", v)
	}
	if start, err = strconv.ParseInt(first, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("content range %q: %w", v, err)
	}

	return start, total, nil
}

func (s *Server) echo(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	if ct := r.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("X-Body-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, "status %d", code)
}

func (s *Server) slow(w http.ResponseWriter, r *http.Request) {
	delay, err := time.ParseDuration(r.URL.Query().Get("delay"))
	if err != nil {
		delay = time.Second
	}

	select {
	case <-r.Context().Done():
	case <-time.After(delay):
		_, _ = w.Write([]byte("finally"))
	}
}
