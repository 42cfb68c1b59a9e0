package client_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/httpxfer/actor"
	"github.com/adamwoolhether/httpxfer/client"
	"github.com/adamwoolhether/httpxfer/collector"
	"github.com/adamwoolhether/httpxfer/internal/testserver"
	"github.com/adamwoolhether/httpxfer/pipe"
)

var discard = slog.New(slog.DiscardHandler)

// content returns n bytes of a repeating, position-dependent pattern.
func content(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

// prepare runs the New and Request phases, failing t on error.
func prepare(t *testing.T, c *collector.Collector, req client.Request, opts ...client.Option) *client.Prepared {
	t.Helper()

	cl, err := client.New(c, append([]client.Option{client.WithLogger(discard)}, opts...)...)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	p, err := cl.Request(req)
	if err != nil {
		t.Fatalf("attaching request: %v", err)
	}

	return p
}

func get(t *testing.T, url string) client.Request {
	t.Helper()

	req, err := client.NewRequest(http.MethodGet, url)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	return req
}

func TestClient_MemoryRoundTrip(t *testing.T) {
	srv := testserver.New(t)

	tests := []struct {
		name string
		body []byte
	}{
		{"empty", []byte{}},
		{"small", []byte("hello memory")},
		{"large", content(3*16<<10 + 123)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv.Put(tt.name, tt.body)

			p := prepare(t, collector.Memory(), get(t, srv.URL("/files/"+tt.name)))
			resp, err := p.Blocking().Perform(t.Context())
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			if resp.Status.Code() != http.StatusOK {
				t.Errorf("exp status %d, got %v", http.StatusOK, resp.Status)
			}
			if resp.Body == nil {
				t.Fatal("expected non-nil body")
			}
			if !bytes.Equal(resp.Body, tt.body) {
				t.Errorf("body mismatch; got %d bytes, want %d", len(resp.Body), len(tt.body))
			}
			if got, exp := resp.Header.Get("Content-Length"), fmt.Sprint(len(tt.body)); got != exp {
				t.Errorf("exp synthesized content length %s, got %q", exp, got)
			}
			if got := resp.Header.Get("Content-Type"); got != "application/octet-stream" {
				t.Errorf("exp synthesized content type, got %q", got)
			}
			if resp.Aborted {
				t.Error("expected transfer not to be aborted")
			}
		})
	}
}

func TestClient_MemoryWithHeaders(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("h", []byte("with headers"))

	p := prepare(t, collector.MemoryWithHeaders(), get(t, srv.URL("/files/h")))
	resp, err := p.Blocking().Perform(t.Context())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("exp captured Accept-Ranges, got %q", got)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("exp captured Content-Type, got %q", got)
	}
	if string(resp.Body) != "with headers" {
		t.Errorf("exp body %q, got %q", "with headers", resp.Body)
	}
}

func TestClient_ResumeDownload(t *testing.T) {
	srv := testserver.New(t)
	full := content(40000)
	srv.Put("big.bin", full)

	sum := sha256.Sum256(full)
	expSum := hex.EncodeToString(sum[:])

	for _, k := range []int{0, 1, 16 << 10, len(full) - 1, len(full)} {
		t.Run(fmt.Sprint(k), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "big.bin")
			if err := os.WriteFile(path, full[:k], 0o644); err != nil {
				t.Fatalf("seeding partial file: %v", err)
			}

			fc, err := collector.File(collector.NewFileInfo(path))
			if err != nil {
				t.Fatalf("creating collector: %v", err)
			}

			p := prepare(t, fc, get(t, srv.URL("/files/big.bin")),
				client.WithResumeFrom(client.BytesOffset(k)),
				client.WithChecksum(sha256.New(), expSum),
			)
			resp, err := p.Blocking().Perform(t.Context())
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if resp.Body != nil {
				t.Errorf("expected nil body for file collector, got %d bytes", len(resp.Body))
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading file: %v", err)
			}
			if !bytes.Equal(got, full) {
				t.Errorf("resumed file mismatch; got %d bytes, want %d", len(got), len(full))
			}
			if n := fc.FileInfo().BytesTransferred(); n != uint64(len(full)-k) {
				t.Errorf("exp %d bytes transferred, got %d", len(full)-k, n)
			}
		})
	}
}

func TestClient_ResumeUpload(t *testing.T) {
	srv := testserver.New(t)
	full := content(40000)

	src := filepath.Join(t.TempDir(), "src.bin")
	if err := os.WriteFile(src, full, 0o644); err != nil {
		t.Fatalf("writing source: %v", err)
	}

	for _, k := range []int{0, 1, 16 << 10, len(full) - 1, len(full)} {
		t.Run(fmt.Sprint(k), func(t *testing.T) {
			name := fmt.Sprintf("up-%d.bin", k)
			if k > 0 {
				srv.Put(name, full[:k])
			}

			fc, err := collector.File(collector.NewFileInfo(src))
			if err != nil {
				t.Fatalf("creating collector: %v", err)
			}

			req, err := client.NewRequest(http.MethodPut, srv.URL("/files/"+name))
			if err != nil {
				t.Fatalf("building request: %v", err)
			}

			p := prepare(t, fc, req,
				client.WithUploadFileSize(client.FileSize(len(full))),
				client.WithResumeFrom(client.BytesOffset(k)),
			)
			resp, err := p.Blocking().Perform(t.Context())
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if !resp.Status.IsSuccess() {
				t.Fatalf("exp success status, got %v", resp.Status)
			}

			got, _ := srv.File(name)
			if !bytes.Equal(got, full) {
				t.Errorf("uploaded file mismatch; got %d bytes, want %d", len(got), len(full))
			}
		})
	}
}

func TestClient_AbortDuringRateLimitedDownload(t *testing.T) {
	srv := testserver.New(t)
	full := content(64 << 10)
	srv.Put("slow.bin", full)

	path := filepath.Join(t.TempDir(), "slow.bin")
	sig := collector.NewAbortSignal()
	fc, err := collector.File(collector.NewFileInfo(path).WithAbort(sig))
	if err != nil {
		t.Fatalf("creating collector: %v", err)
	}

	p := prepare(t, fc, get(t, srv.URL("/files/slow.bin")),
		client.WithDownloadSpeed(16<<10),
		client.WithBufferSize(4<<10),
	)

	go func() {
		time.Sleep(300 * time.Millisecond)
		sig.Abort()
	}()

	resp, err := p.Blocking().Perform(t.Context())
	if err != nil {
		t.Fatalf("expected abort not to be an error, got: %v", err)
	}
	if !resp.Aborted {
		t.Error("expected response to be marked aborted")
	}
	if resp.Status.Code() != http.StatusOK {
		t.Errorf("exp status %d, got %v", http.StatusOK, resp.Status)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat partial file: %v", err)
	}
	if info.Size() >= int64(len(full)) {
		t.Errorf("expected partial file, got %d of %d bytes", info.Size(), len(full))
	}
}

func TestClient_ConcurrentThroughActor(t *testing.T) {
	srv := testserver.New(t)

	a, err := actor.New(actor.WithWorkers(3), actor.WithLogger(discard))
	if err != nil {
		t.Fatalf("creating actor: %v", err)
	}

	const k = 8
	for i := range k {
		srv.Put(fmt.Sprint(i), bytes.Repeat([]byte{byte('a' + i)}, 20000+i))
	}

	var wg sync.WaitGroup
	bodies := make([][]byte, k)
	errs := make([]error, k)
	for i := range k {
		p := prepare(t, collector.Memory(), get(t, srv.URL(fmt.Sprintf("/files/%d", i))))
		wg.Go(func() {
			resp, err := p.Nonblocking(a).Perform(t.Context())
			if err != nil {
				errs[i] = err
				return
			}
			bodies[i] = resp.Body
		})
	}
	wg.Wait()

	for i := range k {
		if errs[i] != nil {
			t.Errorf("transfer %d: %v", i, errs[i])
			continue
		}
		exp := bytes.Repeat([]byte{byte('a' + i)}, 20000+i)
		if !bytes.Equal(bodies[i], exp) {
			t.Errorf("transfer %d: body mismatch; got %d bytes, want %d", i, len(bodies[i]), len(exp))
		}
	}

	if err := a.Wait(); err != nil {
		t.Errorf("expected actor to finish cleanly, got %v", err)
	}
}

func TestClient_AbortedThroughActorIsNotAnError(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("a.bin", content(20000))

	a, err := actor.New(actor.WithWorkers(2), actor.WithLogger(discard))
	if err != nil {
		t.Fatalf("creating actor: %v", err)
	}

	for range 3 {
		sig := collector.NewAbortSignal()
		sig.Abort()

		p := prepare(t, collector.Memory(collector.WithAbort(sig)), get(t, srv.URL("/files/a.bin")))
		resp, err := p.Nonblocking(a).Perform(t.Context())
		if err != nil {
			t.Fatalf("expected abort not to be an error, got: %v", err)
		}
		if !resp.Aborted {
			t.Error("expected response to be marked aborted")
		}
	}

	if err := a.Wait(); err != nil {
		t.Errorf("expected actor to report no failures, got %v", err)
	}
}

func TestClient_AbortDuringRateLimitedUpload(t *testing.T) {
	srv := testserver.New(t)
	full := content(64 << 10)

	src := filepath.Join(t.TempDir(), "up.bin")
	if err := os.WriteFile(src, full, 0o644); err != nil {
		t.Fatalf("writing source: %v", err)
	}

	sig := collector.NewAbortSignal()
	info := collector.NewFileInfo(src).WithAbort(sig)
	fc, err := collector.File(info)
	if err != nil {
		t.Fatalf("creating collector: %v", err)
	}

	req, err := client.NewRequest(http.MethodPut, srv.URL("/files/up.bin"))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}

	p := prepare(t, fc, req,
		client.WithUploadFileSize(client.FileSize(len(full))),
		client.WithUploadSpeed(16<<10),
		client.WithBufferSize(4<<10),
	)

	go func() {
		time.Sleep(300 * time.Millisecond)
		sig.Abort()
	}()

	resp, err := p.Blocking().Perform(t.Context())
	if err != nil {
		t.Fatalf("expected abort not to be an error, got: %v", err)
	}
	if !resp.Aborted {
		t.Error("expected response to be marked aborted")
	}
	if resp.Status.Code() != 0 {
		t.Errorf("exp no status before the server answered, got %v", resp.Status)
	}
	if n := info.BytesTransferred(); n == 0 || n >= uint64(len(full)) {
		t.Errorf("expected a partial read of the source, got %d of %d bytes", n, len(full))
	}

	if got, _ := srv.File("up.bin"); len(got) >= len(full) {
		t.Errorf("expected server to hold a truncated upload, got %d of %d bytes", len(got), len(full))
	}
}

func TestClient_PostBodies(t *testing.T) {
	tests := []struct {
		name string
		opts []client.RequestOption
		exp  []byte
	}{
		{"absent", nil, []byte{}},
		{"empty", []client.RequestOption{client.WithBody([]byte{})}, []byte{}},
		{"raw", []client.RequestOption{client.WithBody([]byte("raw bytes"))}, []byte("raw bytes")},
		{"json", []client.RequestOption{client.WithPayload(map[string]string{"k": "v"})}, []byte(`{"k":"v"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testserver.New(t)

			req, err := client.NewRequest(http.MethodPost, srv.URL("/echo"), tt.opts...)
			if err != nil {
				t.Fatalf("building request: %v", err)
			}

			resp, err := prepare(t, collector.MemoryWithHeaders(), req).Blocking().Perform(t.Context())
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			if !bytes.Equal(resp.Body, tt.exp) {
				t.Errorf("exp echoed %q, got %q", tt.exp, resp.Body)
			}

			recs := srv.Records()
			if len(recs) != 1 {
				t.Fatalf("exp 1 request, got %d", len(recs))
			}
			if got := recs[0].ContentLength; got != int64(len(tt.exp)) {
				t.Errorf("exp content length %d, got %d", len(tt.exp), got)
			}
			if len(recs[0].Body) != len(tt.exp) {
				t.Errorf("exp %d body bytes sent, got %d", len(tt.exp), len(recs[0].Body))
			}
		})
	}
}

func TestClient_StreamingClosedPipe(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("s", content(50000))

	chunks := pipe.New[[]byte](1)
	chunks.Close()

	sc, err := collector.Streaming(&collector.StreamHandler{Chunks: chunks}, collector.WithLogger(discard))
	if err != nil {
		t.Fatalf("creating collector: %v", err)
	}

	resp, err := prepare(t, sc, get(t, srv.URL("/files/s"))).Blocking().Perform(t.Context())
	if err != nil {
		t.Fatalf("expected closed stream to be tolerated, got: %v", err)
	}
	if resp.Body != nil {
		t.Errorf("expected nil body, got %d bytes", len(resp.Body))
	}
}

func TestClient_StreamingDelivers(t *testing.T) {
	srv := testserver.New(t)
	full := content(50000)
	srv.Put("s", full)

	chunks := pipe.New[[]byte](4)
	sc, err := collector.Streaming(&collector.StreamHandler{Chunks: chunks}, collector.WithLogger(discard))
	if err != nil {
		t.Fatalf("creating collector: %v", err)
	}

	var got []byte
	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range chunks.C() {
			got = append(got, chunk...)
		}
	}()

	if _, err := prepare(t, sc, get(t, srv.URL("/files/s"))).Blocking().Perform(t.Context()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	chunks.Close()
	<-done

	if !bytes.Equal(got, full) {
		t.Errorf("streamed body mismatch; got %d bytes, want %d", len(got), len(full))
	}
}

func TestClient_StreamingFullPipe(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("s", content(50000))

	chunks := pipe.New[[]byte](1)
	sc, err := collector.Streaming(&collector.StreamHandler{Chunks: chunks, SendTimeout: time.Millisecond}, collector.WithLogger(discard))
	if err != nil {
		t.Fatalf("creating collector: %v", err)
	}

	_, err = prepare(t, sc, get(t, srv.URL("/files/s"))).Blocking().Perform(t.Context())
	if !errors.Is(err, client.ErrIO) {
		t.Fatalf("expected %v, got %v", client.ErrIO, err)
	}
	if !errors.Is(err, pipe.ErrFull) {
		t.Errorf("expected %v in chain, got %v", pipe.ErrFull, err)
	}
}

func TestClient_FileWriteFailureIsIO(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("f", []byte("nowhere to go"))

	fc, err := collector.File(collector.NewFileInfo(filepath.Join(t.TempDir(), "missing", "f")))
	if err != nil {
		t.Fatalf("creating collector: %v", err)
	}

	_, err = prepare(t, fc, get(t, srv.URL("/files/f"))).Blocking().Perform(t.Context())
	if !errors.Is(err, client.ErrIO) {
		t.Errorf("expected %v, got %v", client.ErrIO, err)
	}

	var cerr *client.Error
	if !errors.As(err, &cerr) || cerr.Op != "perform" {
		t.Errorf("expected *client.Error from perform, got %T: %v", err, err)
	}
}

func TestClient_EngineErrors(t *testing.T) {
	srv := testserver.New(t)

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := prepare(t, collector.Memory(), get(t, srv.URL("/slow"))).Blocking().Perform(ctx)
		if !errors.Is(err, client.ErrEngine) || !errors.Is(err, context.Canceled) {
			t.Errorf("expected engine error wrapping %v, got %v", context.Canceled, err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		p := prepare(t, collector.Memory(), get(t, srv.URL("/slow?delay=2s")), client.WithTimeout(50*time.Millisecond))
		if _, err := p.Blocking().Perform(t.Context()); !errors.Is(err, client.ErrEngine) {
			t.Errorf("expected %v, got %v", client.ErrEngine, err)
		}
	})

	t.Run("not found is a response", func(t *testing.T) {
		resp, err := prepare(t, collector.Memory(), get(t, srv.URL("/files/missing"))).Blocking().Perform(t.Context())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if resp.Status.Code() != http.StatusNotFound {
			t.Errorf("exp status %d, got %v", http.StatusNotFound, resp.Status)
		}
	})
}

func TestClient_FailOnError(t *testing.T) {
	srv := testserver.New(t)

	tests := []struct {
		code    int
		expAuth bool
	}{
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			c := collector.Memory()
			p := prepare(t, c, get(t, srv.URL(fmt.Sprintf("/status/%d", tt.code))), client.WithFailOnError())

			_, err := p.Blocking().Perform(t.Context())

			var se *client.UnexpectedStatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected *UnexpectedStatusError, got %T: %v", err, err)
			}
			if se.StatusCode != tt.code {
				t.Errorf("exp status %d, got %d", tt.code, se.StatusCode)
			}
			if se.Body != fmt.Sprintf("status %d", tt.code) {
				t.Errorf("exp error body, got %q", se.Body)
			}
			if !errors.Is(err, client.ErrUnexpectedStatusCode) {
				t.Errorf("expected %v in chain", client.ErrUnexpectedStatusCode)
			}
			if got := errors.Is(err, client.ErrAuthFailure); got != tt.expAuth {
				t.Errorf("exp auth failure %t, got %t", tt.expAuth, got)
			}
			if len(c.Body()) != 0 {
				t.Errorf("expected no body collected, got %q", c.Body())
			}
		})
	}
}

func TestClient_ChecksumMismatch(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("c", []byte("checksum test data"))

	p := prepare(t, collector.Memory(), get(t, srv.URL("/files/c")),
		client.WithChecksum(sha256.New(), "deadbeef"),
	)
	if _, err := p.Blocking().Perform(t.Context()); !errors.Is(err, client.ErrChecksumMismatch) {
		t.Errorf("expected %v, got %v", client.ErrChecksumMismatch, err)
	}
}

func TestClient_Phases(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("p", []byte("phases"))

	cl, err := client.New(collector.Memory(), client.WithLogger(discard))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	p, err := cl.Request(get(t, srv.URL("/files/p")))
	if err != nil {
		t.Fatalf("attaching request: %v", err)
	}

	if _, err := cl.Request(get(t, srv.URL("/files/p"))); !errors.Is(err, client.ErrPhase) {
		t.Errorf("second Request: expected %v, got %v", client.ErrPhase, err)
	}

	if err := p.Configure(client.WithDownloadSpeed(1 << 20)); err != nil {
		t.Errorf("expected Configure before execution to work, got %v", err)
	}

	perf := p.Blocking()

	if err := p.Configure(client.WithProgress()); !errors.Is(err, client.ErrPhase) {
		t.Errorf("late Configure: expected %v, got %v", client.ErrPhase, err)
	}
	if _, err := p.Blocking().Perform(t.Context()); !errors.Is(err, client.ErrPhase) {
		t.Errorf("second Blocking: expected %v, got %v", client.ErrPhase, err)
	}

	if _, err := perf.Perform(t.Context()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if _, err := perf.Perform(t.Context()); !errors.Is(err, client.ErrPhase) {
		t.Errorf("second Perform: expected %v, got %v", client.ErrPhase, err)
	}
}

func TestClient_NonblockingNilActor(t *testing.T) {
	p := prepare(t, collector.Memory(), get(t, "http://example.invalid/x"))
	if _, err := p.Nonblocking(nil).Perform(t.Context()); !errors.Is(err, client.ErrConfig) {
		t.Errorf("expected %v, got %v", client.ErrConfig, err)
	}
}

func TestClient_RequestValidation(t *testing.T) {
	tests := []struct {
		name string
		req  client.Request
		exp  error
	}{
		{"missing url", client.Request{Method: http.MethodGet}, client.ErrConfig},
		{"relative url", client.Request{URL: "/files/x", Method: http.MethodGet}, client.ErrConfig},
		{"ftp url", client.Request{URL: "ftp://example.com/x", Method: http.MethodGet}, client.ErrConfig},
		{"missing method", client.Request{URL: "http://example.com"}, client.ErrConfig},
		{"empty header name", client.Request{URL: "http://example.com", Method: http.MethodGet, Header: []client.HeaderField{{Value: "v"}}}, client.ErrConfig},
		{"bad header value", client.Request{URL: "http://example.com", Method: http.MethodGet, Header: []client.HeaderField{{Name: "X-Bad", Value: "a\nb"}}}, client.ErrConfig},
		{"get with body", client.Request{URL: "http://example.com", Method: http.MethodGet, Body: []byte("x")}, client.ErrConfig},
		{"delete", client.Request{URL: "http://example.com", Method: http.MethodDelete}, client.ErrUnimplemented},
		{"patch", client.Request{URL: "http://example.com", Method: http.MethodPatch}, client.ErrUnimplemented},
		{"post", client.Request{URL: "http://example.com", Method: http.MethodPost}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, err := client.New(collector.Memory())
			if err != nil {
				t.Fatalf("creating client: %v", err)
			}

			_, err = cl.Request(tt.req)
			if tt.exp == nil {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.exp) {
				t.Errorf("expected %v, got %v", tt.exp, err)
			}
		})
	}
}

func TestClient_FieldErrors(t *testing.T) {
	cl, err := client.New(collector.Memory())
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	_, err = cl.Request(client.Request{})

	var fields client.FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected FieldErrors, got %T: %v", err, err)
	}

	exp := client.FieldErrors{
		{Field: "url", Err: "This field is required"},
		{Field: "method", Err: "This field is required"},
	}
	if diff := cmp.Diff(exp, fields); diff != "" {
		t.Errorf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_FieldErrors_HeaderPath(t *testing.T) {
	cl, err := client.New(collector.Memory())
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	_, err = cl.Request(client.Request{
		URL:    "http://example.com/",
		Method: http.MethodGet,
		Header: []client.HeaderField{{Name: "Accept", Value: "*/*"}, {Value: "orphan"}},
	})

	var fields client.FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected FieldErrors, got %T: %v", err, err)
	}

	exp := client.FieldErrors{{Field: "header[1].name", Err: "This field is required"}}
	if diff := cmp.Diff(exp, fields); diff != "" {
		t.Errorf("field errors mismatch (-want +got):\n%s", diff)
	}
	if got := fields.Error(); got != "header[1].name: This field is required" {
		t.Errorf("exp joined message, got %q", got)
	}
}

func TestClient_OptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  client.Option
	}{
		{"negative timeout", client.WithTimeout(-time.Second)},
		{"nil transport", client.WithTransport(nil)},
		{"zero throttle", client.WithThrottle(0, 1)},
		{"zero buffer", client.WithBufferSize(0)},
		{"nil hash", client.WithChecksum(nil, "abc")},
		{"empty checksum", client.WithChecksum(sha256.New(), "")},
		{"nil logger", client.WithLogger(nil)},
		{"nil tracer", client.WithTracer(nil)},
		{"huge offset", client.WithResumeFrom(1 << 63)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.New(collector.Memory(), tt.opt); !errors.Is(err, client.ErrConfig) {
				t.Errorf("expected %v, got %v", client.ErrConfig, err)
			}
		})
	}

	if _, err := client.New(nil); !errors.Is(err, client.ErrConfig) {
		t.Errorf("nil collector: expected %v, got %v", client.ErrConfig, err)
	}
}

func TestNewStatus(t *testing.T) {
	tests := []struct {
		code  int
		valid bool
	}{
		{99, false},
		{100, true},
		{200, true},
		{599, true},
		{600, false},
		{0, false},
	}

	for _, tt := range tests {
		s, err := client.NewStatus(tt.code)
		switch {
		case tt.valid && err != nil:
			t.Errorf("%d: expected no error, got %v", tt.code, err)
		case tt.valid && s.Code() != tt.code:
			t.Errorf("%d: exp code back, got %d", tt.code, s.Code())
		case !tt.valid && !errors.Is(err, client.ErrProtocol):
			t.Errorf("%d: expected %v, got %v", tt.code, client.ErrProtocol, err)
		}
	}

	if got := client.Status(404).String(); got != "404 Not Found" {
		t.Errorf("exp %q, got %q", "404 Not Found", got)
	}
}

func TestClient_Transport(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("t", []byte("through custom transport"))

	var called bool
	custom := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return http.DefaultTransport.RoundTrip(r)
	})

	p := prepare(t, collector.Memory(), get(t, srv.URL("/files/t")),
		client.WithTransport(custom),
		client.WithThrottle(100, 10),
		client.WithUserAgent("httpxfer-test/1.0"),
	)
	if _, err := p.Blocking().Perform(t.Context()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !called {
		t.Error("custom transport was not called")
	}
	if got := srv.Records()[0].Header.Get("User-Agent"); got != "httpxfer-test/1.0" {
		t.Errorf("exp user agent, got %q", got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// spyTracer records the spans started through it.
type spyTracer struct {
	noop.Tracer
	names []string
	attrs []attribute.KeyValue
}

func (s *spyTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	s.names = append(s.names, name)
	cfg := trace.NewSpanStartConfig(opts...)
	s.attrs = append(s.attrs, cfg.Attributes()...)
	return s.Tracer.Start(ctx, name, opts...)
}

func TestClient_Tracing(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("traced", []byte("t"))

	tracer := &spyTracer{}
	c := collector.Memory()
	p := prepare(t, c, get(t, srv.URL("/files/traced")), client.WithTracer(tracer))
	if _, err := p.Blocking().Perform(t.Context()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if diff := cmp.Diff([]string{"httpxfer.perform"}, tracer.names); diff != "" {
		t.Errorf("span names mismatch (-want +got):\n%s", diff)
	}

	got := map[attribute.Key]string{}
	for _, kv := range tracer.attrs {
		got[kv.Key] = kv.Value.Emit()
	}
	if got["http.method"] != http.MethodGet || got["httpxfer.collector"] != "memory" {
		t.Errorf("unexpected span attributes: %v", got)
	}
	if got["httpxfer.transfer_id"] == "" {
		t.Error("expected transfer id attribute")
	}
}
