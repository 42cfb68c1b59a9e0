package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/httpxfer/client"
	"github.com/adamwoolhether/httpxfer/internal/testserver"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeContext(t, t.Context(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HTTPXFER_LOG_LEVEL", "ERROR")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func payload(n int) []byte {
	return bytes.Repeat([]byte("httpxfer"), n)[:n]
}

func TestParseHeaderArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		expLen  int
		wantErr bool
	}{
		{"none", nil, 0, false},
		{"single", []string{"Accept: text/plain"}, 1, false},
		{"value with colon", []string{"X-Time: 12:30"}, 1, false},
		{"no colon", []string{"Accept text/plain"}, 0, true},
		{"empty name", []string{": value"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseHeaderArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if len(opts) != tt.expLen {
				t.Errorf("exp %d options, got %d", tt.expLen, len(opts))
			}
		})
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		url string
		exp string
	}{
		{"http://example.com/files/a.bin", "a.bin"},
		{"http://example.com/dir/", "dir"},
		{"http://example.com/", "index.html"},
		{"http://example.com", "index.html"},
		{"http://example.com/a.tar.gz?x=1", "a.tar.gz"},
	}

	for _, tt := range tests {
		if got := outputName(tt.url); got != tt.exp {
			t.Errorf("%s: exp %q, got %q", tt.url, tt.exp, got)
		}
	}
}

func TestLoadBatch(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		exp     []batchEntry
		wantErr bool
	}{
		{
			name: "output inferred",
			yaml: "- url: http://h/files/a.bin\n  output: one.bin\n- url: http://h/files/b.bin\n",
			exp: []batchEntry{
				{URL: "http://h/files/a.bin", Output: "one.bin"},
				{URL: "http://h/files/b.bin", Output: "b.bin"},
			},
		},
		{name: "missing url", yaml: "- output: a.bin\n", wantErr: true},
		{name: "duplicate output", yaml: "- url: http://h/a/x.bin\n- url: http://h/b/x.bin\n", wantErr: true},
		{name: "not a list", yaml: "url: http://h/a\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "batch.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}

			got, err := loadBatch(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if diff := cmp.Diff(tt.exp, got); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGet(t *testing.T) {
	srv := testserver.New(t)
	data := payload(40_000)
	srv.Put("a.bin", data)

	stdout, _, err := execute(t, "get", srv.URL("/files/a.bin"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if stdout != string(data) {
		t.Errorf("exp %d body bytes, got %d", len(data), len(stdout))
	}
}

func TestGet_InterruptedStall(t *testing.T) {
	srv := testserver.New(t)
	t.Setenv("HTTPXFER_GRACE", "50ms")

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := executeContext(t, ctx, "get", srv.URL("/slow?delay=10s"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected %v, got %v", context.Canceled, err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("expected the stalled transfer to be cancelled, took %v", elapsed)
	}
}

func TestGet_IncludeHeaders(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("a.txt", []byte("hello"))

	stdout, _, err := execute(t, "get", "-i", srv.URL("/files/a.txt"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.HasPrefix(stdout, "200 OK\n") {
		t.Errorf("exp status line first, got %q", stdout)
	}
	if !strings.Contains(stdout, "Content-Length: 5\r\n") || !strings.HasSuffix(stdout, "\nhello") {
		t.Errorf("exp headers then body, got %q", stdout)
	}
}

func TestPost(t *testing.T) {
	srv := testserver.New(t)

	stdout, _, err := execute(t, "post", srv.URL("/echo"), "-d", `{"a":1}`, "-t", "application/json", "-H", "X-Trace: 1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if stdout != `{"a":1}` {
		t.Errorf("exp echoed body, got %q", stdout)
	}

	recs := srv.Records()
	if len(recs) != 1 {
		t.Fatalf("exp 1 request, got %d", len(recs))
	}
	if got := recs[0].Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("exp content type application/json, got %q", got)
	}
	if got := recs[0].Header.Get("X-Trace"); got != "1" {
		t.Errorf("exp X-Trace 1, got %q", got)
	}
}

func TestDownload(t *testing.T) {
	data := payload(100_000)

	tests := []struct {
		name     string
		existing int
		args     []string
		expMsg   string
	}{
		{"fresh", -1, nil, "received"},
		{"resume", 30_000, nil, "resumed at"},
		{"already complete", len(data), nil, "already complete"},
		{"no resume", 30_000, []string{"--no-resume"}, "received"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testserver.New(t)
			srv.Put("data.bin", data)

			out := filepath.Join(t.TempDir(), "data.bin")
			if tt.existing >= 0 {
				if err := os.WriteFile(out, data[:tt.existing], 0o644); err != nil {
					t.Fatal(err)
				}
			}

			args := append([]string{"download", srv.URL("/files/data.bin"), "-o", out}, tt.args...)
			_, stderr, err := execute(t, args...)
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if !strings.Contains(stderr, tt.expMsg) {
				t.Errorf("exp %q in output, got %q", tt.expMsg, stderr)
			}

			got, err := os.ReadFile(out)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("exp file of %d bytes equal to source, got %d bytes", len(data), len(got))
			}
		})
	}
}

func TestDownload_Checksum(t *testing.T) {
	srv := testserver.New(t)
	srv.Put("data.bin", []byte("hello"))
	out := filepath.Join(t.TempDir(), "data.bin")

	const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	if _, _, err := execute(t, "download", srv.URL("/files/data.bin"), "-o", out, "--sha256", helloSHA256); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	_, _, err := execute(t, "download", srv.URL("/files/data.bin"), "-o", out, "--no-resume", "--sha256", strings.Repeat("0", 64))
	if !errors.Is(err, client.ErrChecksumMismatch) {
		t.Errorf("expected %v, got %v", client.ErrChecksumMismatch, err)
	}
}

func TestDownload_NotFound(t *testing.T) {
	srv := testserver.New(t)
	out := filepath.Join(t.TempDir(), "missing.bin")

	_, _, err := execute(t, "download", srv.URL("/files/missing.bin"), "-o", out)

	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected a 404 status error, got %v", err)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no file for a failed download, got %v", err)
	}
}

func TestUpload(t *testing.T) {
	data := payload(50_000)

	tests := []struct {
		name   string
		held   int
		offset string
	}{
		{"whole file", -1, "0"},
		{"continue", 20_000, "20000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testserver.New(t)
			if tt.held >= 0 {
				srv.Put("up.bin", data[:tt.held])
			}

			src := filepath.Join(t.TempDir(), "up.bin")
			if err := os.WriteFile(src, data, 0o644); err != nil {
				t.Fatal(err)
			}

			_, stderr, err := execute(t, "upload", src, srv.URL("/files/up.bin"), "--offset", tt.offset)
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if !strings.Contains(stderr, "sent at") {
				t.Errorf("exp a transfer report, got %q", stderr)
			}

			got, _ := srv.File("up.bin")
			if !bytes.Equal(got, data) {
				t.Errorf("exp server copy of %d bytes, got %d bytes", len(data), len(got))
			}
		})
	}
}

func TestUpload_OffsetBeyondEnd(t *testing.T) {
	srv := testserver.New(t)
	src := filepath.Join(t.TempDir(), "up.bin")
	if err := os.WriteFile(src, []byte("short"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := execute(t, "upload", src, srv.URL("/files/up.bin"), "--offset", "10"); err == nil {
		t.Error("expected an error for an offset past the end of the file")
	}
}

func TestBatch(t *testing.T) {
	srv := testserver.New(t)
	dir := t.TempDir()

	files := map[string][]byte{
		"a.bin": payload(70_000),
		"b.bin": payload(10),
		"c.bin": payload(33_333),
	}

	var list strings.Builder
	for name, data := range files {
		srv.Put(name, data)
		list.WriteString("- url: " + srv.URL("/files/"+name) + "\n")
		list.WriteString("  output: " + filepath.Join(dir, name) + "\n")
	}

	batch := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(batch, []byte(list.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := execute(t, "batch", batch, "-w", "2"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	for name, data := range files {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("%s: exp %d bytes equal to source, got %d bytes", name, len(data), len(got))
		}
	}
}

func TestLimitRate_Invalid(t *testing.T) {
	srv := testserver.New(t)

	if _, _, err := execute(t, "get", "--limit-rate", "fast", srv.URL("/files/a.bin")); err == nil {
		t.Error("expected an error for an unparsable rate")
	}
}
