package collector

import (
	"bytes"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"
)

// ParseHeaders turns raw header lines, as received by a Header callback,
// into an http.Header. Only the last response block survives when the
// raw bytes span redirects or interim responses. Malformed lines are
// skipped.
func ParseHeaders(raw []byte) http.Header {
	h := make(http.Header)

	for line := range bytes.Lines(raw) {
		s := strings.TrimRight(string(line), "\r\n")
		if s == "" {
			continue
		}

		if strings.HasPrefix(s, "HTTP/") {
			clear(h)
			continue
		}

		name, value, ok := strings.Cut(s, ": ")
		if !ok {
			continue
		}
		if !httpguts.ValidHeaderFieldName(name) {
			continue
		}
		if !httpguts.ValidHeaderFieldValue(value) || !utf8.ValidString(value) {
			continue
		}

		h.Add(name, value)
	}

	return h
}
