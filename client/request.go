package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HeaderField is one request header line.
type HeaderField struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value"`
}

// Request describes what to transfer. A nil Body sends no body; PUT
// bodies come from the collector instead.
type Request struct {
	URL    string        `json:"url" validate:"required,http_url"`
	Method string        `json:"method" validate:"required"`
	Header []HeaderField `json:"header" validate:"dive"`
	Body   []byte        `json:"-"`
}

// RequestOption is a functional option for [NewRequest].
type RequestOption func(*Request) error

// NewRequest builds a Request for method and url.
func NewRequest(method, url string, opts ...RequestOption) (Request, error) {
	r := Request{
		URL:    url,
		Method: strings.ToUpper(method),
	}

	for _, opt := range opts {
		if err := opt(&r); err != nil {
			return Request{}, newError(ErrConfig, "request", err)
		}
	}

	return r, nil
}

// WithHeader appends a header line. Repeated names are sent in order.
func WithHeader(name, value string) RequestOption {
	return func(r *Request) error {
		if name == "" {
			return errors.New("header name must not be empty")
		}
		r.Header = append(r.Header, HeaderField{Name: name, Value: value})
		return nil
	}
}

// WithBody sets the raw request body.
func WithBody(body []byte) RequestOption {
	return func(r *Request) error {
		r.Body = body
		return nil
	}
}

// WithPayload sets the JSON-encoded request body, defaulting the
// Content-Type to application/json.
func WithPayload(payload any) RequestOption {
	return func(r *Request) error {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request payload: %w", err)
		}
		r.Body = b

		if !r.hasHeader("Content-Type") {
			r.Header = append(r.Header, HeaderField{Name: "Content-Type", Value: "application/json"})
		}
		return nil
	}
}

// WithContentType sets the Content-Type header, replacing any set before.
func WithContentType(contentType string) RequestOption {
	return func(r *Request) error {
		if contentType == "" {
			return errors.New("cannot use empty content type")
		}

		kept := r.Header[:0]
		for _, f := range r.Header {
			if http.CanonicalHeaderKey(f.Name) != "Content-Type" {
				kept = append(kept, f)
			}
		}
		r.Header = append(kept, HeaderField{Name: "Content-Type", Value: contentType})
		return nil
	}
}

func (r *Request) hasHeader(name string) bool {
	for _, f := range r.Header {
		if http.CanonicalHeaderKey(f.Name) == name {
			return true
		}
	}
	return false
}
