package retrofit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedMethod is returned for verbs the executor cannot dispatch.
var ErrUnsupportedMethod = errors.New("unsupported http method")

// Method is the HTTP verb of a declared endpoint.
type Method int

const (
	GET Method = iota + 1
	POST
	PUT
	DELETE
)

func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case POST:
		return "POST"
	case PUT:
		return "PUT"
	case DELETE:
		return "DELETE"
	default:
		return fmt.Sprintf("METHOD(%d)", int(m))
	}
}

// ParseMethod accepts a verb in any case.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GET":
		return GET, nil
	case "POST":
		return POST, nil
	case "PUT":
		return PUT, nil
	case "DELETE":
		return DELETE, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
	}
}

type headerEntry struct {
	key   string
	value string
}

// Headers is a string map that remembers insertion order.
type Headers struct {
	entries []headerEntry
}

// Set replaces the first entry for key in place, or appends a new one.
func (h *Headers) Set(key, value string) {
	for i := range h.entries {
		if h.entries[i].key == key {
			h.entries[i].value = value
			return
		}
	}
	h.entries = append(h.entries, headerEntry{key: key, value: value})
}

// Add appends an entry even if key is already present.
func (h *Headers) Add(key, value string) {
	h.entries = append(h.entries, headerEntry{key: key, value: value})
}

func (h Headers) Get(key string) (string, bool) {
	for _, e := range h.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

func (h Headers) Len() int { return len(h.entries) }

// Each visits entries in insertion order.
func (h Headers) Each(fn func(key, value string)) {
	for _, e := range h.entries {
		fn(e.key, e.value)
	}
}

func (h Headers) Clone() Headers {
	if len(h.entries) == 0 {
		return Headers{}
	}
	out := make([]headerEntry, len(h.entries))
	copy(out, h.entries)
	return Headers{entries: out}
}

// Request describes one outgoing call. URL may still carry {placeholder}
// tokens; they are resolved by the terminal stage.
type Request struct {
	Method  Method
	URL     string
	Headers Headers
}

// NewBuilder starts a builder seeded with a copy of r.
func (r *Request) NewBuilder() *RequestBuilder {
	b := NewRequestBuilder()
	if r == nil {
		return b
	}
	b.req.Method = r.Method
	b.req.URL = r.URL
	b.req.Headers = r.Headers.Clone()
	return b
}

// RequestBuilder assembles a Request fluently.
type RequestBuilder struct {
	req Request
}

func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{}
}

func (b *RequestBuilder) Method(m Method) *RequestBuilder {
	b.req.Method = m
	return b
}

func (b *RequestBuilder) URL(u string) *RequestBuilder {
	b.req.URL = u
	return b
}

func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	b.req.Headers.Set(key, value)
	return b
}

// Build returns an independent Request; further builder calls do not affect it.
func (b *RequestBuilder) Build() *Request {
	out := b.req
	out.Headers = b.req.Headers.Clone()
	return &out
}
