package httpclient

import (
	"context"
	"net/http"
)

// Header is one outgoing header; order is preserved on the wire.
type Header struct {
	Key   string
	Value string
}

// Request is a fully resolved outgoing call.
type Request struct {
	Method  string
	URL     string
	Headers []Header
	Body    []byte
}

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	ReasonPhrase() string
	Header() http.Header
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Do(ctx context.Context, req *Request) (Response, error)
}
