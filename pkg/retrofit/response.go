package retrofit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// HeaderValue is one response header as seen by converters.
type HeaderValue struct {
	Key   string
	Value any
}

// Response is the raw outcome of a call, shared by every interceptor.
type Response struct {
	StatusCode int
	Message    string
	Body       string
	Headers    []HeaderValue
}

// Header returns the first value recorded for key.
func (r *Response) Header(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	for _, h := range r.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return nil, false
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Decoder turns a raw body into a caller-declared shape.
type Decoder[T any] interface {
	Decode(body []byte) (T, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc[T any] func(body []byte) (T, error)

func (f DecoderFunc[T]) Decode(body []byte) (T, error) { return f(body) }

// TypedResponse pairs the raw response with its decoded body.
type TypedResponse[T any] struct {
	*Response
	Data T
}

// Decode runs dec over resp.Body.
func Decode[T any](resp *Response, dec Decoder[T]) (*TypedResponse[T], error) {
	if resp == nil {
		return nil, fmt.Errorf("decode: nil response")
	}
	if dec == nil {
		return nil, fmt.Errorf("decode: nil decoder")
	}
	data, err := dec.Decode([]byte(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}
	return &TypedResponse[T]{Response: resp, Data: data}, nil
}

// normalizeHeaders serializes the transport headers and reads them back as
// an ordered key/value sequence so every transport yields the same shape.
func normalizeHeaders(src any) ([]HeaderValue, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("serialize response headers: %w", err)
	}
	if bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse response headers: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parse response headers: expected object, got %v", tok)
	}

	var out []HeaderValue
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse response headers: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("parse response headers: unexpected key %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("parse response header %q: %w", key, err)
		}
		out = append(out, HeaderValue{Key: key, Value: value})
	}
	return out, nil
}
