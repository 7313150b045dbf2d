package retrofit

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/retrofit-go/pkg/httpclient"
)

// MethodBuilder describes one declared endpoint: verb, path template and
// the ordered call arguments.
type MethodBuilder struct {
	Name       string
	Method     Method
	Path       string
	Parameters []Param
}

// Executor runs a single call of a declared endpoint through the client's
// interceptors and the transport.
type Executor struct {
	method *MethodBuilder
	client *Client
}

func NewExecutor(method *MethodBuilder, client *Client) *Executor {
	return &Executor{method: method, client: client}
}

// Execute builds the canonical request and hands it to the first
// interceptor. The client timeout, when set, bounds the whole call.
func (e *Executor) Execute(ctx context.Context) (*Response, error) {
	if e == nil || e.method == nil || e.client == nil {
		return nil, fmt.Errorf("retrofit: executor is not initialized")
	}
	if len(e.client.interceptors) == 0 {
		return nil, ErrNoInterceptors
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if e.client.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.client.timeout)
		defer cancel()
	}

	b := NewRequestBuilder().
		Method(e.method.Method).
		URL(e.method.Path)
	for _, p := range e.method.Parameters {
		if p.Kind == KindHeader {
			b.Header(p.Name, valueString(p.Value))
		}
	}
	req := b.Build()

	start := time.Now()
	first := &chain{ctx: ctx, exec: e, index: 1, request: req}
	resp, err := checkResponse(e.client.interceptors[0].Intercept(first))
	if err != nil {
		e.client.log.WarnObj("retrofit call failed", "call_error", map[string]any{
			"endpoint": e.method.Name,
			"method":   e.method.Method.String(),
			"error":    err.Error(),
		})
		return nil, err
	}
	e.client.log.DebugObj("retrofit call completed", "call_result", map[string]any{
		"endpoint":   e.method.Name,
		"method":     e.method.Method.String(),
		"status":     resp.StatusCode,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return resp, nil
}

// proceed is the terminal stage: it resolves URL and body for the verb,
// performs the network call and maps the transport response.
func (e *Executor) proceed(ctx context.Context, req *Request) (*Response, error) {
	params := e.method.Parameters

	var (
		url     string
		payload *Payload
		err     error
	)
	switch req.Method {
	case GET:
		url = ComposeURL(req.URL, params)
	case POST:
		url = req.URL
		payload, err = EncodeBody(params)
	case PUT, DELETE:
		url = ComposeURL(req.URL, params)
		payload, err = EncodeBody(params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", e.method.Name, err)
	}

	out := &httpclient.Request{
		Method:  req.Method.String(),
		URL:     url,
		Headers: make([]httpclient.Header, 0, req.Headers.Len()+1),
	}
	req.Headers.Each(func(k, v string) {
		out.Headers = append(out.Headers, httpclient.Header{Key: k, Value: v})
	})
	if payload != nil {
		out.Body = payload.Data
		out.Headers = append(out.Headers, httpclient.Header{Key: "Content-Type", Value: payload.ContentType})
	}

	resp, err := e.client.transport.Do(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", out.Method, out.URL, err)
	}

	headers, err := normalizeHeaders(resp.Header())
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Message:    resp.ReasonPhrase(),
		Body:       string(resp.Body()),
		Headers:    headers,
	}, nil
}
