package retrofit

import (
	"context"
	"errors"
)

// ErrNoInterceptors is returned by Execute when the client has no stages.
var ErrNoInterceptors = errors.New("retrofit: no interceptors registered")

// ErrNilResponse reports a stage that returned neither a response nor an error.
var ErrNilResponse = errors.New("retrofit: interceptor returned nil response without error")

// Interceptor is one stage of the request pipeline. It may rewrite the
// request before calling chain.Proceed, inspect or replace the response
// afterwards, or return its own response without proceeding at all.
type Interceptor interface {
	Intercept(chain Chain) (*Response, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(chain Chain) (*Response, error)

func (f InterceptorFunc) Intercept(chain Chain) (*Response, error) { return f(chain) }

// Chain is handed to each interceptor.
type Chain interface {
	Context() context.Context
	// Endpoint is the declared endpoint being called. It is shared and
	// must not be modified.
	Endpoint() *MethodBuilder
	// Request is the request this stage received.
	Request() *Request
	// Proceed runs the remaining stages with req, ending in the network call.
	Proceed(req *Request) (*Response, error)
}

// chain is a cursor over the client's interceptor list. Each Proceed hands
// a fresh cursor to the next stage, so a chain value is never shared
// between stages or calls.
type chain struct {
	ctx     context.Context
	exec    *Executor
	index   int
	request *Request
}

func (c *chain) Context() context.Context { return c.ctx }
func (c *chain) Request() *Request        { return c.request }
func (c *chain) Endpoint() *MethodBuilder { return c.exec.method }

func (c *chain) Proceed(req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("retrofit: proceed with nil request")
	}
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}

	interceptors := c.exec.client.interceptors
	if c.index < len(interceptors) {
		next := &chain{ctx: c.ctx, exec: c.exec, index: c.index + 1, request: req}
		return checkResponse(interceptors[c.index].Intercept(next))
	}
	return c.exec.proceed(c.ctx, req)
}

func checkResponse(resp *Response, err error) (*Response, error) {
	if err == nil && resp == nil {
		return nil, ErrNilResponse
	}
	return resp, err
}
