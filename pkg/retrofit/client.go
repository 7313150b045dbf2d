package retrofit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/retrofit-go/pkg/httpclient"
)

// DefaultTimeout applies when the builder is given no timeout.
const DefaultTimeout = 6 * time.Second

// Client holds the interceptors and transport shared by every call. It is
// read-only after Build and safe for concurrent use.
type Client struct {
	interceptors []Interceptor
	timeout      time.Duration
	transport    httpclient.Client
	log          Logger
}

// Interceptors returns the registered stages in invocation order.
func (c *Client) Interceptors() []Interceptor {
	out := make([]Interceptor, len(c.interceptors))
	copy(out, c.interceptors)
	return out
}

func (c *Client) Timeout() time.Duration { return c.timeout }

// ClientBuilder configures a Client.
type ClientBuilder struct {
	interceptors []Interceptor
	timeout      time.Duration
	transport    httpclient.Client
	log          Logger
}

func NewClientBuilder() *ClientBuilder {
	return &ClientBuilder{}
}

// AddInterceptor appends a stage; stages run in the order they are added.
func (b *ClientBuilder) AddInterceptor(i Interceptor) *ClientBuilder {
	if i != nil {
		b.interceptors = append(b.interceptors, i)
	}
	return b
}

func (b *ClientBuilder) AddTimeout(d time.Duration) *ClientBuilder {
	b.timeout = d
	return b
}

// AddTransport replaces the default resty transport.
func (b *ClientBuilder) AddTransport(t httpclient.Client) *ClientBuilder {
	b.transport = t
	return b
}

func (b *ClientBuilder) AddLogger(l Logger) *ClientBuilder {
	b.log = l
	return b
}

func (b *ClientBuilder) Build() (*Client, error) {
	if b.timeout < 0 {
		return nil, fmt.Errorf("invalid timeout %s (must not be negative)", b.timeout)
	}
	timeout := b.timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	transport := b.transport
	if transport == nil {
		transport = httpclient.NewRestyClient(timeout)
	}
	interceptors := make([]Interceptor, len(b.interceptors))
	copy(interceptors, b.interceptors)
	return &Client{
		interceptors: interceptors,
		timeout:      timeout,
		transport:    transport,
		log:          EnsureLogger(b.log),
	}, nil
}

// Service binds declared endpoints to a base URL and a Client.
type Service struct {
	baseURL string
	client  *Client
}

// ServiceBuilder configures a Service.
type ServiceBuilder struct {
	baseURL string
	client  *Client
}

func NewServiceBuilder() *ServiceBuilder {
	return &ServiceBuilder{}
}

func (b *ServiceBuilder) AddBaseURL(u string) *ServiceBuilder {
	b.baseURL = strings.TrimSpace(u)
	return b
}

func (b *ServiceBuilder) AddClient(c *Client) *ServiceBuilder {
	b.client = c
	return b
}

func (b *ServiceBuilder) Build() (*Service, error) {
	if b.client == nil {
		return nil, errors.New("service requires a client")
	}
	return &Service{baseURL: b.baseURL, client: b.client}, nil
}

func (s *Service) BaseURL() string { return s.baseURL }
func (s *Service) Client() *Client { return s.client }

// Method declares an endpoint rooted at the service base URL.
func (s *Service) Method(name string, m Method, path string, params ...Param) *MethodBuilder {
	return &MethodBuilder{
		Name:       name,
		Method:     m,
		Path:       joinURL(s.baseURL, path),
		Parameters: params,
	}
}

// Call executes mb and returns the raw response.
func (s *Service) Call(ctx context.Context, mb *MethodBuilder) (*Response, error) {
	return NewExecutor(mb, s.client).Execute(ctx)
}

// Call executes mb and decodes the body with dec.
func Call[T any](ctx context.Context, s *Service, mb *MethodBuilder, dec Decoder[T]) (*TypedResponse[T], error) {
	resp, err := s.Call(ctx, mb)
	if err != nil {
		return nil, err
	}
	return Decode(resp, dec)
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
