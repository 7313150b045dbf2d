package retrofit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/retrofit-go/pkg/httpclient"
)

// fakeTransport records the resolved request and returns a canned response.
type fakeTransport struct {
	mu     sync.Mutex
	calls  []*httpclient.Request
	status int
	body   string
	header http.Header
	err    error
	onCall func()
}

func (f *fakeTransport) Do(_ context.Context, req *httpclient.Request) (httpclient.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return fakeResponse{status: status, body: f.body, header: f.header}, nil
}

type fakeResponse struct {
	status int
	body   string
	header http.Header
}

func (r fakeResponse) Body() []byte         { return []byte(r.body) }
func (r fakeResponse) StatusCode() int      { return r.status }
func (r fakeResponse) ReasonPhrase() string { return http.StatusText(r.status) }
func (r fakeResponse) Header() http.Header  { return r.header }

func passThrough() Interceptor {
	return InterceptorFunc(func(c Chain) (*Response, error) { return c.Proceed(c.Request()) })
}

func newTestClient(t *testing.T, tr httpclient.Client, interceptors ...Interceptor) *Client {
	t.Helper()
	b := NewClientBuilder().AddTransport(tr).AddTimeout(2 * time.Second)
	for _, i := range interceptors {
		b.AddInterceptor(i)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c
}

func TestExecuteWithoutInterceptorsFails(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr)
	_, err := NewExecutor(&MethodBuilder{Method: GET, Path: "/x"}, client).Execute(context.Background())
	if !errors.Is(err, ErrNoInterceptors) {
		t.Fatalf("expected ErrNoInterceptors, got %v", err)
	}
	if len(tr.calls) != 0 {
		t.Fatalf("transport should not be called")
	}
}

func TestInterceptorOrdering(t *testing.T) {
	var order []string
	tr := &fakeTransport{onCall: func() { order = append(order, "network") }}
	record := func(name string) Interceptor {
		return InterceptorFunc(func(c Chain) (*Response, error) {
			order = append(order, name)
			return c.Proceed(c.Request())
		})
	}
	client := newTestClient(t, tr, record("A"), record("B"))

	if _, err := NewExecutor(&MethodBuilder{Method: GET, Path: "/x"}, client).Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := strings.Join(order, ","); got != "A,B,network" {
		t.Fatalf("order = %s", got)
	}
}

func TestInterceptorShortCircuit(t *testing.T) {
	bCalled := false
	tr := &fakeTransport{}
	a := InterceptorFunc(func(Chain) (*Response, error) {
		return &Response{StatusCode: 299, Message: "synthetic"}, nil
	})
	b := InterceptorFunc(func(c Chain) (*Response, error) {
		bCalled = true
		return c.Proceed(c.Request())
	})
	client := newTestClient(t, tr, a, b)

	resp, err := NewExecutor(&MethodBuilder{Method: GET, Path: "/x"}, client).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.StatusCode != 299 || bCalled || len(tr.calls) != 0 {
		t.Fatalf("short circuit failed: status=%d bCalled=%v calls=%d", resp.StatusCode, bCalled, len(tr.calls))
	}
}

func TestInterceptorNilResponseIsAnError(t *testing.T) {
	tr := &fakeTransport{}
	empty := InterceptorFunc(func(Chain) (*Response, error) { return nil, nil })

	resp, err := NewExecutor(&MethodBuilder{Method: GET, Path: "/x"}, newTestClient(t, tr, empty)).Execute(context.Background())
	if !errors.Is(err, ErrNilResponse) || resp != nil {
		t.Fatalf("expected ErrNilResponse, got resp=%v err=%v", resp, err)
	}

	var outerErr error
	outer := InterceptorFunc(func(c Chain) (*Response, error) {
		resp, err := c.Proceed(c.Request())
		outerErr = err
		return resp, err
	})
	_, err = NewExecutor(&MethodBuilder{Method: GET, Path: "/x"}, newTestClient(t, tr, outer, empty)).Execute(context.Background())
	if !errors.Is(outerErr, ErrNilResponse) || !errors.Is(err, ErrNilResponse) {
		t.Fatalf("outer stage should see ErrNilResponse, got %v / %v", outerErr, err)
	}
	if len(tr.calls) != 0 {
		t.Fatalf("transport should not be called")
	}
}

func TestInterceptorRewritesRequestAndResponse(t *testing.T) {
	tr := &fakeTransport{body: "raw"}
	addAuth := InterceptorFunc(func(c Chain) (*Response, error) {
		req := c.Request().NewBuilder().Header("Authorization", "Bearer t").Build()
		resp, err := c.Proceed(req)
		if err != nil {
			return nil, err
		}
		resp.Body = strings.ToUpper(resp.Body)
		return resp, nil
	})
	client := newTestClient(t, tr, addAuth)

	resp, err := NewExecutor(&MethodBuilder{Method: GET, Path: "/x"}, client).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Body != "RAW" {
		t.Fatalf("body = %q", resp.Body)
	}
	got := tr.calls[0].Headers
	if len(got) != 1 || got[0].Key != "Authorization" || got[0].Value != "Bearer t" {
		t.Fatalf("headers = %#v", got)
	}
}

func TestProceedResolvesURLAndBodyPerMethod(t *testing.T) {
	params := []Param{Query("q", "go"), Body("name", "gopher")}
	tests := []struct {
		method   Method
		wantURL  string
		wantBody string
	}{
		{GET, "/items/?q=go&", ""},
		{POST, "/items/{id}", `{"name":"gopher"}`},
		{PUT, "/items/?q=go&", `{"name":"gopher"}`},
		{DELETE, "/items/?q=go&", `{"name":"gopher"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			tr := &fakeTransport{}
			client := newTestClient(t, tr, passThrough())
			mb := &MethodBuilder{Name: "items", Method: tt.method, Path: "/items/{id}", Parameters: params}
			if _, err := NewExecutor(mb, client).Execute(context.Background()); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			call := tr.calls[0]
			if call.Method != tt.method.String() || call.URL != tt.wantURL || string(call.Body) != tt.wantBody {
				t.Fatalf("got %s %s body=%q", call.Method, call.URL, call.Body)
			}
			if tt.wantBody != "" {
				last := call.Headers[len(call.Headers)-1]
				if last.Key != "Content-Type" || last.Value != "application/json" {
					t.Fatalf("content type header = %#v", last)
				}
			}
		})
	}
}

func TestProceedUnsupportedMethod(t *testing.T) {
	client := newTestClient(t, &fakeTransport{}, passThrough())
	_, err := NewExecutor(&MethodBuilder{Method: Method(42), Path: "/x"}, client).Execute(context.Background())
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestHeaderParamsBecomeRequestHeaders(t *testing.T) {
	tr := &fakeTransport{}
	var seen *Request
	spy := InterceptorFunc(func(c Chain) (*Response, error) {
		seen = c.Request()
		return c.Proceed(c.Request())
	})
	client := newTestClient(t, tr, spy)
	mb := &MethodBuilder{Method: GET, Path: "/me", Parameters: []Param{Header("X-Tenant", "acme"), Header("X-Req", 7)}}
	if _, err := NewExecutor(mb, client).Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if v, _ := seen.Headers.Get("X-Tenant"); v != "acme" {
		t.Fatalf("X-Tenant = %q", v)
	}
	hs := tr.calls[0].Headers
	if len(hs) != 2 || hs[0].Key != "X-Tenant" || hs[1].Key != "X-Req" || hs[1].Value != "7" {
		t.Fatalf("headers = %#v", hs)
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	client := newTestClient(t, &fakeTransport{err: boom}, passThrough())
	resp, err := NewExecutor(&MethodBuilder{Method: GET, Path: "/x"}, client).Execute(context.Background())
	if !errors.Is(err, boom) || resp != nil {
		t.Fatalf("expected wrapped transport error and nil response, got %v %v", resp, err)
	}
}

func TestFormFileErrorAbortsCall(t *testing.T) {
	tr := &fakeTransport{}
	client := newTestClient(t, tr, passThrough())
	mb := &MethodBuilder{Method: POST, Path: "/upload", Parameters: []Param{
		Form("in", Fields{{Name: "f", Value: FieldFile{FilePath: "/definitely/missing/file"}}}),
	}}
	if _, err := NewExecutor(mb, client).Execute(context.Background()); err == nil {
		t.Fatalf("expected file read error")
	}
	if len(tr.calls) != 0 {
		t.Fatalf("network must not be reached")
	}
}

func TestExecuteAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cgi-bin/token" || r.URL.Query().Get("appid") != "wx1" {
			t.Errorf("unexpected url %s", r.URL.String())
		}
		if r.Header.Get("X-Client") != "retrofit" {
			t.Errorf("missing X-Client header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("X-Multi", "one")
		w.Header().Add("X-Multi", "two")
		_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":7200}`))
	}))
	defer srv.Close()

	headers := InterceptorFunc(func(c Chain) (*Response, error) {
		return c.Proceed(c.Request().NewBuilder().Header("X-Client", "retrofit").Build())
	})
	client, err := NewClientBuilder().AddInterceptor(headers).AddTimeout(2 * time.Second).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	svc, err := NewServiceBuilder().AddBaseURL(srv.URL).AddClient(client).Build()
	if err != nil {
		t.Fatalf("Build service: %v", err)
	}

	type token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	dec := DecoderFunc[token](func(b []byte) (token, error) {
		var tk token
		err := json.Unmarshal(b, &tk)
		return tk, err
	})
	mb := svc.Method("GetToken", GET, "/cgi-bin/token", Query("appid", "wx1"), Query("secret", "s"))
	resp, err := Call[token](context.Background(), svc, mb, dec)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.StatusCode != 200 || resp.Message != "OK" {
		t.Fatalf("status = %d %q", resp.StatusCode, resp.Message)
	}
	if resp.Data.AccessToken != "abc" || resp.Data.ExpiresIn != 7200 {
		t.Fatalf("decoded = %+v", resp.Data)
	}
	v, ok := resp.Header("X-Multi")
	if !ok {
		t.Fatalf("X-Multi missing from %#v", resp.Headers)
	}
	vals, _ := v.([]any)
	if len(vals) != 2 || vals[0] != "one" || vals[1] != "two" {
		t.Fatalf("X-Multi = %#v", v)
	}
}

func TestPostMultipartAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("title") != "hello" {
			t.Errorf("title = %q", r.FormValue("title"))
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := newTestClient(t, httpclient.NewRestyClient(time.Second), passThrough())
	svc, _ := NewServiceBuilder().AddBaseURL(srv.URL).AddClient(client).Build()
	resp, err := svc.Call(context.Background(), svc.Method("Upload", POST, "/media", Form("title", "hello")))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestConcurrentCallsShareClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	client := newTestClient(t, httpclient.NewRestyClient(2*time.Second), passThrough(), passThrough())
	svc, _ := NewServiceBuilder().AddBaseURL(srv.URL).AddClient(client).Build()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Call(context.Background(), svc.Method("Echo", PUT, "/echo", Body("n", i)))
			if err != nil {
				errs <- err
				return
			}
			if want := `{"n":` + string(rune('0'+i)) + `}`; resp.Body != want {
				errs <- errors.New("unexpected echo " + resp.Body)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
