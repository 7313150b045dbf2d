package interceptors

import (
	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

// StubInterceptor answers matching requests with a canned response and
// never forwards them. Non-matching requests proceed unchanged.
type StubInterceptor struct {
	resp  retrofit.Response
	match func(*retrofit.Request) bool
}

// NewStubInterceptor serves a copy of resp. A nil match stubs every request.
func NewStubInterceptor(resp retrofit.Response, match func(*retrofit.Request) bool) *StubInterceptor {
	resp.Headers = append([]retrofit.HeaderValue(nil), resp.Headers...)
	return &StubInterceptor{resp: resp, match: match}
}

func (s *StubInterceptor) Intercept(chain retrofit.Chain) (*retrofit.Response, error) {
	req := chain.Request()
	if s.match != nil && !s.match(req) {
		return chain.Proceed(req)
	}
	out := s.resp
	out.Headers = append([]retrofit.HeaderValue(nil), s.resp.Headers...)
	return &out, nil
}
