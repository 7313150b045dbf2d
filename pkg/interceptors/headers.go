package interceptors

import (
	"sort"
	"strings"

	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

// HeaderInterceptor stamps a fixed set of headers on every request. Headers
// already present on the request keep their value.
type HeaderInterceptor struct {
	keys   []string
	values map[string]string
}

// NewHeaderInterceptor copies headers; keys are applied in sorted order.
func NewHeaderInterceptor(headers map[string]string) *HeaderInterceptor {
	h := &HeaderInterceptor{values: make(map[string]string, len(headers))}
	for k, v := range headers {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		h.keys = append(h.keys, k)
		h.values[k] = v
	}
	sort.Strings(h.keys)
	return h
}

func (h *HeaderInterceptor) Intercept(chain retrofit.Chain) (*retrofit.Response, error) {
	req := chain.Request()
	if len(h.keys) == 0 {
		return chain.Proceed(req)
	}
	b := req.NewBuilder()
	for _, k := range h.keys {
		if _, ok := req.Headers.Get(k); ok {
			continue
		}
		b.Header(k, h.values[k])
	}
	return chain.Proceed(b.Build())
}
