package interceptors

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

// ResponseStore persists serialized responses. Expiry is the store's concern.
type ResponseStore interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// CacheInterceptor answers repeated GET calls from a ResponseStore without
// reaching the network. Only 2xx responses are stored.
type CacheInterceptor struct {
	store ResponseStore
	log   retrofit.Logger
}

func NewCacheInterceptor(store ResponseStore, log retrofit.Logger) *CacheInterceptor {
	return &CacheInterceptor{store: store, log: retrofit.EnsureLogger(log)}
}

func (c *CacheInterceptor) Intercept(chain retrofit.Chain) (*retrofit.Response, error) {
	req := chain.Request()
	if req.Method != retrofit.GET || c.store == nil {
		return chain.Proceed(req)
	}

	key := cacheKey(chain, req)
	raw, ok, err := c.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if ok {
		var cached retrofit.Response
		if err := json.Unmarshal(raw, &cached); err == nil {
			c.log.DebugObj("cache hit", "cache_hit", map[string]any{"key": key})
			return &cached, nil
		}
		c.log.WarnObj("cache entry unreadable; refetching", "cache_key", key)
	}

	resp, err := chain.Proceed(req)
	if err != nil || !resp.IsSuccess() {
		return resp, err
	}
	encoded, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.store.Put(key, encoded); err != nil {
		c.log.WarnObj("cache store failed", "cache_error", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
	return resp, nil
}

// cacheKey identifies a call by verb, resolved URL and request headers.
func cacheKey(chain retrofit.Chain, req *retrofit.Request) string {
	var params []retrofit.Param
	if ep := chain.Endpoint(); ep != nil {
		params = ep.Parameters
	}

	var sb strings.Builder
	sb.WriteString(req.Method.String())
	sb.WriteByte(' ')
	sb.WriteString(retrofit.ComposeURL(req.URL, params))
	req.Headers.Each(func(k, v string) {
		sb.WriteByte('|')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
	})
	return sb.String()
}
