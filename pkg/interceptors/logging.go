package interceptors

import (
	"time"

	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

// LoggingInterceptor records each call that passes through it.
type LoggingInterceptor struct {
	log retrofit.Logger
}

func NewLoggingInterceptor(log retrofit.Logger) *LoggingInterceptor {
	return &LoggingInterceptor{log: retrofit.EnsureLogger(log)}
}

func (l *LoggingInterceptor) Intercept(chain retrofit.Chain) (*retrofit.Response, error) {
	req := chain.Request()
	endpoint := endpointName(chain)
	l.log.DebugObj("http request", "http_request", map[string]any{
		"endpoint": endpoint,
		"method":   req.Method.String(),
		"url":      req.URL,
		"headers":  req.Headers.Len(),
	})

	start := time.Now()
	resp, err := chain.Proceed(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		l.log.ErrorObj("http request failed", "http_error", map[string]any{
			"endpoint":   endpoint,
			"method":     req.Method.String(),
			"elapsed_ms": elapsed,
			"error":      err.Error(),
		})
		return nil, err
	}

	l.log.InfoObj("http response", "http_response", map[string]any{
		"endpoint":   endpoint,
		"method":     req.Method.String(),
		"status":     resp.StatusCode,
		"message":    resp.Message,
		"bytes":      len(resp.Body),
		"elapsed_ms": elapsed,
	})
	return resp, nil
}

func endpointName(chain retrofit.Chain) string {
	if ep := chain.Endpoint(); ep != nil && ep.Name != "" {
		return ep.Name
	}
	return "unknown"
}
