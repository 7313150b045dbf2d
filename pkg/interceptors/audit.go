package interceptors

import (
	"context"
	"time"

	"github.com/samvad-hq/retrofit-go/pkg/publishers"
	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

// EventPublisher receives one event per call; publishers.Fanout satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// AuditInterceptor emits a call event after the downstream stages return.
// Delivery failures are logged and never change the call outcome.
type AuditInterceptor struct {
	pub EventPublisher
	log retrofit.Logger
}

func NewAuditInterceptor(pub EventPublisher, log retrofit.Logger) *AuditInterceptor {
	return &AuditInterceptor{pub: pub, log: retrofit.EnsureLogger(log)}
}

func (a *AuditInterceptor) Intercept(chain retrofit.Chain) (*retrofit.Response, error) {
	req := chain.Request()
	start := time.Now()
	resp, err := chain.Proceed(req)

	evt := publishers.NewEvent(endpointName(chain), req.Method.String(), req.URL, time.Since(start))
	if err != nil {
		evt.Error = err.Error()
	} else {
		evt.StatusCode = resp.StatusCode
		evt.Message = resp.Message
	}

	if a.pub != nil {
		if _, perr := a.pub.Publish(chain.Context(), evt); perr != nil {
			a.log.WarnObj("audit event delivery failed", "audit_error", map[string]any{
				"endpoint": evt.Endpoint,
				"error":    perr.Error(),
			})
		}
	}
	return resp, err
}
