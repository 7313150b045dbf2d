package interceptors

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

// RateLimitInterceptor holds each call until the limiter grants a token.
// The limiter is shared by all calls through the client.
type RateLimitInterceptor struct {
	limiter *rate.Limiter
}

// NewRateLimitInterceptor allows rps calls per second with the given burst.
func NewRateLimitInterceptor(rps float64, burst int) *RateLimitInterceptor {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitInterceptor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimitInterceptor) Intercept(chain retrofit.Chain) (*retrofit.Response, error) {
	if err := r.limiter.Wait(chain.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return chain.Proceed(chain.Request())
}
