package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/codefionn/kael/internal/provider"
	"golang.org/x/time/rate"
)

// rateLimitedAdapter rejects calls that would exceed a request budget.
type rateLimitedAdapter struct {
	delegate Adapter
	limiter  *rate.Limiter
}

// RateLimited wraps a so that at most requestsPerMinute calls start per
// minute, with bursts of up to burst calls. A non-positive rate returns a
// unchanged.
func RateLimited(a Adapter, requestsPerMinute, burst int) Adapter {
	if a == nil || requestsPerMinute <= 0 {
		return a
	}
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &rateLimitedAdapter{
		delegate: a,
		limiter:  rate.NewLimiter(rate.Every(every), burst),
	}
}

func (r *rateLimitedAdapter) ID() provider.ID { return r.delegate.ID() }

// Send delegates when a token is available now. It never waits for one: an
// exhausted budget fails the attempt as unavailable so the caller can move
// on to the next provider.
func (r *rateLimitedAdapter) Send(ctx context.Context, req Request) (Response, error) {
	res := r.limiter.Reserve()
	if delay := res.Delay(); !res.OK() || delay > 0 {
		res.Cancel()
		msg := "rate limited"
		if res.OK() {
			msg = fmt.Sprintf("rate limited, next request allowed in %s", delay.Round(time.Second))
		}
		return Response{}, newError(r.delegate.ID(), KindUnavailable, msg)
	}
	return r.delegate.Send(ctx, req)
}
