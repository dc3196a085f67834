package providers

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	Client
	limiter *rate.Limiter
}

// RateLimited bounds the generation rate of c to rps with the given burst.
// Callers block until a token is available or ctx is done. Model listings
// pass through unthrottled.
func RateLimited(c Client, rps float64, burst int) Client {
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{
		Client:  c,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *rateLimited) Generate(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.Client.Generate(ctx, req)
}
