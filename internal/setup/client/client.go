package client

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/retry"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"github.com/resetwatch/resetwatch/internal/pnw"
	"github.com/resetwatch/resetwatch/internal/setup/config"
	"go.uber.org/zap"
)

// GetPNWClient constructs the provider client with a middleware chain for
// reliability. Middleware order is important - each layer wraps the next one.
// Retry sits outermost so transient transport failures are retried; duplicate
// in-flight requests collapse through singleflight. Throttle handling is NOT
// middleware: the 429 contract needs the response headers, so the pnw client
// owns it.
func GetPNWClient(cfg *config.Config, zapLogger *zap.Logger) *pnw.Client {
	requestTimeout := time.Duration(cfg.Worker.RequestTimeout) * time.Millisecond
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	middlewares := []middleware.Middleware{
		retry.New(
			cfg.Common.Retry.MaxRetries,
			time.Duration(cfg.Common.Retry.Delay)*time.Millisecond,
			time.Duration(cfg.Common.Retry.MaxDelay)*time.Millisecond,
		),
		singleflight.New(),
	}

	httpClient := client.NewClient(
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithLogger(NewLogger(zapLogger)),
		client.WithTimeout(requestTimeout),
		client.WithMiddleware(middlewares...),
	)

	buffer := cfg.Worker.RateLimitBuffer
	if buffer <= 0 {
		buffer = pnw.DefaultRateLimitBuffer
	}

	limiter := pnw.NewLimiter(buffer)
	throttleWait := time.Duration(cfg.Worker.ThrottleDefaultWait) * time.Second

	return pnw.NewClient(httpClient, limiter, &cfg.Common.PNW, throttleWait, zapLogger)
}
