package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/billfold/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyPublicInvoiceView = "billfold:public:invoice:view:%s"

// PublicViewLimiter throttles public invoice page loads per client address.
// Rate and burst are read from the invoicing config on every call so a
// reload applies immediately.
type PublicViewLimiter struct {
	bucket    *TokenBucket
	invoicing *config.InvoicingConfigHolder
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Invoicing *config.InvoicingConfigHolder
	Log       *zap.Logger
}

// NewPublicViewLimiter returns nil when no Redis address is configured.
func NewPublicViewLimiter(p Params) (*PublicViewLimiter, error) {
	addr := strings.TrimSpace(p.Config.RedisAddr)
	if addr == "" {
		p.Log.Info("public view rate limiting disabled: REDIS_ADDR not set")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Config.RedisPassword),
		DB:       p.Config.RedisDB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return NewPublicViewLimiterWithClient(client, p.Invoicing), nil
}

func NewPublicViewLimiterWithClient(client *redis.Client, invoicing *config.InvoicingConfigHolder) *PublicViewLimiter {
	return &PublicViewLimiter{
		bucket:    NewTokenBucket(client),
		invoicing: invoicing,
	}
}

func (l *PublicViewLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *PublicViewLimiter) Allow(ctx context.Context, clientAddr string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	cfg := l.invoicing.Get()
	return l.bucket.Allow(ctx, fmt.Sprintf(keyPublicInvoiceView, clientAddr), cfg.PublicViewRate, cfg.PublicViewBurst)
}
