package adapters

import (
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/smallbiznis/billfold/internal/config"
	"github.com/smallbiznis/billfold/internal/payment/adapters/stripe"
	"github.com/smallbiznis/billfold/internal/payment/domain"
)

// Registry hands out the webhook adapter of each payment provider. An
// adapter is built on first use from the provider's webhook secret and
// reused for every later delivery. A provider without a secret is treated
// as unknown.
type Registry struct {
	mu        sync.Mutex
	factories map[string]domain.AdapterFactory
	secrets   map[string]string
	built     map[string]domain.PaymentAdapter
}

// FromConfig registers every supported provider with its secret from cfg.
func FromConfig(cfg config.Config) *Registry {
	return NewRegistry(stripe.NewFactory()).
		WithSecret(domain.ProviderStripe, cfg.StripeWebhookSecret)
}

func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	r := &Registry{
		factories: map[string]domain.AdapterFactory{},
		secrets:   map[string]string{},
		built:     map[string]domain.PaymentAdapter{},
	}
	for _, factory := range lo.Compact(factories) {
		if provider := normalize(factory.Provider()); provider != "" {
			r.factories[provider] = factory
		}
	}
	return r
}

// WithSecret sets the webhook signing secret of provider. A blank secret
// leaves the provider unconfigured.
func (r *Registry) WithSecret(provider, secret string) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider = normalize(provider)
	delete(r.built, provider)
	if secret = strings.TrimSpace(secret); secret == "" {
		delete(r.secrets, provider)
	} else {
		r.secrets[provider] = secret
	}
	return r
}

// Configured lists the providers that can accept webhooks, sorted.
func (r *Registry) Configured() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	providers := lo.Filter(lo.Keys(r.factories), func(p string, _ int) bool {
		return r.secrets[p] != ""
	})
	sort.Strings(providers)
	return providers
}

func (r *Registry) Adapter(provider string) (domain.PaymentAdapter, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	provider = normalize(provider)

	r.mu.Lock()
	defer r.mu.Unlock()

	if adapter, ok := r.built[provider]; ok {
		return adapter, nil
	}
	factory, ok := r.factories[provider]
	if !ok || r.secrets[provider] == "" {
		return nil, domain.ErrProviderNotFound
	}
	adapter, err := factory.NewAdapter(domain.AdapterConfig{
		Provider:      provider,
		WebhookSecret: r.secrets[provider],
	})
	if err != nil {
		return nil, err
	}
	r.built[provider] = adapter
	return adapter, nil
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
