package config

import (
	"log"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// InvoicingConfig carries per-deployment invoicing defaults that operators
// may change without a restart.
type InvoicingConfig struct {
	NumberPrefix        string  `mapstructure:"numberPrefix"`
	PaymentTermsDays    int     `mapstructure:"paymentTermsDays"`
	UpcomingHorizonDays int     `mapstructure:"upcomingHorizonDays"`
	PublicViewRate      float64 `mapstructure:"publicViewRate"`
	PublicViewBurst     int     `mapstructure:"publicViewBurst"`
}

func DefaultInvoicingConfig() InvoicingConfig {
	return InvoicingConfig{
		NumberPrefix:        "INV",
		PaymentTermsDays:    30,
		UpcomingHorizonDays: 7,
		PublicViewRate:      1,
		PublicViewBurst:     10,
	}
}

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

type InvoicingConfigHolder struct {
	current atomic.Value // holds InvoicingConfig
}

// NewStaticInvoicingConfigHolder wraps a fixed config. Used by tests and by
// processes that do not watch a file.
func NewStaticInvoicingConfigHolder(cfg InvoicingConfig) *InvoicingConfigHolder {
	holder := &InvoicingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewInvoicingConfigHolder() (*InvoicingConfigHolder, error) {
	return LoadInvoicingConfigHolder("/etc/billfold", ".")
}

func LoadInvoicingConfigHolder(paths ...string) (*InvoicingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("BILLFOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoicingConfig()
	v.SetDefault("invoicing.numberPrefix", defaults.NumberPrefix)
	v.SetDefault("invoicing.paymentTermsDays", defaults.PaymentTermsDays)
	v.SetDefault("invoicing.upcomingHorizonDays", defaults.UpcomingHorizonDays)
	v.SetDefault("invoicing.publicViewRate", defaults.PublicViewRate)
	v.SetDefault("invoicing.publicViewBurst", defaults.PublicViewBurst)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	var cfg InvoicingConfig
	if err := v.UnmarshalKey("invoicing", &cfg); err != nil {
		return nil, err
	}
	if err := validateInvoicingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticInvoicingConfigHolder(cfg)
	if !found {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvoicingConfig
		if err := v.UnmarshalKey("invoicing", &updated); err != nil {
			log.Printf("[invoicing-config] reload failed: %v", err)
			return
		}
		if err := validateInvoicingConfig(updated); err != nil {
			log.Printf("[invoicing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[invoicing-config] reloaded from %s", e.Name)
	})
	v.WatchConfig()

	return holder, nil
}

func (h *InvoicingConfigHolder) Get() InvoicingConfig {
	return h.current.Load().(InvoicingConfig)
}

func validateInvoicingConfig(cfg InvoicingConfig) error {
	if l := len(cfg.NumberPrefix); l < 1 || l > 10 {
		return errors.New("invoicing.numberPrefix must be 1-10 characters")
	}
	if !prefixPattern.MatchString(cfg.NumberPrefix) {
		return errors.New("invoicing.numberPrefix must be alphanumeric")
	}
	if cfg.PaymentTermsDays < 1 || cfg.PaymentTermsDays > 365 {
		return errors.New("invoicing.paymentTermsDays must be between 1 and 365")
	}
	if cfg.UpcomingHorizonDays < 0 {
		return errors.New("invoicing.upcomingHorizonDays cannot be negative")
	}
	if cfg.PublicViewRate <= 0 || cfg.PublicViewBurst <= 0 {
		return errors.New("invoicing.publicViewRate and publicViewBurst must be positive")
	}
	return nil
}
