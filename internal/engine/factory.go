package engine

import (
	"fmt"

	"go.uber.org/zap"

	"invoicer/internal/config"
)

// ProviderFactory creates a Backend from a provider config.
type ProviderFactory func(cfg *config.EngineProviderConfig) (Backend, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewBackend creates a Backend from a provider config using the registered factory.
func NewBackend(cfg *config.EngineProviderConfig) (Backend, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown engine provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewFromConfig builds the primary backend, or a Fallback when secondary or
// tertiary providers are configured.
func NewFromConfig(cfg *config.EngineConfig, logger *zap.Logger) (Backend, error) {
	primary, err := NewBackend(cfg.PrimaryConfig())
	if err != nil {
		return nil, fmt.Errorf("creating primary backend: %w", err)
	}

	backends := []Backend{primary}
	for _, pc := range []*config.EngineProviderConfig{cfg.SecondaryConfig(), cfg.TertiaryConfig()} {
		if pc == nil {
			continue
		}
		b, err := NewBackend(pc)
		if err != nil {
			return nil, fmt.Errorf("creating %s backend: %w", pc.Provider, err)
		}
		backends = append(backends, b)
	}

	if len(backends) == 1 {
		return primary, nil
	}
	return NewFallback(backends, logger), nil
}
