package extraction

import (
	"fmt"

	"borderdesk/internal/config"
	"borderdesk/internal/port"
)

// ProviderFactory creates a StructuredExtractor from a provider config.
type ProviderFactory func(cfg *config.ExtractorProviderConfig) (port.StructuredExtractor, error)

// registry of provider factories, populated via RegisterProvider at startup.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewExtractor creates a StructuredExtractor from a provider config using the registered factory.
func NewExtractor(cfg *config.ExtractorProviderConfig) (port.StructuredExtractor, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown extraction provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewFromConfig builds the extractor chain: a single provider when only the
// primary is configured, otherwise a FallbackExtractor in configured order.
func NewFromConfig(cfg *config.ExtractorConfig) (port.StructuredExtractor, error) {
	configs := cfg.Providers()
	extractors := make([]port.StructuredExtractor, 0, len(configs))
	names := make([]string, 0, len(configs))
	for _, pc := range configs {
		ex, err := NewExtractor(pc)
		if err != nil {
			return nil, err
		}
		extractors = append(extractors, ex)
		names = append(names, pc.Provider)
	}
	if len(extractors) == 1 {
		return extractors[0], nil
	}
	return NewFallbackExtractor(extractors, names), nil
}
