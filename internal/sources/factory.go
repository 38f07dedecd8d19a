package sources

import (
	"fmt"

	"github.com/trackhouse/trackhouse-sync-server/internal/config"
)

// SourceFactory builds the configured upstream source implementations
type SourceFactory interface {
	// CreateOrderSource builds the order source from configuration
	CreateOrderSource(cfg *config.SourcesConfig) (OrderSource, error)

	// CreateCarrierSource builds the carrier tracking source from configuration
	CreateCarrierSource(cfg *config.SourcesConfig) (CarrierSource, error)
}

// defaultSourceFactory is the default implementation of SourceFactory
type defaultSourceFactory struct{}

var _ SourceFactory = (*defaultSourceFactory)(nil)

// NewSourceFactory creates a new source factory
func NewSourceFactory() SourceFactory {
	return &defaultSourceFactory{}
}

// CreateOrderSource builds the order source for the configured type
func (*defaultSourceFactory) CreateOrderSource(cfg *config.SourcesConfig) (OrderSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sources configuration cannot be nil")
	}

	switch cfg.Orders.GetOrderSourceType() {
	case config.OrderSourceTypeAPI:
		return NewAPIOrderSource(cfg.Orders.API.Endpoint, cfg.GetTimeout()), nil
	case config.OrderSourceTypeFile:
		return NewFileOrderSource(cfg.Orders.File.Path), nil
	default:
		return nil, fmt.Errorf("order source requires either an api or file configuration")
	}
}

// CreateCarrierSource builds the carrier tracking source
func (*defaultSourceFactory) CreateCarrierSource(cfg *config.SourcesConfig) (CarrierSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sources configuration cannot be nil")
	}

	if cfg.Carrier.API == nil || cfg.Carrier.API.Endpoint == "" {
		return nil, fmt.Errorf("carrier source requires an api endpoint")
	}

	return NewAPICarrierSource(cfg.Carrier.API.Endpoint, cfg.GetTimeout()), nil
}
