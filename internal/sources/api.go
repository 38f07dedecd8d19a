package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/trackhouse/trackhouse-sync-server/internal/httpclient"
)

const (
	ordersPath = "/orders"
	trackPath  = "/track"
)

// apiOrderSource fetches the order list from the order-management API
type apiOrderSource struct {
	httpClient httpclient.Client
	validator  SourceDataValidator
	endpoint   string
}

var _ OrderSource = (*apiOrderSource)(nil)

// NewAPIOrderSource creates an order source backed by an HTTP endpoint.
// Every call is bounded by the given timeout.
func NewAPIOrderSource(endpoint string, timeout time.Duration) OrderSource {
	return &apiOrderSource{
		httpClient: httpclient.NewDefaultClient(timeout),
		validator:  NewSourceDataValidator(),
		endpoint:   strings.TrimSuffix(endpoint, "/"),
	}
}

// FetchOrders retrieves the full order list from the upstream source
func (s *apiOrderSource) FetchOrders(ctx context.Context) ([]Order, error) {
	data, err := s.httpClient.Get(ctx, s.endpoint+ordersPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders from %s: %w", s.endpoint, err)
	}

	orders, err := s.validator.ValidateOrders(data)
	if err != nil {
		return nil, fmt.Errorf("order payload validation failed: %w", err)
	}

	return orders, nil
}

// apiCarrierSource queries the carrier tracking API per shipment
type apiCarrierSource struct {
	httpClient httpclient.Client
	validator  SourceDataValidator
	endpoint   string
}

var _ CarrierSource = (*apiCarrierSource)(nil)

// NewAPICarrierSource creates a carrier tracking source backed by an HTTP
// endpoint. Every call is bounded by the given timeout.
func NewAPICarrierSource(endpoint string, timeout time.Duration) CarrierSource {
	return &apiCarrierSource{
		httpClient: httpclient.NewDefaultClient(timeout),
		validator:  NewSourceDataValidator(),
		endpoint:   strings.TrimSuffix(endpoint, "/"),
	}
}

// Track retrieves the current tracking state for one tracking number
func (s *apiCarrierSource) Track(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	if trackingNumber == "" {
		return nil, fmt.Errorf("tracking number cannot be empty")
	}

	trackURL := fmt.Sprintf("%s%s/%s", s.endpoint, trackPath, url.PathEscape(trackingNumber))

	data, err := s.httpClient.Get(ctx, trackURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracking state for %s: %w", trackingNumber, err)
	}

	info, err := s.validator.ValidateTracking(data)
	if err != nil {
		return nil, fmt.Errorf("tracking payload validation failed: %w", err)
	}

	return info, nil
}
