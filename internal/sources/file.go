package sources

import (
	"context"
	"fmt"
	"os"
)

// fileOrderSource reads the order list from a local JSON file. It exists for
// fixture-driven development and air-gapped deployments; payloads go through
// the same validation path as the API source.
type fileOrderSource struct {
	validator SourceDataValidator
	path      string
}

var _ OrderSource = (*fileOrderSource)(nil)

// NewFileOrderSource creates an order source backed by a local file
func NewFileOrderSource(path string) OrderSource {
	return &fileOrderSource{
		validator: NewSourceDataValidator(),
		path:      path,
	}
}

// FetchOrders reads and validates the order list from the local file
func (s *fileOrderSource) FetchOrders(_ context.Context) ([]Order, error) {
	if s.path == "" {
		return nil, fmt.Errorf("orders file path cannot be empty")
	}

	//nolint:gosec // File path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("orders file not found: %s", s.path)
		}
		return nil, fmt.Errorf("failed to read orders file %s: %w", s.path, err)
	}

	orders, err := s.validator.ValidateOrders(data)
	if err != nil {
		return nil, fmt.Errorf("order payload validation failed: %w", err)
	}

	return orders, nil
}
