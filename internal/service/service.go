// Package service provides the business logic for the tracking API
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
)

var (
	// ErrRecordNotFound is returned when no record matches the order number
	ErrRecordNotFound = errors.New("record not found")
	// ErrValidation is returned when request parameters are rejected
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable is returned when the record store cannot serve the request
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrUpstreamUnavailable is returned when an upstream source call fails
	ErrUpstreamUnavailable = errors.New("upstream source unavailable")
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go TrackingService

// Page is one page of tracking records with pagination metadata. Data is
// always non-nil.
type Page struct {
	Data       []tracking.Record `json:"data"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	LastSync   int64             `json:"lastSync"`
}

// FlagResult reports the flag state after a SetFlag operation.
type FlagResult struct {
	OrderNumber    string `json:"orderNumber"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	Flagged        bool   `json:"flagged"`
}

// TrackingService defines the list, aggregation and flag operations over
// tracking records
type TrackingService interface {
	// CheckReadiness checks if the service can reach its store
	CheckReadiness(ctx context.Context) error

	// GetPage returns one page of records ordered by lastUpdated descending
	GetPage(ctx context.Context, opts ...Option[PageOptions]) (*Page, error)

	// GetIssues returns the unpaginated attention view: every flagged record
	// plus recent records whose status matches the error vocabulary, flagged
	// records first
	GetIssues(ctx context.Context) (*Page, error)

	// SetFlag sets or clears the operator flag for an order
	SetFlag(ctx context.Context, opts ...Option[SetFlagOptions]) (*FlagResult, error)
}

// Option is a function that sets an option for the GetPage or SetFlag
// operation
type Option[T PageOptions | SetFlagOptions] func(*T) error

// PageOptions is the options for the GetPage operation
type PageOptions struct {
	Page            int
	Limit           int
	Status          string
	RequireTracking bool
}

// SetFlagOptions is the options for the SetFlag operation
type SetFlagOptions struct {
	OrderNumber    string
	TrackingNumber string
	Flagged        bool
}

// WithPage sets the page number for the GetPage operation
func WithPage(page int) Option[PageOptions] {
	return func(o *PageOptions) error {
		if page < 1 {
			return fmt.Errorf("%w: invalid page: %d", ErrValidation, page)
		}
		o.Page = page
		return nil
	}
}

// WithLimit sets the page size for the GetPage operation
func WithLimit(limit int) Option[PageOptions] {
	return func(o *PageOptions) error {
		if limit < 1 {
			return fmt.Errorf("%w: invalid limit: %d", ErrValidation, limit)
		}
		o.Limit = limit
		return nil
	}
}

// WithStatus sets the status filter for the GetPage operation. Matching is a
// case-insensitive substring test against the effective status.
func WithStatus(status string) Option[PageOptions] {
	return func(o *PageOptions) error {
		if status == "" {
			return fmt.Errorf("%w: invalid status filter", ErrValidation)
		}
		o.Status = status
		return nil
	}
}

// WithTrackingOnly restricts the GetPage operation to records with a
// non-empty tracking number
func WithTrackingOnly() Option[PageOptions] {
	return func(o *PageOptions) error {
		o.RequireTracking = true
		return nil
	}
}

// WithOrderNumber sets the order number for the SetFlag operation
func WithOrderNumber(orderNumber string) Option[SetFlagOptions] {
	return func(o *SetFlagOptions) error {
		if orderNumber == "" {
			return fmt.Errorf("%w: order number is required", ErrValidation)
		}
		o.OrderNumber = orderNumber
		return nil
	}
}

// WithTrackingNumber sets the tracking number for the SetFlag operation,
// enabling the annotation mirror write
func WithTrackingNumber(trackingNumber string) Option[SetFlagOptions] {
	return func(o *SetFlagOptions) error {
		if trackingNumber == "" {
			return fmt.Errorf("%w: tracking number cannot be empty", ErrValidation)
		}
		o.TrackingNumber = trackingNumber
		return nil
	}
}

// WithFlagged sets the flag value for the SetFlag operation
func WithFlagged(flagged bool) Option[SetFlagOptions] {
	return func(o *SetFlagOptions) error {
		o.Flagged = flagged
		return nil
	}
}
