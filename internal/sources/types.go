package sources

import (
	"context"

	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
)

//go:generate mockgen -destination=mocks/mock_sources.go -package=mocks -source=types.go OrderSource,CarrierSource

// OrderSource lists shipments from the order-management system. The call is
// expensive and rate-limited; it is only ever made through the bulk sync gate.
type OrderSource interface {
	// FetchOrders retrieves the full order list from the upstream source
	FetchOrders(ctx context.Context) ([]Order, error)
}

// CarrierSource looks up live tracking state for a single shipment. The call
// is expensive and rate-limited; it is only ever made through the per-record
// freshness gate.
type CarrierSource interface {
	// Track retrieves the current tracking state for one tracking number
	Track(ctx context.Context, trackingNumber string) (*TrackingInfo, error)
}

// Order is one shipment row as returned by the order-management source.
type Order struct {
	OrderID        string `json:"orderId"`
	OrderNumber    string `json:"orderNumber"`
	TrackingNumber string `json:"trackingNumber"`
	CarrierCode    string `json:"carrierCode"`

	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	Items         string `json:"items"`
	ShipDate      string `json:"shipDate"`

	// Status is the order-level status string, passed through verbatim.
	Status string `json:"orderStatus"`

	// ShipmentCost and InsuranceCost are summed into the record's label cost.
	ShipmentCost  float64 `json:"shipmentCost"`
	InsuranceCost float64 `json:"insuranceCost"`
}

// ToRecord maps the upstream order onto a tracking record, bootstrapping the
// carrier and operator fields for a first insert. The merge-style upsert in
// the store keeps existing carrier and operator state on conflict, so the
// bootstrap values only ever land on new records.
func (o *Order) ToRecord(lastUpdated int64) tracking.Record {
	return tracking.Record{
		OrderID:        o.OrderID,
		OrderNumber:    o.OrderNumber,
		TrackingNumber: o.TrackingNumber,
		CarrierCode:    o.CarrierCode,
		CustomerName:   o.CustomerName,
		CustomerEmail:  o.CustomerEmail,
		Items:          o.Items,
		ShipDate:       o.ShipDate,
		Status:         o.Status,
		UPSStatus:      tracking.CarrierStatusPending,
		LabelCost:      o.ShipmentCost + o.InsuranceCost,
		LastUpdated:    lastUpdated,
		Delivered:      false,
		Flagged:        false,
	}
}

// TrackingInfo is the carrier source's view of a single shipment.
type TrackingInfo struct {
	TrackingNumber   string `json:"trackingNumber"`
	Status           string `json:"status"`
	Location         string `json:"location"`
	ExpectedDelivery string `json:"expectedDelivery"`
	Delivered        bool   `json:"delivered"`
	TrackingURL      string `json:"trackingUrl"`
}

// ToCarrierUpdate maps the carrier response onto the field set applied to
// every record sharing the tracking number.
func (t *TrackingInfo) ToCarrierUpdate(lastUpdated int64) tracking.CarrierUpdate {
	return tracking.CarrierUpdate{
		UPSStatus:        t.Status,
		Location:         t.Location,
		ExpectedDelivery: t.ExpectedDelivery,
		TrackingURL:      t.TrackingURL,
		Delivered:        t.Delivered,
		LastUpdated:      lastUpdated,
	}
}

// ToRecord builds a standalone record from the carrier response for ad-hoc
// lookups where no stored record matches the tracking number.
func (t *TrackingInfo) ToRecord(lastUpdated int64) tracking.Record {
	return tracking.Record{
		TrackingNumber:   t.TrackingNumber,
		UPSStatus:        t.Status,
		Location:         t.Location,
		ExpectedDelivery: t.ExpectedDelivery,
		TrackingURL:      t.TrackingURL,
		Delivered:        t.Delivered,
		LastUpdated:      lastUpdated,
	}
}
