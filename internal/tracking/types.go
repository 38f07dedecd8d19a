// Package tracking defines the order tracking domain model shared by the
// stores, sync gates, and service layers.
package tracking

// Upstream source identifiers used for sync metadata.
const (
	// SourceOrders is the order-management source synced in bulk.
	SourceOrders = "orders"

	// SourceCarrier is the carrier tracking source queried per shipment.
	SourceCarrier = "carrier"
)

// CarrierStatusPending is the bootstrap carrier status assigned to records
// created by a bulk sync before any carrier lookup has run.
const CarrierStatusPending = "Pending"

// Record is one order tracking record. OrderNumber is the unique, immutable
// key; all writes are upserts keyed on it.
type Record struct {
	OrderID        string `json:"orderId"`
	OrderNumber    string `json:"orderNumber"`
	TrackingNumber string `json:"trackingNumber"`
	CarrierCode    string `json:"carrierCode"`

	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	Items         string `json:"items"`
	ShipDate      string `json:"shipDate"`

	// Status is the order-level status supplied by the order source.
	Status string `json:"status"`

	// UPSStatus is the carrier-level status supplied by the carrier source,
	// together with the other carrier fields below.
	UPSStatus        string `json:"upsStatus"`
	Location         string `json:"location"`
	ExpectedDelivery string `json:"expectedDelivery"`
	TrackingURL      string `json:"trackingUrl"`

	// LabelCost is the shipment cost plus insurance cost from the order source.
	LabelCost float64 `json:"labelCost"`

	// LastUpdated is the epoch-millisecond timestamp of the last write. It is
	// non-decreasing for a given record.
	LastUpdated int64 `json:"lastUpdated"`

	// Delivered marks the terminal state. Once true the record is never
	// re-fetched from the carrier source.
	Delivered bool `json:"delivered"`

	// Flagged and Notes are operator metadata. Flagged is never cleared
	// automatically.
	Flagged bool   `json:"flagged"`
	Notes   string `json:"notes"`
}

// SyncMeta records the last successful bulk sync for one upstream source.
// It is created on the first successful sync and updated only after a sync
// completes without error.
type SyncMeta struct {
	Source   string `json:"source"`
	LastSync int64  `json:"lastSync"`
}

// Annotation holds operator-entered flag and notes for a tracking number.
// Annotations have a lifecycle independent of records: one may exist before,
// after, or without a matching record.
type Annotation struct {
	TrackingNumber string `json:"trackingNumber"`
	Flagged        bool   `json:"flagged"`
	Notes          string `json:"notes"`
	UpdatedAt      int64  `json:"updatedAt"`
}

// CarrierUpdate is the field set produced by one carrier lookup. It is
// applied to every record sharing the tracking number.
type CarrierUpdate struct {
	UPSStatus        string
	Location         string
	ExpectedDelivery string
	TrackingURL      string
	Delivered        bool
	LastUpdated      int64
}

// ApplyCarrierUpdate overlays carrier fields onto the record. Order-level
// fields are untouched.
func (r *Record) ApplyCarrierUpdate(u CarrierUpdate) {
	r.UPSStatus = u.UPSStatus
	r.Location = u.Location
	r.ExpectedDelivery = u.ExpectedDelivery
	r.TrackingURL = u.TrackingURL
	r.Delivered = u.Delivered
	r.LastUpdated = u.LastUpdated
}

// MergeAnnotation overlays operator metadata onto the record. The record's
// own values win when it carries any (flagged set or non-empty notes);
// otherwise the annotation's values are used.
func (r *Record) MergeAnnotation(a *Annotation) {
	if r.Flagged || r.Notes != "" {
		return
	}
	if a == nil {
		return
	}
	r.Flagged = a.Flagged
	r.Notes = a.Notes
}
