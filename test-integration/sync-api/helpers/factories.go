package helpers

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/onsi/gomega"

	"github.com/trackhouse/trackhouse-sync-server/internal/sources"
)

// Tracking numbers shared by the seed fixture. TrackingNumberShared is on two
// orders so carrier refreshes fan out across both.
const (
	TrackingNumberShared = "1Z999AA10123456784"
	TrackingNumberSingle = "1Z999AA10198765432"
)

// OrderListPayload mirrors the order source list envelope
type OrderListPayload struct {
	Orders []sources.Order `json:"orders"`
	Total  int             `json:"total"`
}

// CreateSeedOrders returns the baseline order fixture used across the suite:
// two orders sharing a tracking number, one with its own, and one not yet
// shipped.
func CreateSeedOrders() []sources.Order {
	return []sources.Order{
		{
			OrderID:        "1001",
			OrderNumber:    "ORD-1001",
			TrackingNumber: TrackingNumberShared,
			CarrierCode:    "ups",
			CustomerName:   "Ada Mendez",
			CustomerEmail:  "ada@example.com",
			Items:          "2x Shelf Bracket",
			ShipDate:       "2025-01-10",
			Status:         "shipped",
			ShipmentCost:   7.5,
			InsuranceCost:  1.25,
		},
		{
			OrderID:        "1002",
			OrderNumber:    "ORD-1002",
			TrackingNumber: TrackingNumberShared,
			CarrierCode:    "ups",
			CustomerName:   "Ada Mendez",
			CustomerEmail:  "ada@example.com",
			Items:          "1x Wall Anchor Pack",
			ShipDate:       "2025-01-10",
			Status:         "shipped",
		},
		{
			OrderID:        "1003",
			OrderNumber:    "ORD-1003",
			TrackingNumber: TrackingNumberSingle,
			CarrierCode:    "ups",
			CustomerName:   "Noor Haddad",
			CustomerEmail:  "noor@example.com",
			Items:          "1x Standing Desk",
			ShipDate:       "2025-01-12",
			Status:         "shipped",
			ShipmentCost:   32.0,
			InsuranceCost:  4.0,
		},
		{
			OrderID:       "1004",
			OrderNumber:   "ORD-1004",
			CustomerName:  "Priya Nair",
			CustomerEmail: "priya@example.com",
			Items:         "3x Cable Tray",
			ShipDate:      "2025-01-13",
			Status:        "awaiting_shipment",
		},
	}
}

// WriteOrdersFile writes an order list payload to orders.json in dir and
// returns its path
func WriteOrdersFile(dir string, orders []sources.Order) string {
	payload := OrderListPayload{Orders: orders, Total: len(orders)}
	data, err := json.MarshalIndent(payload, "", "  ")
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	path := filepath.Join(dir, "orders.json")
	err = os.WriteFile(path, data, 0600)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return path
}

// InTransitInfo builds a carrier response for an in-transit shipment
func InTransitInfo(trackingNumber, location string) sources.TrackingInfo {
	return sources.TrackingInfo{
		TrackingNumber:   trackingNumber,
		Status:           "In Transit",
		Location:         location,
		ExpectedDelivery: "2025-01-18",
		Delivered:        false,
		TrackingURL:      "https://carrier.example.com/track/" + trackingNumber,
	}
}

// DeliveredInfo builds a carrier response for a delivered shipment
func DeliveredInfo(trackingNumber string) sources.TrackingInfo {
	return sources.TrackingInfo{
		TrackingNumber:   trackingNumber,
		Status:           "Delivered",
		Location:         "Front Door",
		ExpectedDelivery: "2025-01-16",
		Delivered:        true,
		TrackingURL:      "https://carrier.example.com/track/" + trackingNumber,
	}
}

// ExceptionInfo builds a carrier response for a shipment stuck in an
// exception state
func ExceptionInfo(trackingNumber string) sources.TrackingInfo {
	return sources.TrackingInfo{
		TrackingNumber:   trackingNumber,
		Status:           "Exception: delivery attempt failed",
		Location:         "Local Depot",
		ExpectedDelivery: "2025-01-20",
		Delivered:        false,
		TrackingURL:      "https://carrier.example.com/track/" + trackingNumber,
	}
}
