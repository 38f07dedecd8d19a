package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/trackhouse/trackhouse-sync-server/internal/sources"
)

// CarrierMock is a mutable fake of the carrier tracking API. Responses can be
// swapped while the server is running to simulate carrier-side progress.
type CarrierMock struct {
	mu        sync.Mutex
	server    *httptest.Server
	responses map[string]sources.TrackingInfo
	calls     map[string]int
}

// NewCarrierMock starts a carrier API fake with the given initial responses.
// Unknown tracking numbers return 404.
func NewCarrierMock(initial map[string]sources.TrackingInfo) *CarrierMock {
	m := &CarrierMock{
		responses: map[string]sources.TrackingInfo{},
		calls:     map[string]int{},
	}
	for trackingNumber, info := range initial {
		m.responses[trackingNumber] = info
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

func (m *CarrierMock) handle(w http.ResponseWriter, r *http.Request) {
	trackingNumber := strings.TrimPrefix(r.URL.Path, "/track/")

	m.mu.Lock()
	info, ok := m.responses[trackingNumber]
	m.calls[trackingNumber]++
	m.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(info)
}

// SetTracking replaces the canned response for one tracking number
func (m *CarrierMock) SetTracking(trackingNumber string, info sources.TrackingInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[trackingNumber] = info
}

// Calls returns how many times a tracking number has been requested
func (m *CarrierMock) Calls(trackingNumber string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[trackingNumber]
}

// URL returns the fake's base URL
func (m *CarrierMock) URL() string {
	return m.server.URL
}

// Close shuts the fake down
func (m *CarrierMock) Close() {
	m.server.Close()
}

// OrdersMock is a mutable fake of the order-management API. The order list
// can be swapped while the server is running to simulate upstream changes.
type OrdersMock struct {
	mu      sync.Mutex
	server  *httptest.Server
	orders  []sources.Order
	failing bool
}

// NewOrdersMock starts an order API fake serving the given order list
func NewOrdersMock(orders []sources.Order) *OrdersMock {
	m := &OrdersMock{orders: orders}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

func (m *OrdersMock) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/orders" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	m.mu.Lock()
	failing := m.failing
	payload := OrderListPayload{Orders: m.orders, Total: len(m.orders)}
	m.mu.Unlock()

	if failing {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}

// SetOrders replaces the served order list
func (m *OrdersMock) SetOrders(orders []sources.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = orders
}

// SetFailing toggles 500 responses for every request
func (m *OrdersMock) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// URL returns the fake's base URL
func (m *OrdersMock) URL() string {
	return m.server.URL
}

// Close shuts the fake down
func (m *OrdersMock) Close() {
	m.server.Close()
}
