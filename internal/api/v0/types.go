package v0

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the version information response
type VersionResponse struct {
	Version   string `json:"version" example:"v0.1.0"`
	Commit    string `json:"commit" example:"abc123def"`
	BuildDate string `json:"build_date" example:"2025-01-15T10:30:00Z"`
	GoVersion string `json:"go_version" example:"go1.24.0"`
	Platform  string `json:"platform" example:"linux/amd64"`
}

// SingleTrackingRequest asks for a tracking refresh of one shipment
type SingleTrackingRequest struct {
	TrackingNumber string `json:"trackingNumber"`
}

// FlagRequest sets or clears the operator flag for an order
type FlagRequest struct {
	OrderNumber    string `json:"orderNumber"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	Flagged        bool   `json:"flagged"`
}

// FlagResponse reports the flag state after a flag update
type FlagResponse struct {
	Success bool `json:"success"`
	Flagged bool `json:"flagged"`
}

// SyncTriggeredResponse reports a completed bulk order sync
type SyncTriggeredResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// SyncSkippedResponse reports a bulk sync suppressed by the cooldown gate
type SyncSkippedResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	NextSyncIn int    `json:"nextSyncIn"`
}
