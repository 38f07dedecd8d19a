// Package v0 provides the REST API handlers for the tracking sync server.
package v0

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trackhouse/trackhouse-sync-server/internal/annotations"
	"github.com/trackhouse/trackhouse-sync-server/internal/service"
	"github.com/trackhouse/trackhouse-sync-server/internal/sync"
)

// statusIssues is the reserved status filter that redirects a list request
// to the issues view.
const statusIssues = "Issues"

// Routes defines the routes for the tracking API with dependency injection
type Routes struct {
	service service.TrackingService
	manager sync.Manager
	hub     annotations.Hub
}

// NewRoutes creates a new Routes instance with the provided dependencies
func NewRoutes(svc service.TrackingService, manager sync.Manager, hub annotations.Hub) *Routes {
	return &Routes{
		service: svc,
		manager: manager,
		hub:     hub,
	}
}

// Router creates a new router for the tracking API
func Router(svc service.TrackingService, manager sync.Manager, hub annotations.Hub) http.Handler {
	routes := NewRoutes(svc, manager, hub)

	r := chi.NewRouter()

	// Record queries
	r.Get("/orders", routes.listOrders)
	r.Get("/tracking", routes.listTracking)

	// Sync triggers
	r.Post("/sync/orders", routes.triggerOrderSync)
	r.Post("/tracking/single", routes.refreshTracking)

	// Operator metadata
	r.Post("/flag", routes.setFlag)
	r.Get("/annotations/subscribe", routes.subscribeAnnotations)

	// System
	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// listOrders handles GET /orders
//
// @Summary		List order tracking records
// @Description	Get one page of tracking records, newest first. The reserved
// @Description	status filter "Issues" returns the attention view instead.
// @Tags			tracking
// @Produce		json
// @Param			page	query		int		false	"Page number (1-based)"
// @Param			limit	query		int		false	"Page size"
// @Param			status	query		string	false	"Status substring filter, or \"Issues\""
// @Success		200		{object}	service.Page
// @Failure		400		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/orders [get]
func (rr *Routes) listOrders(w http.ResponseWriter, r *http.Request) {
	rr.handleList(w, r, false)
}

// listTracking handles GET /tracking
//
// @Summary		List shipped records
// @Description	Same as /orders but restricted to records that already have a
// @Description	tracking number.
// @Tags			tracking
// @Produce		json
// @Param			page	query		int		false	"Page number (1-based)"
// @Param			limit	query		int		false	"Page size"
// @Param			status	query		string	false	"Status substring filter, or \"Issues\""
// @Success		200		{object}	service.Page
// @Failure		400		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/tracking [get]
func (rr *Routes) listTracking(w http.ResponseWriter, r *http.Request) {
	rr.handleList(w, r, true)
}

// handleList is the shared list handler behind /orders and /tracking.
func (rr *Routes) handleList(w http.ResponseWriter, r *http.Request, trackingOnly bool) {
	query := r.URL.Query()

	// The issues view ignores pagination parameters and returns the whole
	// attention set in one page.
	status := query.Get("status")
	if strings.EqualFold(status, statusIssues) {
		page, err := rr.service.GetIssues(r.Context())
		if err != nil {
			rr.writeServiceError(w, r, err)
			return
		}
		rr.writeJSONResponse(w, page)
		return
	}

	opts := []service.Option[service.PageOptions]{}
	if pageStr := query.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			rr.writeErrorResponse(w, "Invalid page parameter: must be an integer", http.StatusBadRequest)
			return
		}
		opts = append(opts, service.WithPage(page))
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			rr.writeErrorResponse(w, "Invalid limit parameter: must be an integer", http.StatusBadRequest)
			return
		}
		opts = append(opts, service.WithLimit(limit))
	}
	if status != "" {
		opts = append(opts, service.WithStatus(status))
	}
	if trackingOnly {
		opts = append(opts, service.WithTrackingOnly())
	}

	page, err := rr.service.GetPage(r.Context(), opts...)
	if err != nil {
		rr.writeServiceError(w, r, err)
		return
	}

	rr.writeJSONResponse(w, page)
}

// triggerOrderSync handles POST /sync/orders
//
// @Summary		Trigger a bulk order sync
// @Description	Refresh the full order list from the order source unless the
// @Description	sync cooldown is still running.
// @Tags			sync
// @Produce		json
// @Success		200	{object}	SyncTriggeredResponse
// @Failure		500	{object}	ErrorResponse
// @Failure		502	{object}	ErrorResponse
// @Router			/sync/orders [post]
func (rr *Routes) triggerOrderSync(w http.ResponseWriter, r *http.Request) {
	result, syncErr := rr.manager.RequestBulkSync(r.Context())
	if syncErr != nil {
		rr.writeSyncError(w, r, syncErr)
		return
	}

	if result.Skipped() {
		rr.writeJSONResponse(w, SyncSkippedResponse{
			Success:    false,
			Message:    fmt.Sprintf("Sync not allowed yet. Next sync available in %d minutes.", result.NextSyncIn),
			NextSyncIn: result.NextSyncIn,
		})
		return
	}

	rr.writeJSONResponse(w, SyncTriggeredResponse{
		Success: true,
		Count:   result.RecordsWritten,
	})
}

// refreshTracking handles POST /tracking/single
//
// @Summary		Refresh one shipment
// @Description	Return tracking state for a single tracking number, from cache
// @Description	when the record is delivered or fresh, from the carrier source
// @Description	otherwise.
// @Tags			sync
// @Accept			json
// @Produce		json
// @Param			request	body		SingleTrackingRequest	true	"Tracking number to refresh"
// @Success		200		{object}	tracking.Record
// @Failure		400		{object}	ErrorResponse
// @Failure		502		{object}	ErrorResponse
// @Router			/tracking/single [post]
func (rr *Routes) refreshTracking(w http.ResponseWriter, r *http.Request) {
	var req SingleTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rr.writeErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.TrackingNumber) == "" {
		rr.writeErrorResponse(w, "Tracking number is required", http.StatusBadRequest)
		return
	}

	record, syncErr := rr.manager.RefreshTracking(r.Context(), req.TrackingNumber)
	if syncErr != nil {
		rr.writeSyncError(w, r, syncErr)
		return
	}

	rr.writeJSONResponse(w, record)
}

// setFlag handles POST /flag
//
// @Summary		Set or clear an operator flag
// @Description	Update the flag on a record, mirror it to the annotation store
// @Description	when a tracking number is given, and publish the change to
// @Description	websocket subscribers.
// @Tags			tracking
// @Accept			json
// @Produce		json
// @Param			request	body		FlagRequest	true	"Flag update"
// @Success		200		{object}	FlagResponse
// @Failure		400		{object}	ErrorResponse
// @Failure		404		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/flag [post]
func (rr *Routes) setFlag(w http.ResponseWriter, r *http.Request) {
	var req FlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rr.writeErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.OrderNumber) == "" {
		rr.writeErrorResponse(w, "Order number is required", http.StatusBadRequest)
		return
	}

	opts := []service.Option[service.SetFlagOptions]{
		service.WithOrderNumber(req.OrderNumber),
		service.WithFlagged(req.Flagged),
	}
	if req.TrackingNumber != "" {
		opts = append(opts, service.WithTrackingNumber(req.TrackingNumber))
	}

	result, err := rr.service.SetFlag(r.Context(), opts...)
	if err != nil {
		rr.writeServiceError(w, r, err)
		return
	}

	rr.writeJSONResponse(w, FlagResponse{
		Success: true,
		Flagged: result.Flagged,
	})
}

// writeServiceError maps service errors onto HTTP status codes
func (rr *Routes) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		rr.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrRecordNotFound):
		rr.writeErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrUpstreamUnavailable):
		rr.writeErrorResponse(w, err.Error(), http.StatusBadGateway)
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err)
		rr.writeErrorResponse(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeSyncError maps structured sync errors onto HTTP status codes
func (rr *Routes) writeSyncError(w http.ResponseWriter, r *http.Request, syncErr *sync.Error) {
	switch syncErr.Reason {
	case sync.ReasonValidationFailed:
		rr.writeErrorResponse(w, syncErr.Message, http.StatusBadRequest)
	case sync.ReasonFetchFailed:
		rr.writeErrorResponse(w, syncErr.Message, http.StatusBadGateway)
	default:
		slog.ErrorContext(r.Context(), "Sync request failed",
			"reason", syncErr.Reason,
			"error", syncErr)
		rr.writeErrorResponse(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSONResponse writes a JSON response with the given data
func (*Routes) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes a standardized error response
func (*Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	errorResp := ErrorResponse{
		Error: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
