package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Paypay0in/my-trippie/internal/domain"
	"github.com/Paypay0in/my-trippie/internal/model"
	"github.com/Paypay0in/my-trippie/internal/service"
)

// TripHandler handles HTTP requests for the archived trip shelf
type TripHandler struct {
	ledgerService service.LedgerService
}

// NewTripHandler creates a new trip handler
func NewTripHandler(ledgerService service.LedgerService) *TripHandler {
	return &TripHandler{
		ledgerService: ledgerService,
	}
}

func formatTripSummary(trip domain.Trip) model.TripSummaryResponse {
	return model.TripSummaryResponse{
		ID:           trip.ID,
		Name:         trip.Name,
		StartDate:    trip.StartDate,
		EndDate:      trip.EndDate,
		TotalCost:    trip.TotalCost,
		ExpenseCount: len(trip.Expenses),
		ArchivedAt:   trip.ArchivedAt,
		TaxRule:      trip.TaxRule,
	}
}

// ListTrips handles the GET /v1/trips endpoint
// @Summary List archived trips
// @Description Returns the trip shelf, most recently archived first
// @Tags trips
// @Produce json
// @Success 200 {array} model.TripSummaryResponse "Archived trips"
// @Router /v1/trips [get]
func (h *TripHandler) ListTrips(c *gin.Context) {
	history := h.ledgerService.History(c.Request.Context())
	summaries := make([]model.TripSummaryResponse, 0, len(history))
	for _, trip := range history {
		summaries = append(summaries, formatTripSummary(trip))
	}
	respondOK(c, summaries)
}

// GetTrip handles the GET /v1/trips/{tripId} endpoint
// @Summary Get one archived trip
// @Description Returns the full archived trip including its expenses
// @Tags trips
// @Produce json
// @Param tripId path string true "Trip ID"
// @Success 200 {object} domain.Trip "Archived trip"
// @Failure 404 {object} model.ErrorResponse "Trip not found"
// @Router /v1/trips/{tripId} [get]
func (h *TripHandler) GetTrip(c *gin.Context) {
	id, err := getPathParam(c, "tripId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	for _, trip := range h.ledgerService.History(c.Request.Context()) {
		if trip.ID == id {
			respondOK(c, trip)
			return
		}
	}
	respondNotFound(c, ErrResourceNotFound)
}

// RestoreTrip handles the POST /v1/trips/{tripId}/restore endpoint
// @Summary Reopen an archived trip
// @Description Copies the trip back into the draft for editing; the shelf entry itself stays immutable
// @Tags trips
// @Accept json
// @Produce json
// @Param tripId path string true "Trip ID"
// @Param request body model.ConfirmRequest false "Confirmation flag"
// @Success 200 {object} model.DraftResponse "Draft loaded from the trip"
// @Failure 404 {object} model.ErrorResponse "Trip not found"
// @Failure 409 {object} model.ErrorResponse "Unsaved draft, confirmation required"
// @Router /v1/trips/{tripId}/restore [post]
func (h *TripHandler) RestoreTrip(c *gin.Context) {
	id, err := getPathParam(c, "tripId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	var req model.ConfirmRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			respondBadRequest(c, ErrInvalidInput)
			return
		}
	}
	if err := h.ledgerService.RestoreTrip(c.Request.Context(), id, req.Confirmed); err != nil {
		respondServiceError(c, "restore_trip", err)
		return
	}
	respondOK(c, formatDraftResponse(h.ledgerService.Draft(c.Request.Context())))
}

// RenameTrip handles the PUT /v1/trips/{tripId}/name endpoint
// @Summary Rename an archived trip
// @Tags trips
// @Accept json
// @Produce json
// @Param tripId path string true "Trip ID"
// @Param request body model.NameRequest true "New name"
// @Success 200 {object} model.TripSummaryResponse "Renamed trip"
// @Failure 404 {object} model.ErrorResponse "Trip not found"
// @Router /v1/trips/{tripId}/name [put]
func (h *TripHandler) RenameTrip(c *gin.Context) {
	id, err := getPathParam(c, "tripId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	var req model.NameRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	if err := h.ledgerService.RenameArchivedTrip(c.Request.Context(), id, req.Name); err != nil {
		respondServiceError(c, "rename_trip", err)
		return
	}
	for _, trip := range h.ledgerService.History(c.Request.Context()) {
		if trip.ID == id {
			respondOK(c, formatTripSummary(trip))
			return
		}
	}
	respondNotFound(c, ErrResourceNotFound)
}

// DeleteTrip handles the DELETE /v1/trips/{tripId} endpoint
// @Summary Delete an archived trip
// @Description Permanently removes a trip from the shelf
// @Tags trips
// @Param tripId path string true "Trip ID"
// @Success 204 "Deleted"
// @Failure 404 {object} model.ErrorResponse "Trip not found"
// @Router /v1/trips/{tripId} [delete]
func (h *TripHandler) DeleteTrip(c *gin.Context) {
	id, err := getPathParam(c, "tripId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if err := h.ledgerService.DeleteTrip(c.Request.Context(), id); err != nil {
		respondServiceError(c, "delete_trip", err)
		return
	}
	respondNoContent(c)
}
