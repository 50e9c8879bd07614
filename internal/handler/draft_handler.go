package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Paypay0in/my-trippie/internal/domain"
	"github.com/Paypay0in/my-trippie/internal/model"
	"github.com/Paypay0in/my-trippie/internal/service"
)

// DraftHandler handles HTTP requests against the active draft ledger
type DraftHandler struct {
	ledgerService service.LedgerService
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(ledgerService service.LedgerService) *DraftHandler {
	return &DraftHandler{
		ledgerService: ledgerService,
	}
}

func formatDraftResponse(draft domain.DraftState) model.DraftResponse {
	dates := draft.EffectiveDateRange(time.Now())
	return model.DraftResponse{
		Expenses:            draft.Expenses,
		Companions:          draft.Companions,
		ShoppingList:        draft.ShoppingList,
		TripStartDate:       draft.TripStartDate,
		TripEndDate:         draft.TripEndDate,
		TravelCountry:       draft.TravelCountry,
		TaxRule:             draft.TaxRule,
		DraftName:           draft.DraftName,
		CurrentLoadedTripID: draft.CurrentLoadedTripID,
		CurrentPhase:        draft.CurrentPhase,
		EffectiveStartDate:  dates.Start,
		EffectiveEndDate:    dates.End,
		HasUnsavedDraft:     len(draft.Expenses) > 0 && draft.CurrentLoadedTripID == "",
	}
}

// GetDraft handles the GET /v1/draft endpoint
// @Summary Get the active draft
// @Description Returns the full draft ledger snapshot including expenses, companions, shopping list and tax rule
// @Tags draft
// @Produce json
// @Success 200 {object} model.DraftResponse "Current draft state"
// @Router /v1/draft [get]
func (h *DraftHandler) GetDraft(c *gin.Context) {
	draft := h.ledgerService.Draft(c.Request.Context())
	respondOK(c, formatDraftResponse(draft))
}

// RenameDraft handles the PUT /v1/draft/name endpoint
// @Summary Rename the draft
// @Description Renames the working ledger; when an archived trip is loaded the rename lands on the shelf entry
// @Tags draft
// @Accept json
// @Produce json
// @Param request body model.NameRequest true "New name"
// @Success 200 {object} model.DraftResponse "Updated draft"
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Router /v1/draft/name [put]
func (h *DraftHandler) RenameDraft(c *gin.Context) {
	var req model.NameRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	if err := h.ledgerService.RenameDraft(c.Request.Context(), req.Name); err != nil {
		respondServiceError(c, "rename_draft", err)
		return
	}
	respondOK(c, formatDraftResponse(h.ledgerService.Draft(c.Request.Context())))
}

// SetCountry handles the PUT /v1/draft/country endpoint
// @Summary Set the travel country
// @Description Sets the draft's travel country and synchronously looks up its tax refund rules
// @Tags draft
// @Accept json
// @Produce json
// @Param request body model.CountryRequest true "Travel country, empty to clear"
// @Success 200 {object} model.DraftResponse "Updated draft"
// @Failure 422 {object} model.ErrorResponse "Tax rule lookup failed"
// @Router /v1/draft/country [put]
func (h *DraftHandler) SetCountry(c *gin.Context) {
	var req model.CountryRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	if _, err := h.ledgerService.SetCountry(c.Request.Context(), req.Country); err != nil {
		respondServiceError(c, "set_country", err)
		return
	}
	respondOK(c, formatDraftResponse(h.ledgerService.Draft(c.Request.Context())))
}

// SetDates handles the PUT /v1/draft/dates endpoint
// @Summary Set the travel dates
// @Description Sets the explicit travel window that overrides the expense-derived range
// @Tags draft
// @Accept json
// @Produce json
// @Param request body model.DatesRequest true "Start and end date, YYYY-MM-DD"
// @Success 200 {object} model.DraftResponse "Updated draft"
// @Router /v1/draft/dates [put]
func (h *DraftHandler) SetDates(c *gin.Context) {
	var req model.DatesRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	if err := h.ledgerService.SetTripDates(c.Request.Context(), req.StartDate, req.EndDate); err != nil {
		respondServiceError(c, "set_dates", err)
		return
	}
	respondOK(c, formatDraftResponse(h.ledgerService.Draft(c.Request.Context())))
}

// SetPhase handles the PUT /v1/draft/phase endpoint
// @Summary Switch the active phase
// @Tags draft
// @Accept json
// @Produce json
// @Param request body model.PhaseRequest true "Phase: pre, during, post or summary"
// @Success 200 {object} model.DraftResponse "Updated draft"
// @Failure 400 {object} model.ErrorResponse "Unknown phase"
// @Router /v1/draft/phase [put]
func (h *DraftHandler) SetPhase(c *gin.Context) {
	var req model.PhaseRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	if err := h.ledgerService.SetPhase(c.Request.Context(), req.Phase); err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("phase", "must be pre, during, post or summary"))
		return
	}
	respondOK(c, formatDraftResponse(h.ledgerService.Draft(c.Request.Context())))
}

// GetSummary handles the GET /v1/draft/summary endpoint
// @Summary Get draft totals and settlement
// @Description Aggregates home-currency totals by phase and category plus each person's paid/share/net position
// @Tags draft
// @Produce json
// @Success 200 {object} model.SummaryResponse "Aggregated totals"
// @Router /v1/draft/summary [get]
func (h *DraftHandler) GetSummary(c *gin.Context) {
	ctx := c.Request.Context()
	respondOK(c, model.SummaryResponse{
		Stats:      h.ledgerService.Summary(ctx),
		Settlement: h.ledgerService.Settlement(ctx),
	})
}

// ExportCSV handles the GET /v1/draft/export endpoint
// @Summary Export the draft as CSV
// @Description Downloads every draft expense as a BOM-prefixed UTF-8 CSV file
// @Tags draft
// @Produce text/csv
// @Success 200 {string} string "CSV document"
// @Router /v1/draft/export [get]
func (h *DraftHandler) ExportCSV(c *gin.Context) {
	filename, content := h.ledgerService.ExportCSV(c.Request.Context())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(StatusOK, "text/csv; charset=utf-8", content)
}

// AddExpense handles the POST /v1/draft/expenses endpoint
// @Summary Add an expense
// @Description Appends an expense to the draft; linkedItemId additionally marks that shopping-list item purchased
// @Tags expenses
// @Accept json
// @Produce json
// @Param request body model.AddExpenseRequest true "Expense payload"
// @Success 201 {object} domain.Expense "Created expense"
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Router /v1/draft/expenses [post]
func (h *DraftHandler) AddExpense(c *gin.Context) {
	var req model.AddExpenseRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	if req.Expense.Amount <= 0 {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("expense.amount", "must be positive"))
		return
	}
	expense, err := h.ledgerService.AddExpense(c.Request.Context(), req.Expense, req.LinkedItemID)
	if err != nil {
		respondServiceError(c, "add_expense", err)
		return
	}
	respondCreated(c, expense)
}

// UpdateExpense handles the PUT /v1/draft/expenses/{expenseId} endpoint
// @Summary Update an expense
// @Tags expenses
// @Accept json
// @Produce json
// @Param expenseId path string true "Expense ID"
// @Param request body domain.Expense true "Replacement expense"
// @Success 200 {object} domain.Expense "Updated expense"
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Failure 404 {object} model.ErrorResponse "Expense not found"
// @Router /v1/draft/expenses/{expenseId} [put]
func (h *DraftHandler) UpdateExpense(c *gin.Context) {
	id, err := getPathParam(c, "expenseId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	var expense domain.Expense
	if err := bindJSON(c, &expense); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	if expense.Amount <= 0 {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("amount", "must be positive"))
		return
	}
	updated, err := h.ledgerService.UpdateExpense(c.Request.Context(), id, expense)
	if err != nil {
		respondServiceError(c, "update_expense", err)
		return
	}
	respondOK(c, updated)
}

// DeleteExpense handles the DELETE /v1/draft/expenses/{expenseId} endpoint
// @Summary Delete an expense
// @Description Removes an expense; linked shopping items keep their purchased flag
// @Tags expenses
// @Param expenseId path string true "Expense ID"
// @Success 204 "Deleted"
// @Failure 404 {object} model.ErrorResponse "Expense not found"
// @Router /v1/draft/expenses/{expenseId} [delete]
func (h *DraftHandler) DeleteExpense(c *gin.Context) {
	id, err := getPathParam(c, "expenseId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if err := h.ledgerService.DeleteExpense(c.Request.Context(), id); err != nil {
		respondServiceError(c, "delete_expense", err)
		return
	}
	respondNoContent(c)
}

// AddCompanion handles the POST /v1/draft/companions endpoint
// @Summary Add a travel companion
// @Tags companions
// @Accept json
// @Produce json
// @Param request body model.CompanionRequest true "Companion name"
// @Success 201 {object} domain.Companion "Created companion"
// @Router /v1/draft/companions [post]
func (h *DraftHandler) AddCompanion(c *gin.Context) {
	var req model.CompanionRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	companion, err := h.ledgerService.AddCompanion(c.Request.Context(), req.Name)
	if err != nil {
		respondServiceError(c, "add_companion", err)
		return
	}
	respondCreated(c, companion)
}

// RemoveCompanion handles the DELETE /v1/draft/companions/{companionId} endpoint
// @Summary Remove a travel companion
// @Description Removes a companion; expenses referencing them keep the dangling id and export as unknown
// @Tags companions
// @Param companionId path string true "Companion ID"
// @Success 204 "Removed"
// @Router /v1/draft/companions/{companionId} [delete]
func (h *DraftHandler) RemoveCompanion(c *gin.Context) {
	id, err := getPathParam(c, "companionId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if err := h.ledgerService.RemoveCompanion(c.Request.Context(), id); err != nil {
		respondServiceError(c, "remove_companion", err)
		return
	}
	respondNoContent(c)
}

// AddShoppingItem handles the POST /v1/draft/shopping-items endpoint
// @Summary Add a shopping-list item
// @Tags shopping
// @Accept json
// @Produce json
// @Param request body model.ShoppingItemRequest true "Item name and optional phase"
// @Success 201 {object} domain.ShoppingItem "Created item"
// @Router /v1/draft/shopping-items [post]
func (h *DraftHandler) AddShoppingItem(c *gin.Context) {
	var req model.ShoppingItemRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	item, err := h.ledgerService.AddShoppingItem(c.Request.Context(), req.Name, req.Phase)
	if err != nil {
		respondServiceError(c, "add_shopping_item", err)
		return
	}
	respondCreated(c, item)
}

// RemoveShoppingItem handles the DELETE /v1/draft/shopping-items/{itemId} endpoint
// @Summary Remove a shopping-list item
// @Tags shopping
// @Param itemId path string true "Item ID"
// @Success 204 "Removed"
// @Router /v1/draft/shopping-items/{itemId} [delete]
func (h *DraftHandler) RemoveShoppingItem(c *gin.Context) {
	id, err := getPathParam(c, "itemId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if err := h.ledgerService.RemoveShoppingItem(c.Request.Context(), id); err != nil {
		respondServiceError(c, "remove_shopping_item", err)
		return
	}
	respondNoContent(c)
}

// ArchiveTrip handles the POST /v1/draft/archive endpoint
// @Summary Archive the draft
// @Description Freezes the draft into an immutable trip on the shelf and clears every draft field
// @Tags draft
// @Accept json
// @Produce json
// @Param request body model.ArchiveRequest true "Trip name and total cost"
// @Success 201 {object} model.TripSummaryResponse "Archived trip"
// @Failure 500 {object} model.ErrorResponse "Persistence failure, draft preserved"
// @Router /v1/draft/archive [post]
func (h *DraftHandler) ArchiveTrip(c *gin.Context) {
	var req model.ArchiveRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	trip, err := h.ledgerService.ArchiveTrip(c.Request.Context(), req.Name, req.TotalCost)
	if err != nil {
		respondServiceError(c, "archive_trip", err)
		return
	}
	respondCreated(c, formatTripSummary(trip))
}

// NewTrip handles the POST /v1/draft/new endpoint
// @Summary Start a new trip
// @Description Clears every draft field without archiving; rejects with 409 when unarchived expenses exist and confirmed is false
// @Tags draft
// @Accept json
// @Produce json
// @Param request body model.ConfirmRequest false "Confirmation flag"
// @Success 200 {object} model.DraftResponse "Reset draft"
// @Failure 409 {object} model.ErrorResponse "Unsaved draft, confirmation required"
// @Router /v1/draft/new [post]
func (h *DraftHandler) NewTrip(c *gin.Context) {
	var req model.ConfirmRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			respondBadRequest(c, ErrInvalidInput)
			return
		}
	}
	if err := h.ledgerService.NewTrip(c.Request.Context(), req.Confirmed); err != nil {
		respondServiceError(c, "new_trip", err)
		return
	}
	respondOK(c, formatDraftResponse(h.ledgerService.Draft(c.Request.Context())))
}
