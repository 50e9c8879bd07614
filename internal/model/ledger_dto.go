package model

import "github.com/Paypay0in/my-trippie/internal/domain"

// DraftResponse is the full draft snapshot the UI renders from.
type DraftResponse struct {
	Expenses            []domain.Expense      `json:"expenses"`
	Companions          []domain.Companion    `json:"companions"`
	ShoppingList        []domain.ShoppingItem `json:"shoppingList"`
	TripStartDate       string                `json:"tripStartDate"`
	TripEndDate         string                `json:"tripEndDate"`
	TravelCountry       string                `json:"travelCountry"`
	TaxRule             *domain.TaxRule       `json:"taxRule,omitempty"`
	DraftName           string                `json:"draftName"`
	CurrentLoadedTripID string                `json:"currentLoadedTripId,omitempty"`
	CurrentPhase        domain.Phase          `json:"currentPhase"`
	EffectiveStartDate  string                `json:"effectiveStartDate"`
	EffectiveEndDate    string                `json:"effectiveEndDate"`
	HasUnsavedDraft     bool                  `json:"hasUnsavedDraft"`
}

// TripSummaryResponse is one shelf entry in the trip history list.
type TripSummaryResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	StartDate    string          `json:"startDate"`
	EndDate      string          `json:"endDate"`
	TotalCost    float64         `json:"totalCost"`
	ExpenseCount int             `json:"expenseCount"`
	ArchivedAt   string          `json:"archivedAt"`
	TaxRule      *domain.TaxRule `json:"taxRule,omitempty"`
}

// SummaryResponse bundles aggregate totals with per-person settlement.
type SummaryResponse struct {
	Stats      domain.SummaryStats      `json:"stats"`
	Settlement []domain.SettlementShare `json:"settlement"`
}

// AddExpenseRequest creates an expense; LinkedItemID optionally marks a
// shopping-list item as purchased in the same operation.
type AddExpenseRequest struct {
	Expense      domain.Expense `json:"expense"`
	LinkedItemID string         `json:"linkedItemId,omitempty"`
}

// NameRequest carries a rename payload.
type NameRequest struct {
	Name string `json:"name" binding:"required"`
}

// CountryRequest sets the draft's travel country; empty clears it.
type CountryRequest struct {
	Country string `json:"country"`
}

// DatesRequest sets the explicit travel window.
type DatesRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// PhaseRequest switches the active phase tab.
type PhaseRequest struct {
	Phase domain.Phase `json:"phase" binding:"required"`
}

// CompanionRequest adds a travel partner.
type CompanionRequest struct {
	Name string `json:"name" binding:"required"`
}

// ShoppingItemRequest adds a to-buy entry; Phase defaults to the
// draft's current phase when omitted.
type ShoppingItemRequest struct {
	Name  string       `json:"name" binding:"required"`
	Phase domain.Phase `json:"phase,omitempty"`
}

// ArchiveRequest freezes the draft onto the shelf.
type ArchiveRequest struct {
	Name      string  `json:"name" binding:"required"`
	TotalCost float64 `json:"totalCost"`
}

// ConfirmRequest acknowledges a destructive-transition warning.
type ConfirmRequest struct {
	Confirmed bool `json:"confirmed"`
}

// ParseTextRequest submits a free-form expense sentence for extraction.
type ParseTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
