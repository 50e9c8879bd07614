package service

import (
	"context"

	"github.com/Paypay0in/my-trippie/internal/domain"
	"github.com/Paypay0in/my-trippie/internal/gemini"
	"github.com/Paypay0in/my-trippie/internal/migration"
	"github.com/Paypay0in/my-trippie/internal/repository"
)

// ScanScenario names the routing branch a smart scan took.
type ScanScenario string

const (
	// ScanRestoredTrip means the receipt date matched an archived trip,
	// which was reopened with the new expense appended.
	ScanRestoredTrip ScanScenario = "restored_trip"
	// ScanAppendedDraft means the expense joined the already-open draft.
	ScanAppendedDraft ScanScenario = "appended_draft"
	// ScanNewDraft means a fresh draft was created around the expense.
	ScanNewDraft ScanScenario = "new_draft"
)

// ScanOutcome reports where a smart-scanned expense landed.
type ScanOutcome struct {
	Scenario        ScanScenario   `json:"scenario"`
	Expense         domain.Expense `json:"expense"`
	MatchedTripID   string         `json:"matchedTripId,omitempty"`
	MatchedTripName string         `json:"matchedTripName,omitempty"`
	DetectedCountry string         `json:"detectedCountry,omitempty"`
}

// SmartScanImage extracts an expense from a receipt image and routes it
// by date: into a matching archived trip (reopening it), into the open
// draft, or into a brand-new draft. Precedence is fixed in that order.
func (s *LedgerServiceImpl) SmartScanImage(ctx context.Context, image []byte, mimeType string) (*ScanOutcome, error) {
	// Extraction runs outside the lock; only routing mutates state.
	result, err := s.extractor.ExtractFromImage(ctx, image, mimeType)
	if err != nil {
		return nil, &LedgerServiceError{Op: "extract_image", Err: err}
	}
	if result == nil || result.Amount == 0 {
		return nil, ErrExtractionFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	currency := result.Currency
	if currency == "" {
		currency = domain.HomeCurrency
	}
	category := domain.ParseCategory(result.Category)
	payment := domain.ParsePaymentMethod(result.PaymentMethod)
	date := result.Date
	if date == "" {
		date = s.now().Format("2006-01-02")
	}
	phase := domain.PhaseForCategory(category)
	description := result.Description
	if description == "" {
		description = "智慧匯入項目"
	}

	build := func(rate float64, beneficiaries []string) domain.Expense {
		return domain.NewExpense(domain.Expense{
			Description:   description,
			Amount:        result.Amount,
			Currency:      currency,
			ExchangeRate:  rate,
			Category:      category,
			PaymentMethod: payment,
			Phase:         phase,
			Date:          date,
			PayerID:       domain.SelfID,
			Beneficiaries: beneficiaries,
			SplitMethod:   domain.SplitEqual,
			NeedsReview:   result.IsUncertain,
		})
	}

	// Branch 1: the receipt date falls inside an archived trip's window.
	// Only trips that actually carry expenses participate in matching.
	for i := range s.history {
		trip := s.history[i]
		if len(trip.Expenses) == 0 || !trip.ContainsDate(date) {
			continue
		}

		archived := migration.MigrateExpenses(copyExpenses(trip.Expenses))
		rate := RateForAutoSave(currency, payment, archived)
		expense := build(rate, []string{domain.SelfID})

		if err := s.loadTripIntoDraftLocked(ctx, trip, []domain.Expense{expense}); err != nil {
			return nil, err
		}
		s.draft.CurrentPhase = phase
		return &ScanOutcome{
			Scenario:        ScanRestoredTrip,
			Expense:         expense,
			MatchedTripID:   trip.ID,
			MatchedTripName: trip.Name,
		}, nil
	}

	// Branch 2: a draft with expenses is open; append to it.
	if len(s.draft.Expenses) > 0 {
		rate := RateForAutoSave(currency, payment, s.draft.Expenses)
		beneficiaries := []string{domain.SelfID}
		for _, c := range s.draft.Companions {
			beneficiaries = append(beneficiaries, c.ID)
		}
		expense := build(rate, beneficiaries)

		expenses := append(copyExpenses(s.draft.Expenses), expense)
		changes := map[repository.StateKey]any{
			repository.KeyExpenses: expenses,
		}

		adoptCountry := s.draft.TravelCountry == "" && result.Country != ""
		if adoptCountry {
			changes[repository.KeyCountry] = result.Country
		}
		adoptDates := result.TravelStartDate != "" && result.TravelEndDate != ""
		if adoptDates {
			changes[repository.KeyTripStartDate] = result.TravelStartDate
			changes[repository.KeyTripEndDate] = result.TravelEndDate
		}

		if err := s.store.SetMany(ctx, changes); err != nil {
			return nil, &LedgerServiceError{Op: "persist_scan_append", Err: err}
		}

		s.draft.Expenses = expenses
		s.draft.CurrentPhase = phase
		outcome := &ScanOutcome{Scenario: ScanAppendedDraft, Expense: expense}
		if adoptDates {
			s.draft.TripStartDate = result.TravelStartDate
			s.draft.TripEndDate = result.TravelEndDate
		}
		if adoptCountry {
			s.draft.TravelCountry = result.Country
			outcome.DetectedCountry = result.Country
			s.fetchTaxRuleAsync(result.Country)
		}
		return outcome, nil
	}

	// Branch 3: empty draft; start a new one around this expense.
	rate := RateForAutoSave(currency, payment, nil)
	expense := build(rate, []string{domain.SelfID})

	draftName := date + " "
	if result.Country != "" {
		draftName += result.Country + " "
	}
	draftName += "新旅程"

	start, end := "", ""
	if result.TravelStartDate != "" && result.TravelEndDate != "" {
		start, end = result.TravelStartDate, result.TravelEndDate
	}

	expenses := []domain.Expense{expense}
	changes := map[repository.StateKey]any{
		repository.KeyExpenses:      expenses,
		repository.KeyCompanions:    []domain.Companion{},
		repository.KeyShoppingList:  []domain.ShoppingItem{},
		repository.KeyDraftName:     draftName,
		repository.KeyTripStartDate: start,
		repository.KeyTripEndDate:   end,
		repository.KeyCountry:       result.Country,
		repository.KeyTaxRule:       nil,
		repository.KeyCurrentTripID: nil,
	}
	if err := s.store.SetMany(ctx, changes); err != nil {
		return nil, &LedgerServiceError{Op: "persist_scan_new_draft", Err: err}
	}

	s.taxGeneration++
	s.draft = domain.DraftState{
		Expenses:      expenses,
		Companions:    []domain.Companion{},
		ShoppingList:  []domain.ShoppingItem{},
		TripStartDate: start,
		TripEndDate:   end,
		TravelCountry: result.Country,
		DraftName:     draftName,
		CurrentPhase:  phase,
	}
	outcome := &ScanOutcome{Scenario: ScanNewDraft, Expense: expense}
	if result.Country != "" {
		outcome.DetectedCountry = result.Country
		s.fetchTaxRuleAsync(result.Country)
	}
	return outcome, nil
}

// ParseText extracts a structured expense candidate from a free-form
// sentence without touching the draft; the caller decides what to save.
func (s *LedgerServiceImpl) ParseText(ctx context.Context, text string) (*gemini.ExtractedExpense, error) {
	result, err := s.extractor.ExtractFromText(ctx, text)
	if err != nil {
		return nil, &LedgerServiceError{Op: "extract_text", Err: err}
	}
	if result == nil || result.Amount == 0 {
		return nil, ErrExtractionFailed
	}
	return result, nil
}
