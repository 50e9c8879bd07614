package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Paypay0in/my-trippie/internal/domain"
	"github.com/Paypay0in/my-trippie/internal/gemini"
	"github.com/Paypay0in/my-trippie/internal/migration"
	"github.com/Paypay0in/my-trippie/internal/repository"
)

// LedgerServiceError represents an error in the ledger service
type LedgerServiceError struct {
	Op  string
	Err error
}

func (e *LedgerServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *LedgerServiceError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnsavedDraft signals a destructive transition was attempted over
	// unarchived draft data without confirmation. Callers must re-issue
	// the call with the confirm flag after asking the user.
	ErrUnsavedDraft = errors.New("draft has unsaved expenses; confirmation required")

	ErrTripNotFound     = errors.New("trip not found")
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrExtractionFailed = errors.New("no expense could be extracted")
	ErrTaxRuleLookup    = errors.New("tax rule lookup returned no result")
)

// Extractor is the AI collaborator the engine needs. *gemini.Client
// satisfies it; tests substitute a fake.
type Extractor interface {
	ExtractFromImage(ctx context.Context, image []byte, mimeType string) (*gemini.ExtractedExpense, error)
	ExtractFromText(ctx context.Context, text string) (*gemini.ExtractedExpense, error)
	FetchTaxRule(ctx context.Context, country string) (*domain.TaxRule, error)
}

// LedgerService defines the interface for trip-ledger business logic
type LedgerService interface {
	// Draft snapshot and history
	Draft(ctx context.Context) domain.DraftState
	History(ctx context.Context) []domain.Trip

	// Expense operations
	AddExpense(ctx context.Context, expense domain.Expense, linkedItemID string) (domain.Expense, error)
	UpdateExpense(ctx context.Context, id string, expense domain.Expense) (domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	// Companion operations
	AddCompanion(ctx context.Context, name string) (domain.Companion, error)
	RemoveCompanion(ctx context.Context, id string) error

	// Shopping list operations
	AddShoppingItem(ctx context.Context, name string, phase domain.Phase) (domain.ShoppingItem, error)
	RemoveShoppingItem(ctx context.Context, id string) error

	// Draft metadata
	RenameDraft(ctx context.Context, name string) error
	SetTripDates(ctx context.Context, start, end string) error
	SetPhase(ctx context.Context, phase domain.Phase) error
	SetCountry(ctx context.Context, country string) (*domain.TaxRule, error)

	// Lifecycle transitions
	ArchiveTrip(ctx context.Context, name string, totalCost float64) (domain.Trip, error)
	RestoreTrip(ctx context.Context, tripID string, confirmed bool) error
	NewTrip(ctx context.Context, confirmed bool) error
	DeleteTrip(ctx context.Context, tripID string) error
	RenameArchivedTrip(ctx context.Context, tripID, name string) error

	// AI flows
	SmartScanImage(ctx context.Context, image []byte, mimeType string) (*ScanOutcome, error)
	ParseText(ctx context.Context, text string) (*gemini.ExtractedExpense, error)

	// Reporting
	Summary(ctx context.Context) domain.SummaryStats
	Settlement(ctx context.Context) []domain.SettlementShare
	ExportCSV(ctx context.Context) (filename string, content []byte)
}

// LedgerServiceImpl implements the LedgerService interface. A mutex
// serializes every access to the draft and history: the ledger is a
// single-user document and correctness beats parallelism here.
type LedgerServiceImpl struct {
	mu        sync.Mutex
	store     repository.StateRepository
	extractor Extractor

	draft   domain.DraftState
	history []domain.Trip

	// taxGeneration invalidates in-flight async tax lookups whenever the
	// draft's country context changes.
	taxGeneration uint64

	now func() time.Time
}

// NewLedgerService loads persisted state through the migrator and returns
// a ready engine.
func NewLedgerService(ctx context.Context, store repository.StateRepository, extractor Extractor) (*LedgerServiceImpl, error) {
	s := &LedgerServiceImpl{
		store:     store,
		extractor: extractor,
		now:       time.Now,
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads every state key and runs legacy records through the
// migrator. Missing keys leave zero values in place.
func (s *LedgerServiceImpl) load(ctx context.Context) error {
	var expenses []domain.Expense
	if _, err := s.store.Get(ctx, repository.KeyExpenses, &expenses); err != nil {
		return &LedgerServiceError{Op: "load_expenses", Err: err}
	}
	s.draft.Expenses = migration.MigrateExpenses(expenses)

	if _, err := s.store.Get(ctx, repository.KeyCompanions, &s.draft.Companions); err != nil {
		return &LedgerServiceError{Op: "load_companions", Err: err}
	}
	if s.draft.Companions == nil {
		s.draft.Companions = []domain.Companion{}
	}

	var shopping []domain.ShoppingItem
	if _, err := s.store.Get(ctx, repository.KeyShoppingList, &shopping); err != nil {
		return &LedgerServiceError{Op: "load_shopping_list", Err: err}
	}
	s.draft.ShoppingList = migration.MigrateShoppingList(shopping)

	var history []domain.Trip
	if _, err := s.store.Get(ctx, repository.KeyTripHistory, &history); err != nil {
		return &LedgerServiceError{Op: "load_trip_history", Err: err}
	}
	s.history = migration.MigrateTrips(history)

	if _, err := s.store.Get(ctx, repository.KeyCountry, &s.draft.TravelCountry); err != nil {
		return &LedgerServiceError{Op: "load_country", Err: err}
	}
	var rule domain.TaxRule
	found, err := s.store.Get(ctx, repository.KeyTaxRule, &rule)
	if err != nil {
		return &LedgerServiceError{Op: "load_tax_rule", Err: err}
	}
	if found {
		s.draft.TaxRule = &rule
	}
	if _, err := s.store.Get(ctx, repository.KeyDraftName, &s.draft.DraftName); err != nil {
		return &LedgerServiceError{Op: "load_draft_name", Err: err}
	}
	if _, err := s.store.Get(ctx, repository.KeyTripStartDate, &s.draft.TripStartDate); err != nil {
		return &LedgerServiceError{Op: "load_trip_start_date", Err: err}
	}
	if _, err := s.store.Get(ctx, repository.KeyTripEndDate, &s.draft.TripEndDate); err != nil {
		return &LedgerServiceError{Op: "load_trip_end_date", Err: err}
	}
	if _, err := s.store.Get(ctx, repository.KeyCurrentTripID, &s.draft.CurrentLoadedTripID); err != nil {
		return &LedgerServiceError{Op: "load_current_trip_id", Err: err}
	}
	if s.draft.CurrentPhase == "" {
		s.draft.CurrentPhase = domain.PhasePre
	}
	return nil
}

// Draft returns a deep copy of the active draft.
func (s *LedgerServiceImpl) Draft(ctx context.Context) domain.DraftState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDraft(s.draft)
}

// History returns a deep copy of the archived trips, most recent first.
func (s *LedgerServiceImpl) History(ctx context.Context) []domain.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Trip, len(s.history))
	for i, t := range s.history {
		out[i] = copyTrip(t)
	}
	return out
}

// AddExpense appends a new expense to the draft. The caller's id is
// ignored; a fresh one is assigned. When linkedItemID names a shopping
// item, that single item is flagged purchased in the same write.
func (s *LedgerServiceImpl) AddExpense(ctx context.Context, expense domain.Expense, linkedItemID string) (domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expense.ID = ""
	if expense.Date == "" {
		expense.Date = s.now().Format("2006-01-02")
	}
	if expense.Currency == "" {
		expense.Currency = domain.HomeCurrency
	}
	if expense.Category == "" {
		expense.Category = domain.CategoryOther
	}
	if expense.PaymentMethod == "" {
		expense.PaymentMethod = domain.PaymentCashTWD
	}
	if expense.Phase == "" {
		expense.Phase = domain.PhaseForCategory(expense.Category)
	}
	if expense.ExchangeRate == 0 {
		expense.ExchangeRate = RateForAutoSave(expense.Currency, expense.PaymentMethod, s.draft.Expenses)
		expense.HomeAmount = 0
	}
	expense = domain.NewExpense(expense)

	expenses := append(copyExpenses(s.draft.Expenses), expense)
	changes := map[repository.StateKey]any{
		repository.KeyExpenses: expenses,
	}

	var shopping []domain.ShoppingItem
	if linkedItemID != "" {
		shopping = copyShopping(s.draft.ShoppingList)
		for i := range shopping {
			if shopping[i].ID == linkedItemID {
				shopping[i].IsPurchased = true
				changes[repository.KeyShoppingList] = shopping
				break
			}
		}
	}

	if err := s.store.SetMany(ctx, changes); err != nil {
		return domain.Expense{}, &LedgerServiceError{Op: "persist_add_expense", Err: err}
	}
	s.draft.Expenses = expenses
	if _, linked := changes[repository.KeyShoppingList]; linked {
		s.draft.ShoppingList = shopping
	}
	return expense, nil
}

// UpdateExpense replaces the expense with the given id in place.
func (s *LedgerServiceImpl) UpdateExpense(ctx context.Context, id string, expense domain.Expense) (domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.draft.Expenses {
		if s.draft.Expenses[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Expense{}, ErrExpenseNotFound
	}

	expense.ID = id
	expense = domain.NewExpense(expense)

	expenses := copyExpenses(s.draft.Expenses)
	expenses[idx] = expense
	if err := s.store.Set(ctx, repository.KeyExpenses, expenses); err != nil {
		return domain.Expense{}, &LedgerServiceError{Op: "persist_update_expense", Err: err}
	}
	s.draft.Expenses = expenses
	return expense, nil
}

// DeleteExpense removes an expense. Linked shopping items and settlement
// references are left alone.
func (s *LedgerServiceImpl) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expenses := make([]domain.Expense, 0, len(s.draft.Expenses))
	found := false
	for _, e := range s.draft.Expenses {
		if e.ID == id {
			found = true
			continue
		}
		expenses = append(expenses, e)
	}
	if !found {
		return ErrExpenseNotFound
	}
	if err := s.store.Set(ctx, repository.KeyExpenses, expenses); err != nil {
		return &LedgerServiceError{Op: "persist_delete_expense", Err: err}
	}
	s.draft.Expenses = expenses
	return nil
}

// AddCompanion registers a travel partner.
func (s *LedgerServiceImpl) AddCompanion(ctx context.Context, name string) (domain.Companion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	companion := domain.Companion{ID: domain.NewID(), Name: name}
	companions := append(copyCompanions(s.draft.Companions), companion)
	if err := s.store.Set(ctx, repository.KeyCompanions, companions); err != nil {
		return domain.Companion{}, &LedgerServiceError{Op: "persist_add_companion", Err: err}
	}
	s.draft.Companions = companions
	return companion, nil
}

// RemoveCompanion deletes a companion. Expenses referencing the id keep
// their dangling reference; exports resolve it to the unknown label.
func (s *LedgerServiceImpl) RemoveCompanion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	companions := make([]domain.Companion, 0, len(s.draft.Companions))
	for _, c := range s.draft.Companions {
		if c.ID != id {
			companions = append(companions, c)
		}
	}
	if err := s.store.Set(ctx, repository.KeyCompanions, companions); err != nil {
		return &LedgerServiceError{Op: "persist_remove_companion", Err: err}
	}
	s.draft.Companions = companions
	return nil
}

// AddShoppingItem appends a to-buy entry. An empty phase falls back to
// the current phase, with summary treated as post.
func (s *LedgerServiceImpl) AddShoppingItem(ctx context.Context, name string, phase domain.Phase) (domain.ShoppingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if phase == "" {
		phase = s.draft.CurrentPhase
	}
	if phase == domain.PhaseSummary {
		phase = domain.PhasePost
	}
	item := domain.ShoppingItem{ID: domain.NewID(), Name: name, Phase: phase}
	shopping := append(copyShopping(s.draft.ShoppingList), item)
	if err := s.store.Set(ctx, repository.KeyShoppingList, shopping); err != nil {
		return domain.ShoppingItem{}, &LedgerServiceError{Op: "persist_add_shopping_item", Err: err}
	}
	s.draft.ShoppingList = shopping
	return item, nil
}

// RemoveShoppingItem deletes a to-buy entry outright.
func (s *LedgerServiceImpl) RemoveShoppingItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	shopping := make([]domain.ShoppingItem, 0, len(s.draft.ShoppingList))
	for _, item := range s.draft.ShoppingList {
		if item.ID != id {
			shopping = append(shopping, item)
		}
	}
	if err := s.store.Set(ctx, repository.KeyShoppingList, shopping); err != nil {
		return &LedgerServiceError{Op: "persist_remove_shopping_item", Err: err}
	}
	s.draft.ShoppingList = shopping
	return nil
}

// RenameDraft renames the working ledger. When the draft is a reopened
// archived trip the rename goes live into the history entry instead.
func (s *LedgerServiceImpl) RenameDraft(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.CurrentLoadedTripID != "" {
		return s.renameInHistory(ctx, s.draft.CurrentLoadedTripID, name)
	}
	if err := s.store.Set(ctx, repository.KeyDraftName, name); err != nil {
		return &LedgerServiceError{Op: "persist_draft_name", Err: err}
	}
	s.draft.DraftName = name
	return nil
}

// RenameArchivedTrip renames a trip on the shelf without opening it.
func (s *LedgerServiceImpl) RenameArchivedTrip(ctx context.Context, tripID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renameInHistory(ctx, tripID, name)
}

// renameInHistory is called with the lock held.
func (s *LedgerServiceImpl) renameInHistory(ctx context.Context, tripID, name string) error {
	history := make([]domain.Trip, len(s.history))
	copy(history, s.history)
	found := false
	for i := range history {
		if history[i].ID == tripID {
			history[i].Name = name
			found = true
			break
		}
	}
	if !found {
		return ErrTripNotFound
	}
	if err := s.store.Set(ctx, repository.KeyTripHistory, history); err != nil {
		return &LedgerServiceError{Op: "persist_rename_trip", Err: err}
	}
	s.history = history
	return nil
}

// SetTripDates sets the explicit travel window that overrides the
// expense-derived range.
func (s *LedgerServiceImpl) SetTripDates(ctx context.Context, start, end string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes := map[repository.StateKey]any{
		repository.KeyTripStartDate: start,
		repository.KeyTripEndDate:   end,
	}
	if err := s.store.SetMany(ctx, changes); err != nil {
		return &LedgerServiceError{Op: "persist_trip_dates", Err: err}
	}
	s.draft.TripStartDate = start
	s.draft.TripEndDate = end
	return nil
}

// SetPhase moves the draft's active phase tab.
func (s *LedgerServiceImpl) SetPhase(ctx context.Context, phase domain.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch phase {
	case domain.PhasePre, domain.PhaseDuring, domain.PhasePost, domain.PhaseSummary:
	default:
		return &LedgerServiceError{Op: "validate_phase", Err: fmt.Errorf("unknown phase %q", phase)}
	}
	s.draft.CurrentPhase = phase
	return nil
}

// SetCountry sets the travel country, clears the old tax rule, and looks
// up the new country's refund scheme synchronously. A nil lookup result
// is a failure (ErrTaxRuleLookup); a rule with zero minimum and zero rate
// is a valid no-refund-scheme answer. An empty country just clears both.
func (s *LedgerServiceImpl) SetCountry(ctx context.Context, country string) (*domain.TaxRule, error) {
	s.mu.Lock()
	s.taxGeneration++
	changes := map[repository.StateKey]any{
		repository.KeyCountry: country,
		repository.KeyTaxRule: nil,
	}
	if err := s.store.SetMany(ctx, changes); err != nil {
		s.mu.Unlock()
		return nil, &LedgerServiceError{Op: "persist_country", Err: err}
	}
	s.draft.TravelCountry = country
	s.draft.TaxRule = nil
	generation := s.taxGeneration
	s.mu.Unlock()

	if country == "" {
		return nil, nil
	}

	rule, err := s.extractor.FetchTaxRule(ctx, country)
	if err != nil {
		return nil, &LedgerServiceError{Op: "fetch_tax_rule", Err: err}
	}
	if rule == nil {
		return nil, ErrTaxRuleLookup
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.applyTaxRuleLocked(ctx, generation, country, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// applyTaxRuleLocked installs a fetched rule unless the draft's country
// context moved on since the lookup was issued, in which case the result
// is dropped. Caller holds the lock.
func (s *LedgerServiceImpl) applyTaxRuleLocked(ctx context.Context, generation uint64, country string, rule *domain.TaxRule) error {
	if generation != s.taxGeneration || s.draft.TravelCountry != country {
		return nil
	}
	if err := s.store.Set(ctx, repository.KeyTaxRule, rule); err != nil {
		return &LedgerServiceError{Op: "persist_tax_rule", Err: err}
	}
	s.draft.TaxRule = rule
	return nil
}

// fetchTaxRuleAsync launches a background refund-scheme lookup for the
// country currently on the draft. Called with the lock held.
func (s *LedgerServiceImpl) fetchTaxRuleAsync(country string) {
	s.taxGeneration++
	generation := s.taxGeneration

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		rule, err := s.extractor.FetchTaxRule(ctx, country)
		if err != nil || rule == nil {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		_ = s.applyTaxRuleLocked(ctx, generation, country, rule)
	}()
}

// ArchiveTrip freezes the draft into an immutable Trip prepended to the
// history and clears every draft field. The whole transition persists in
// one batch; on failure the draft is untouched and can be retried.
func (s *LedgerServiceImpl) ArchiveTrip(ctx context.Context, name string, totalCost float64) (domain.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dates := s.draft.EffectiveDateRange(s.now())
	trip := domain.Trip{
		ID:           domain.NewID(),
		Name:         name,
		StartDate:    dates.Start,
		EndDate:      dates.End,
		TotalCost:    totalCost,
		Expenses:     copyExpenses(s.draft.Expenses),
		Companions:   copyCompanions(s.draft.Companions),
		ShoppingList: copyShopping(s.draft.ShoppingList),
		ArchivedAt:   s.now().UTC().Format(time.RFC3339),
		TaxRule:      copyTaxRule(s.draft.TaxRule),
	}

	history := append([]domain.Trip{trip}, s.history...)
	changes := map[repository.StateKey]any{
		repository.KeyTripHistory:   history,
		repository.KeyExpenses:      []domain.Expense{},
		repository.KeyCompanions:    []domain.Companion{},
		repository.KeyShoppingList:  []domain.ShoppingItem{},
		repository.KeyDraftName:     "",
		repository.KeyTripStartDate: "",
		repository.KeyTripEndDate:   "",
		repository.KeyCountry:       "",
		repository.KeyTaxRule:       nil,
		repository.KeyCurrentTripID: nil,
	}
	if err := s.store.SetMany(ctx, changes); err != nil {
		return domain.Trip{}, &LedgerServiceError{Op: "persist_archive", Err: err}
	}

	s.history = history
	s.resetDraftLocked()
	return copyTrip(trip), nil
}

// HasUnsavedDraft reports whether a destructive transition would discard
// data: the draft holds expenses and is not a reopened archived trip.
func (s *LedgerServiceImpl) HasUnsavedDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasUnsavedDraftLocked()
}

func (s *LedgerServiceImpl) hasUnsavedDraftLocked() bool {
	return len(s.draft.Expenses) > 0 && s.draft.CurrentLoadedTripID == ""
}

// RestoreTrip copies an archived trip back into the draft for editing.
// The archived entry stays on the shelf; edits only reach it through a
// subsequent archive. Unconfirmed calls over an unsaved draft are
// rejected with ErrUnsavedDraft.
func (s *LedgerServiceImpl) RestoreTrip(ctx context.Context, tripID string, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasUnsavedDraftLocked() && !confirmed {
		return ErrUnsavedDraft
	}

	var trip *domain.Trip
	for i := range s.history {
		if s.history[i].ID == tripID {
			trip = &s.history[i]
			break
		}
	}
	if trip == nil {
		return ErrTripNotFound
	}
	return s.loadTripIntoDraftLocked(ctx, *trip, nil)
}

// loadTripIntoDraftLocked replaces the draft with a copy of an archived
// trip, optionally appending extra expenses in the same transition.
// Caller holds the lock.
func (s *LedgerServiceImpl) loadTripIntoDraftLocked(ctx context.Context, trip domain.Trip, extra []domain.Expense) error {
	expenses := migration.MigrateExpenses(copyExpenses(trip.Expenses))
	expenses = append(expenses, extra...)
	companions := copyCompanions(trip.Companions)
	if companions == nil {
		companions = []domain.Companion{}
	}
	shopping := migration.MigrateShoppingList(copyShopping(trip.ShoppingList))

	country := ""
	rule := copyTaxRule(trip.TaxRule)
	if rule != nil {
		country = rule.Country
	}

	changes := map[repository.StateKey]any{
		repository.KeyExpenses:      expenses,
		repository.KeyCompanions:    companions,
		repository.KeyShoppingList:  shopping,
		repository.KeyTripStartDate: trip.StartDate,
		repository.KeyTripEndDate:   trip.EndDate,
		repository.KeyCountry:       country,
		repository.KeyCurrentTripID: trip.ID,
	}
	if rule != nil {
		changes[repository.KeyTaxRule] = rule
	} else {
		changes[repository.KeyTaxRule] = nil
	}
	if err := s.store.SetMany(ctx, changes); err != nil {
		return &LedgerServiceError{Op: "persist_restore", Err: err}
	}

	s.taxGeneration++
	s.draft = domain.DraftState{
		Expenses:            expenses,
		Companions:          companions,
		ShoppingList:        shopping,
		TripStartDate:       trip.StartDate,
		TripEndDate:         trip.EndDate,
		TravelCountry:       country,
		TaxRule:             rule,
		DraftName:           s.draft.DraftName,
		CurrentLoadedTripID: trip.ID,
		CurrentPhase:        domain.FurthestPhase(expenses),
	}
	return nil
}

// NewTrip clears the draft without archiving anything. Same guard as
// RestoreTrip.
func (s *LedgerServiceImpl) NewTrip(ctx context.Context, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasUnsavedDraftLocked() && !confirmed {
		return ErrUnsavedDraft
	}

	changes := map[repository.StateKey]any{
		repository.KeyExpenses:      []domain.Expense{},
		repository.KeyCompanions:    []domain.Companion{},
		repository.KeyShoppingList:  []domain.ShoppingItem{},
		repository.KeyDraftName:     "",
		repository.KeyTripStartDate: "",
		repository.KeyTripEndDate:   "",
		repository.KeyCountry:       "",
		repository.KeyTaxRule:       nil,
		repository.KeyCurrentTripID: nil,
	}
	if err := s.store.SetMany(ctx, changes); err != nil {
		return &LedgerServiceError{Op: "persist_new_trip", Err: err}
	}
	s.resetDraftLocked()
	return nil
}

// DeleteTrip removes an archived trip permanently. Only ever invoked by
// an explicit user action.
func (s *LedgerServiceImpl) DeleteTrip(ctx context.Context, tripID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]domain.Trip, 0, len(s.history))
	found := false
	for _, t := range s.history {
		if t.ID == tripID {
			found = true
			continue
		}
		history = append(history, t)
	}
	if !found {
		return ErrTripNotFound
	}
	if err := s.store.Set(ctx, repository.KeyTripHistory, history); err != nil {
		return &LedgerServiceError{Op: "persist_delete_trip", Err: err}
	}
	s.history = history
	return nil
}

// resetDraftLocked returns the draft to the pristine post-archive state.
// Caller holds the lock.
func (s *LedgerServiceImpl) resetDraftLocked() {
	s.taxGeneration++
	s.draft = domain.DraftState{
		Expenses:     []domain.Expense{},
		Companions:   []domain.Companion{},
		ShoppingList: []domain.ShoppingItem{},
		CurrentPhase: domain.PhasePre,
	}
}

// RateForAutoSave resolves an exchange rate without user input, in fixed
// precedence order: the home currency is always 1; foreign cash prefers
// the realized blended rate from 換匯 entries in the same currency; then
// the static table; unknown currencies fall back to 1.
func RateForAutoSave(currencyCode string, paymentMethod domain.PaymentMethod, expenses []domain.Expense) float64 {
	if currencyCode == domain.HomeCurrency {
		return 1
	}

	if paymentMethod == domain.PaymentCashForeign {
		var totalForeign, totalHome float64
		for _, e := range expenses {
			if e.Category == domain.CategoryExchange && e.Currency == currencyCode {
				totalForeign += e.Amount
				totalHome += e.HomeAmount
			}
		}
		if totalForeign > 0 {
			return totalHome / totalForeign
		}
	}

	return domain.DefaultRate(currencyCode)
}

// deep-copy helpers; expenses carry a map so plain slice copies leak.

func copyExpenses(in []domain.Expense) []domain.Expense {
	out := make([]domain.Expense, len(in))
	for i, e := range in {
		allocations := make(map[string]float64, len(e.SplitAllocations))
		for k, v := range e.SplitAllocations {
			allocations[k] = v
		}
		e.SplitAllocations = allocations
		e.Beneficiaries = append([]string(nil), e.Beneficiaries...)
		out[i] = e
	}
	return out
}

func copyCompanions(in []domain.Companion) []domain.Companion {
	out := make([]domain.Companion, len(in))
	copy(out, in)
	return out
}

func copyShopping(in []domain.ShoppingItem) []domain.ShoppingItem {
	out := make([]domain.ShoppingItem, len(in))
	copy(out, in)
	return out
}

func copyTaxRule(in *domain.TaxRule) *domain.TaxRule {
	if in == nil {
		return nil
	}
	rule := *in
	return &rule
}

func copyTrip(t domain.Trip) domain.Trip {
	t.Expenses = copyExpenses(t.Expenses)
	t.Companions = copyCompanions(t.Companions)
	t.ShoppingList = copyShopping(t.ShoppingList)
	t.TaxRule = copyTaxRule(t.TaxRule)
	return t
}

func copyDraft(d domain.DraftState) domain.DraftState {
	d.Expenses = copyExpenses(d.Expenses)
	d.Companions = copyCompanions(d.Companions)
	d.ShoppingList = copyShopping(d.ShoppingList)
	d.TaxRule = copyTaxRule(d.TaxRule)
	return d
}
