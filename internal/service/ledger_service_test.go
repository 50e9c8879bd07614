package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paypay0in/my-trippie/internal/domain"
	"github.com/Paypay0in/my-trippie/internal/gemini"
	"github.com/Paypay0in/my-trippie/internal/repository"
)

// memStore is an in-memory StateRepository that round-trips values
// through JSON like the real backends do.
type memStore struct {
	data     map[repository.StateKey][]byte
	failNext error
}

func newMemStore() *memStore {
	return &memStore{data: map[repository.StateKey][]byte{}}
}

func (m *memStore) Get(ctx context.Context, key repository.StateKey, out any) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (m *memStore) Set(ctx context.Context, key repository.StateKey, value any) error {
	if err := m.takeFailure(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memStore) Delete(ctx context.Context, key repository.StateKey) error {
	if err := m.takeFailure(); err != nil {
		return err
	}
	delete(m.data, key)
	return nil
}

func (m *memStore) SetMany(ctx context.Context, changes map[repository.StateKey]any) error {
	if err := m.takeFailure(); err != nil {
		return err
	}
	for key, value := range changes {
		if value == nil {
			delete(m.data, key)
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		m.data[key] = raw
	}
	return nil
}

func (m *memStore) takeFailure() error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	return nil
}

// fakeExtractor returns canned AI results. Tax rule fetches may arrive
// from background goroutines, so they are guarded and announced on
// taxFetched for tests to wait on.
type fakeExtractor struct {
	imageResult *gemini.ExtractedExpense
	textResult  *gemini.ExtractedExpense
	taxRule     *domain.TaxRule
	taxErr      error

	mu         sync.Mutex
	taxCalls   int
	taxCountry string
	taxFetched chan string
}

func (f *fakeExtractor) ExtractFromImage(ctx context.Context, image []byte, mimeType string) (*gemini.ExtractedExpense, error) {
	return f.imageResult, nil
}

func (f *fakeExtractor) ExtractFromText(ctx context.Context, text string) (*gemini.ExtractedExpense, error) {
	return f.textResult, nil
}

func (f *fakeExtractor) FetchTaxRule(ctx context.Context, country string) (*domain.TaxRule, error) {
	f.mu.Lock()
	f.taxCalls++
	f.taxCountry = country
	f.mu.Unlock()
	select {
	case f.taxFetched <- country:
	default:
	}
	return f.taxRule, f.taxErr
}

func (f *fakeExtractor) taxFetchStats() (int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taxCalls, f.taxCountry
}

// waitTaxFetch blocks until a tax rule lookup is issued and returns the
// country it was issued for.
func (f *fakeExtractor) waitTaxFetch(t *testing.T) string {
	t.Helper()
	select {
	case country := <-f.taxFetched:
		return country
	case <-time.After(2 * time.Second):
		t.Fatal("no tax rule fetch was issued")
		return ""
	}
}

func fixedTime() time.Time {
	return time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*LedgerServiceImpl, *memStore, *fakeExtractor) {
	t.Helper()
	store := newMemStore()
	extractor := &fakeExtractor{taxFetched: make(chan string, 4)}
	svc, err := NewLedgerService(context.Background(), store, extractor)
	require.NoError(t, err)
	svc.now = fixedTime
	return svc, store, extractor
}

func TestAddExpenseAssignsFreshID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	added, err := svc.AddExpense(ctx, domain.Expense{
		ID:          "caller-id",
		Description: "拉麵",
		Amount:      1200,
		Currency:    "JPY",
	}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.NotEqual(t, "caller-id", added.ID)
	assert.Equal(t, domain.SelfID, added.PayerID)
	assert.Equal(t, domain.SplitEqual, added.SplitMethod)
	assert.NotNil(t, added.SplitAllocations)

	draft := svc.Draft(ctx)
	require.Len(t, draft.Expenses, 1)
}

func TestAddExpenseMarksLinkedShoppingItem(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.AddShoppingItem(ctx, "藥妝", domain.PhaseDuring)
	require.NoError(t, err)
	other, err := svc.AddShoppingItem(ctx, "球鞋", domain.PhaseDuring)
	require.NoError(t, err)

	_, err = svc.AddExpense(ctx, domain.Expense{Description: "藥妝", Amount: 500, Currency: "TWD"}, item.ID)
	require.NoError(t, err)

	draft := svc.Draft(ctx)
	require.Len(t, draft.ShoppingList, 2)
	for _, it := range draft.ShoppingList {
		switch it.ID {
		case item.ID:
			assert.True(t, it.IsPurchased)
		case other.ID:
			assert.False(t, it.IsPurchased)
		}
	}
}

func TestAddExpenseUnknownLinkedItemIsNoOp(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddShoppingItem(ctx, "伴手禮", domain.PhasePost)
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, domain.Expense{Description: "x", Amount: 100, Currency: "TWD"}, "missing")
	require.NoError(t, err)

	draft := svc.Draft(ctx)
	require.Len(t, draft.Expenses, 1)
	require.Len(t, draft.ShoppingList, 1)
	assert.False(t, draft.ShoppingList[0].IsPurchased)
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	added, err := svc.AddExpense(ctx, domain.Expense{Description: "門票", Amount: 300, Currency: "TWD"}, "")
	require.NoError(t, err)

	updated, err := svc.UpdateExpense(ctx, added.ID, domain.Expense{Description: "門票x2", Amount: 600, Currency: "TWD", ExchangeRate: 1})
	require.NoError(t, err)
	assert.Equal(t, added.ID, updated.ID)
	assert.Equal(t, 600.0, updated.Amount)

	_, err = svc.UpdateExpense(ctx, "nope", domain.Expense{})
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	require.NoError(t, svc.DeleteExpense(ctx, added.ID))
	assert.ErrorIs(t, svc.DeleteExpense(ctx, added.ID), ErrExpenseNotFound)
	assert.Empty(t, svc.Draft(ctx).Expenses)
}

func TestRemoveCompanionKeepsDanglingReference(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	companion, err := svc.AddCompanion(ctx, "小明")
	require.NoError(t, err)

	_, err = svc.AddExpense(ctx, domain.Expense{
		Description: "午餐", Amount: 400, Currency: "TWD",
		PayerID: companion.ID, Beneficiaries: []string{domain.SelfID, companion.ID},
	}, "")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveCompanion(ctx, companion.ID))

	draft := svc.Draft(ctx)
	assert.Empty(t, draft.Companions)
	require.Len(t, draft.Expenses, 1)
	assert.Equal(t, companion.ID, draft.Expenses[0].PayerID)

	// CSV resolves the dangling payer to the unknown label.
	_, content := svc.ExportCSV(ctx)
	assert.Contains(t, string(content), "未知")
}

func TestRateForAutoSave(t *testing.T) {
	exchanges := []domain.Expense{
		{Category: domain.CategoryExchange, Currency: "JPY", Amount: 10000, HomeAmount: 2200},
		{Category: domain.CategoryExchange, Currency: "JPY", Amount: 5000, HomeAmount: 1100},
		{Category: domain.CategoryFood, Currency: "JPY", Amount: 999, HomeAmount: 999},
	}

	tests := []struct {
		name     string
		currency string
		method   domain.PaymentMethod
		expenses []domain.Expense
		want     float64
	}{
		{"home currency always 1", "TWD", domain.PaymentCashForeign, exchanges, 1},
		{"foreign cash uses blended realized rate", "JPY", domain.PaymentCashForeign, exchanges, 0.22},
		{"credit card ignores exchange history", "JPY", domain.PaymentCreditCard, exchanges, 0.22},
		{"foreign cash without history falls back to table", "JPY", domain.PaymentCashForeign, nil, 0.22},
		{"static table for USD", "USD", domain.PaymentCreditCard, nil, 32.5},
		{"unknown currency defaults to 1", "XYZ", domain.PaymentCashForeign, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RateForAutoSave(tt.currency, tt.method, tt.expenses)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRateForAutoSaveBlendedDiffers(t *testing.T) {
	// two exchanges at different realized rates blend to the weighted
	// mean, which beats the 0.22 static table entry
	exchanges := []domain.Expense{
		{Category: domain.CategoryExchange, Currency: "JPY", Amount: 10000, HomeAmount: 2400},
		{Category: domain.CategoryExchange, Currency: "JPY", Amount: 10000, HomeAmount: 2200},
	}
	got := RateForAutoSave("JPY", domain.PaymentCashForeign, exchanges)
	assert.InDelta(t, 0.23, got, 1e-9)
}

func TestArchiveRestoreRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	companion, err := svc.AddCompanion(ctx, "小美")
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, domain.Expense{
		Description: "機票", Amount: 12000, Currency: "TWD",
		Category: domain.CategoryFlight, Date: "2025-04-01",
		Beneficiaries: []string{domain.SelfID, companion.ID},
	}, "")
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, domain.Expense{
		Description: "電車票", Amount: 3000, Currency: "JPY",
		Category: domain.CategoryTransport, Date: "2025-04-05",
	}, "")
	require.NoError(t, err)

	trip, err := svc.ArchiveTrip(ctx, "東京行", 15000)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01", trip.StartDate)
	assert.Equal(t, "2025-04-05", trip.EndDate)

	// draft fully cleared
	draft := svc.Draft(ctx)
	assert.Empty(t, draft.Expenses)
	assert.Empty(t, draft.Companions)
	assert.Equal(t, domain.PhasePre, draft.CurrentPhase)
	assert.Empty(t, draft.CurrentLoadedTripID)

	history := svc.History(ctx)
	require.Len(t, history, 1)

	require.NoError(t, svc.RestoreTrip(ctx, trip.ID, false))
	draft = svc.Draft(ctx)
	assert.Equal(t, trip.ID, draft.CurrentLoadedTripID)
	require.Len(t, draft.Expenses, 2)
	assert.Equal(t, "機票", draft.Expenses[0].Description)
	require.Len(t, draft.Companions, 1)
	assert.Equal(t, "小美", draft.Companions[0].Name)
	// flight is pre, transit is during: furthest phase wins
	assert.Equal(t, domain.PhaseDuring, draft.CurrentPhase)

	// archived copy is immutable: editing the restored draft leaves it alone
	_, err = svc.AddExpense(ctx, domain.Expense{Description: "宵夜", Amount: 200, Currency: "TWD"}, "")
	require.NoError(t, err)
	history = svc.History(ctx)
	assert.Len(t, history[0].Expenses, 2)
}

func TestArchiveMostRecentFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddExpense(ctx, domain.Expense{Description: "a", Amount: 1, Currency: "TWD", Date: "2025-01-01"}, "")
	require.NoError(t, err)
	first, err := svc.ArchiveTrip(ctx, "第一趟", 1)
	require.NoError(t, err)

	_, err = svc.AddExpense(ctx, domain.Expense{Description: "b", Amount: 2, Currency: "TWD", Date: "2025-02-01"}, "")
	require.NoError(t, err)
	second, err := svc.ArchiveTrip(ctx, "第二趟", 2)
	require.NoError(t, err)

	history := svc.History(ctx)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func TestArchiveEmptyDraftUsesToday(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	trip, err := svc.ArchiveTrip(ctx, "空旅程", 0)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-10", trip.StartDate)
	assert.Equal(t, "2025-04-10", trip.EndDate)
}

func TestArchiveExplicitDatesWin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddExpense(ctx, domain.Expense{Description: "x", Amount: 1, Currency: "TWD", Date: "2025-06-15"}, "")
	require.NoError(t, err)
	require.NoError(t, svc.SetTripDates(ctx, "2025-06-01", "2025-06-30"))

	trip, err := svc.ArchiveTrip(ctx, "六月", 1)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", trip.StartDate)
	assert.Equal(t, "2025-06-30", trip.EndDate)
}

func TestArchivePersistFailureLeavesDraftIntact(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddExpense(ctx, domain.Expense{Description: "x", Amount: 1, Currency: "TWD"}, "")
	require.NoError(t, err)

	store.failNext = errors.New("disk full")
	_, err = svc.ArchiveTrip(ctx, "會失敗", 1)
	require.Error(t, err)

	// retryable: draft untouched, nothing archived
	draft := svc.Draft(ctx)
	assert.Len(t, draft.Expenses, 1)
	assert.Empty(t, svc.History(ctx))

	_, err = svc.ArchiveTrip(ctx, "重試", 1)
	require.NoError(t, err)
	assert.Len(t, svc.History(ctx), 1)
}

func TestUnsavedDraftGuard(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddExpense(ctx, domain.Expense{Description: "x", Amount: 1, Currency: "TWD", Date: "2025-01-01"}, "")
	require.NoError(t, err)
	trip, err := svc.ArchiveTrip(ctx, "舊旅程", 1)
	require.NoError(t, err)

	// fresh unsaved expense in the draft
	_, err = svc.AddExpense(ctx, domain.Expense{Description: "y", Amount: 2, Currency: "TWD"}, "")
	require.NoError(t, err)
	assert.True(t, svc.HasUnsavedDraft())

	assert.ErrorIs(t, svc.RestoreTrip(ctx, trip.ID, false), ErrUnsavedDraft)
	assert.ErrorIs(t, svc.NewTrip(ctx, false), ErrUnsavedDraft)

	// confirmed call proceeds
	require.NoError(t, svc.RestoreTrip(ctx, trip.ID, true))
	assert.Equal(t, trip.ID, svc.Draft(ctx).CurrentLoadedTripID)

	// a loaded archived trip is not "unsaved": no confirmation needed
	assert.False(t, svc.HasUnsavedDraft())
	require.NoError(t, svc.NewTrip(ctx, false))
	assert.Empty(t, svc.Draft(ctx).Expenses)
}

func TestDeleteAndRenameTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddExpense(ctx, domain.Expense{Description: "x", Amount: 1, Currency: "TWD"}, "")
	require.NoError(t, err)
	trip, err := svc.ArchiveTrip(ctx, "原名", 1)
	require.NoError(t, err)

	require.NoError(t, svc.RenameArchivedTrip(ctx, trip.ID, "改名"))
	assert.Equal(t, "改名", svc.History(ctx)[0].Name)

	assert.ErrorIs(t, svc.RenameArchivedTrip(ctx, "nope", "x"), ErrTripNotFound)

	require.NoError(t, svc.DeleteTrip(ctx, trip.ID))
	assert.Empty(t, svc.History(ctx))
	assert.ErrorIs(t, svc.DeleteTrip(ctx, trip.ID), ErrTripNotFound)
}

func TestRenameDraftGoesLiveWhenTripLoaded(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RenameDraft(ctx, "草稿名"))
	assert.Equal(t, "草稿名", svc.Draft(ctx).DraftName)

	_, err := svc.AddExpense(ctx, domain.Expense{Description: "x", Amount: 1, Currency: "TWD"}, "")
	require.NoError(t, err)
	trip, err := svc.ArchiveTrip(ctx, "舊名", 1)
	require.NoError(t, err)
	require.NoError(t, svc.RestoreTrip(ctx, trip.ID, false))

	require.NoError(t, svc.RenameDraft(ctx, "新名"))
	assert.Equal(t, "新名", svc.History(ctx)[0].Name)
}

func TestSetCountryFetchesRule(t *testing.T) {
	svc, _, extractor := newTestService(t)
	ctx := context.Background()
	extractor.taxRule = &domain.TaxRule{Country: "日本", Currency: "JPY", MinSpend: 5000, RefundRate: 0.1}

	rule, err := svc.SetCountry(ctx, "日本")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, 5000.0, rule.MinSpend)

	draft := svc.Draft(ctx)
	assert.Equal(t, "日本", draft.TravelCountry)
	require.NotNil(t, draft.TaxRule)

	calls, country := extractor.taxFetchStats()
	assert.Equal(t, 1, calls)
	assert.Equal(t, "日本", country)
}

func TestSetCountryLookupFailureVsNoScheme(t *testing.T) {
	svc, _, extractor := newTestService(t)
	ctx := context.Background()

	// nil result is a failure and leaves no rule behind
	extractor.taxRule = nil
	_, err := svc.SetCountry(ctx, "某國")
	assert.ErrorIs(t, err, ErrTaxRuleLookup)
	assert.Nil(t, svc.Draft(ctx).TaxRule)

	// zero/zero is a valid "no refund scheme" rule
	extractor.taxRule = &domain.TaxRule{Country: "美國", Currency: "USD"}
	rule, err := svc.SetCountry(ctx, "美國")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Zero(t, rule.MinSpend)
	assert.Zero(t, rule.RefundRate)
	require.NotNil(t, svc.Draft(ctx).TaxRule)
}

func TestSetCountryClearsOldRule(t *testing.T) {
	svc, _, extractor := newTestService(t)
	ctx := context.Background()

	extractor.taxRule = &domain.TaxRule{Country: "日本", Currency: "JPY", MinSpend: 5000, RefundRate: 0.1}
	_, err := svc.SetCountry(ctx, "日本")
	require.NoError(t, err)

	_, err = svc.SetCountry(ctx, "")
	require.NoError(t, err)
	draft := svc.Draft(ctx)
	assert.Empty(t, draft.TravelCountry)
	assert.Nil(t, draft.TaxRule)
}

func TestStaleTaxRuleResultDropped(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	svc.mu.Lock()
	svc.draft.TravelCountry = "日本"
	svc.taxGeneration++
	stale := svc.taxGeneration
	svc.mu.Unlock()

	// country context moves on before the first lookup lands
	svc.mu.Lock()
	svc.draft.TravelCountry = "韓國"
	svc.taxGeneration++
	svc.mu.Unlock()

	svc.mu.Lock()
	err := svc.applyTaxRuleLocked(ctx, stale, "日本", &domain.TaxRule{Country: "日本"})
	svc.mu.Unlock()
	require.NoError(t, err)
	assert.Nil(t, svc.Draft(ctx).TaxRule)

	// a current-generation result still applies
	svc.mu.Lock()
	current := svc.taxGeneration
	err = svc.applyTaxRuleLocked(ctx, current, "韓國", &domain.TaxRule{Country: "韓國"})
	svc.mu.Unlock()
	require.NoError(t, err)
	require.NotNil(t, svc.Draft(ctx).TaxRule)
	assert.Equal(t, "韓國", svc.Draft(ctx).TaxRule.Country)
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	store := newMemStore()
	extractor := &fakeExtractor{}
	ctx := context.Background()

	svc, err := NewLedgerService(ctx, store, extractor)
	require.NoError(t, err)
	svc.now = fixedTime

	_, err = svc.AddCompanion(ctx, "小華")
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, domain.Expense{Description: "早餐", Amount: 120, Currency: "TWD"}, "")
	require.NoError(t, err)
	require.NoError(t, svc.RenameDraft(ctx, "台北一日"))

	// simulated restart over the same store
	reloaded, err := NewLedgerService(ctx, store, extractor)
	require.NoError(t, err)

	draft := reloaded.Draft(ctx)
	require.Len(t, draft.Expenses, 1)
	assert.Equal(t, "早餐", draft.Expenses[0].Description)
	require.Len(t, draft.Companions, 1)
	assert.Equal(t, "台北一日", draft.DraftName)
}

func TestLoadMigratesLegacyRecords(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	legacy := []map[string]any{{
		"id": "old-1", "description": "舊資料", "amount": 100.0,
		"currency": "JPY", "exchangeRate": 0.22, "twdAmount": 22.0,
		"category": "餐飲", "paymentMethod": "現金", "phase": "during",
		"date": "2024-01-01",
	}}
	require.NoError(t, store.Set(ctx, repository.KeyExpenses, legacy))

	svc, err := NewLedgerService(ctx, store, &fakeExtractor{})
	require.NoError(t, err)

	draft := svc.Draft(ctx)
	require.Len(t, draft.Expenses, 1)
	e := draft.Expenses[0]
	assert.Equal(t, domain.PaymentCashForeign, e.PaymentMethod)
	assert.Equal(t, domain.SelfID, e.PayerID)
	assert.Equal(t, []string{domain.SelfID}, e.Beneficiaries)
	assert.Equal(t, domain.SplitEqual, e.SplitMethod)
	assert.NotNil(t, e.SplitAllocations)
}

func TestParseText(t *testing.T) {
	svc, _, extractor := newTestService(t)
	ctx := context.Background()

	extractor.textResult = &gemini.ExtractedExpense{Description: "咖啡", Amount: 150, Currency: "TWD"}
	result, err := svc.ParseText(ctx, "咖啡 150元")
	require.NoError(t, err)
	assert.Equal(t, 150.0, result.Amount)

	extractor.textResult = nil
	_, err = svc.ParseText(ctx, "今天天氣真好")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestSummaryAndSettlement(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	companion, err := svc.AddCompanion(ctx, "小王")
	require.NoError(t, err)

	// EQUAL split between me and companion, I paid
	_, err = svc.AddExpense(ctx, domain.Expense{
		Description: "晚餐", Amount: 1000, Currency: "TWD",
		Category: domain.CategoryFood, Phase: domain.PhaseDuring,
		Beneficiaries: []string{domain.SelfID, companion.ID},
	}, "")
	require.NoError(t, err)

	// EXACT split, companion paid, stale beneficiaries must be ignored
	_, err = svc.AddExpense(ctx, domain.Expense{
		Description: "門票", Amount: 600, Currency: "TWD",
		Category: domain.CategoryTicket, Phase: domain.PhaseDuring,
		PayerID: companion.ID, SplitMethod: domain.SplitExact,
		Beneficiaries:    []string{domain.SelfID},
		SplitAllocations: map[string]float64{domain.SelfID: 400, companion.ID: 200},
	}, "")
	require.NoError(t, err)

	stats := svc.Summary(ctx)
	assert.InDelta(t, 1600, stats.TotalHome, 1e-9)
	assert.InDelta(t, 1600, stats.ByPhase[domain.PhaseDuring], 1e-9)
	assert.InDelta(t, 1000, stats.ByCategory[string(domain.CategoryFood)], 1e-9)

	shares := svc.Settlement(ctx)
	require.Len(t, shares, 2)
	byID := map[string]domain.SettlementShare{}
	for _, sh := range shares {
		byID[sh.ID] = sh
	}
	me := byID[domain.SelfID]
	assert.InDelta(t, 1000, me.Paid, 1e-9)
	assert.InDelta(t, 900, me.Share, 1e-9) // 500 equal + 400 exact
	assert.InDelta(t, 100, me.Net, 1e-9)
	friend := byID[companion.ID]
	assert.InDelta(t, 600, friend.Paid, 1e-9)
	assert.InDelta(t, 700, friend.Share, 1e-9)
	assert.InDelta(t, -100, friend.Net, 1e-9)
}
