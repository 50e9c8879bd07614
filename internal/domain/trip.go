package domain

import "time"

// TaxRule holds a jurisdiction's tourist tax-refund parameters. RefundRate
// is a decimal fraction (0.10 for 10%). A rule with MinSpend 0 and
// RefundRate 0 means the country has no refund scheme, which is a valid
// configured state distinct from "no rule set".
type TaxRule struct {
	Country    string  `json:"country"`
	Currency   string  `json:"currency"`
	MinSpend   float64 `json:"minSpend"`
	RefundRate float64 `json:"refundRate"`
	Notes      string  `json:"notes"`
}

// Trip is an archived, immutable snapshot of a completed draft. It owns its
// copies: later edits to the active draft never reach an archived trip.
type Trip struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	StartDate    string         `json:"startDate"`
	EndDate      string         `json:"endDate"`
	TotalCost    float64        `json:"totalCost"`
	Expenses     []Expense      `json:"expenses"`
	Companions   []Companion    `json:"companions"`
	ShoppingList []ShoppingItem `json:"shoppingList"`
	ArchivedAt   string         `json:"archivedAt"`
	TaxRule      *TaxRule       `json:"taxRule,omitempty"`
}

// ContainsDate reports whether a YYYY-MM-DD date falls inside the trip's
// inclusive date range. Dates sort lexicographically in this format.
func (t Trip) ContainsDate(date string) bool {
	return date >= t.StartDate && date <= t.EndDate
}

// DraftState is the single currently-editable, unarchived ledger.
// CurrentLoadedTripID is empty for a brand-new draft, or the id of an
// archived trip reopened for editing.
type DraftState struct {
	Expenses            []Expense      `json:"expenses"`
	Companions          []Companion    `json:"companions"`
	ShoppingList        []ShoppingItem `json:"shoppingList"`
	TripStartDate       string         `json:"tripStartDate"`
	TripEndDate         string         `json:"tripEndDate"`
	TravelCountry       string         `json:"travelCountry"`
	TaxRule             *TaxRule       `json:"taxRule,omitempty"`
	DraftName           string         `json:"draftName"`
	CurrentLoadedTripID string         `json:"currentLoadedTripId,omitempty"`
	CurrentPhase        Phase          `json:"currentPhase"`
}

// DateRange is an inclusive YYYY-MM-DD interval.
type DateRange struct {
	Start string
	End   string
}

// ExpenseDateRange derives a date range from the min/max expense dates.
// An empty expense set falls back to today for both bounds. This is the
// single fallback used by archiving, display and routing.
func ExpenseDateRange(expenses []Expense, now time.Time) DateRange {
	if len(expenses) == 0 {
		today := now.Format("2006-01-02")
		return DateRange{Start: today, End: today}
	}
	r := DateRange{Start: expenses[0].Date, End: expenses[0].Date}
	for _, e := range expenses[1:] {
		if e.Date < r.Start {
			r.Start = e.Date
		}
		if e.Date > r.End {
			r.End = e.Date
		}
	}
	return r
}

// EffectiveDateRange layers the explicit trip dates over the expense-derived
// fallback: the explicit range wins only when both bounds are set.
func (d *DraftState) EffectiveDateRange(now time.Time) DateRange {
	if d.TripStartDate != "" && d.TripEndDate != "" {
		return DateRange{Start: d.TripStartDate, End: d.TripEndDate}
	}
	return ExpenseDateRange(d.Expenses, now)
}

// SummaryStats aggregates the draft for the trip-settlement view.
type SummaryStats struct {
	TotalHome  float64            `json:"totalTWD"`
	ByPhase    map[Phase]float64  `json:"byPhase"`
	ByCategory map[string]float64 `json:"byCategory"`
}

// SettlementShare is one person's position after splitting every expense:
// Paid is what they fronted, Share what they consumed, Net the difference
// (positive means the group owes them).
type SettlementShare struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Paid  float64 `json:"paid"`
	Share float64 `json:"share"`
	Net   float64 `json:"net"`
}
