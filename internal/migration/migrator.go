// Package migration upgrades persisted records of legacy shape to the
// current shape at load time. Every function here is pure and total:
// unknown or missing fields receive defaults, nothing ever fails.
package migration

import (
	"github.com/Paypay0in/my-trippie/internal/domain"
)

// MigrateExpense fills the defaults a current-shape expense record must
// carry. Legacy records predate the cash split (現金 instead of 台幣現金 /
// 外幣現金) and the payer/split fields.
func MigrateExpense(e domain.Expense) domain.Expense {
	if e.PaymentMethod == domain.PaymentLegacyCash {
		if e.Currency == domain.HomeCurrency {
			e.PaymentMethod = domain.PaymentCashTWD
		} else {
			e.PaymentMethod = domain.PaymentCashForeign
		}
	}
	if e.PayerID == "" {
		e.PayerID = domain.SelfID
		e.Beneficiaries = []string{domain.SelfID}
	}
	if e.SplitMethod == "" {
		e.SplitMethod = domain.SplitEqual
		e.SplitAllocations = map[string]float64{}
	}
	if e.SplitAllocations == nil {
		e.SplitAllocations = map[string]float64{}
	}
	return e
}

// MigrateExpenses migrates a whole persisted expense slice.
func MigrateExpenses(expenses []domain.Expense) []domain.Expense {
	out := make([]domain.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = MigrateExpense(e)
	}
	return out
}

// MigrateShoppingList defaults the phase of legacy shopping items, which
// predate phase-scoped lists, to pre-trip.
func MigrateShoppingList(items []domain.ShoppingItem) []domain.ShoppingItem {
	out := make([]domain.ShoppingItem, len(items))
	for i, item := range items {
		if item.Phase == "" {
			item.Phase = domain.PhasePre
		}
		out[i] = item
	}
	return out
}

// MigrateTrips migrates archived trips recursively: nested expenses and
// shopping lists get the record-level migrations, companions default to an
// empty slice, and a tax rule is preserved when present.
func MigrateTrips(trips []domain.Trip) []domain.Trip {
	out := make([]domain.Trip, len(trips))
	for i, trip := range trips {
		trip.Expenses = MigrateExpenses(trip.Expenses)
		trip.ShoppingList = MigrateShoppingList(trip.ShoppingList)
		if trip.Companions == nil {
			trip.Companions = []domain.Companion{}
		}
		out[i] = trip
	}
	return out
}
