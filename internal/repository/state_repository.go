package repository

import (
	"context"
	"fmt"
)

// RepositoryError represents an error that occurred within a repository
type RepositoryError struct {
	// Op is the operation that failed
	Op string

	// Err is the underlying error
	Err error
}

// Error returns a string representation of the error
func (e *RepositoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

// Unwrap returns the underlying error
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// StateKey names an independently persisted slice of application state.
// Writing one slice never requires rewriting another.
type StateKey string

const (
	KeyExpenses      StateKey = "expenses"
	KeyCompanions    StateKey = "companions"
	KeyShoppingList  StateKey = "shopping_list"
	KeyTripHistory   StateKey = "trip_history"
	KeyCountry       StateKey = "country"
	KeyTaxRule       StateKey = "tax_rule"
	KeyDraftName     StateKey = "draft_name"
	KeyTripStartDate StateKey = "trip_start_date"
	KeyTripEndDate   StateKey = "trip_end_date"
	KeyCurrentTripID StateKey = "current_trip_id"
)

// StateRepository persists named JSON-serializable slices of application
// state in durable key-scoped storage.
//
// Get unmarshals the stored document into out and reports whether the key
// existed. Set serializes and overwrites a single key. Delete removes a key
// (absent keys are not an error). SetMany applies a batch of writes where a
// nil value means delete; backends apply the batch atomically when they can,
// otherwise writes land in map-iteration order with no cross-key guarantee.
type StateRepository interface {
	Get(ctx context.Context, key StateKey, out any) (bool, error)
	Set(ctx context.Context, key StateKey, value any) error
	Delete(ctx context.Context, key StateKey) error
	SetMany(ctx context.Context, changes map[StateKey]any) error
}
