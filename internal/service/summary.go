package service

import (
	"context"

	"github.com/Paypay0in/my-trippie/internal/domain"
)

// Summary aggregates the draft's home-currency totals by phase and by
// category for the settlement view.
func (s *LedgerServiceImpl) Summary(ctx context.Context) domain.SummaryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := domain.SummaryStats{
		ByPhase:    map[domain.Phase]float64{},
		ByCategory: map[string]float64{},
	}
	for _, e := range s.draft.Expenses {
		stats.TotalHome += e.HomeAmount
		stats.ByPhase[e.Phase] += e.HomeAmount
		stats.ByCategory[string(e.Category)] += e.HomeAmount
	}
	return stats
}

// Settlement computes each person's position across the draft. The split
// method decides which structure is read: EQUAL divides the home amount
// over the beneficiaries, PERCENT and EXACT read the allocation map. The
// inactive structure is never consulted even when it holds stale data.
func (s *LedgerServiceImpl) Settlement(ctx context.Context) []domain.SettlementShare {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := map[string]string{domain.SelfID: "我"}
	order := []string{domain.SelfID}
	for _, c := range s.draft.Companions {
		names[c.ID] = c.Name
		order = append(order, c.ID)
	}

	paid := map[string]float64{}
	share := map[string]float64{}
	ensure := func(id string) {
		if _, ok := names[id]; !ok {
			names[id] = "未知"
			order = append(order, id)
		}
	}

	for _, e := range s.draft.Expenses {
		ensure(e.PayerID)
		paid[e.PayerID] += e.HomeAmount

		if e.SplitMethod == domain.SplitEqual {
			if len(e.Beneficiaries) == 0 {
				continue
			}
			portion := e.HomeAmount / float64(len(e.Beneficiaries))
			for _, id := range e.Beneficiaries {
				ensure(id)
				share[id] += portion
			}
		} else {
			for id, amount := range e.SplitAllocations {
				ensure(id)
				share[id] += amount
			}
		}
	}

	shares := make([]domain.SettlementShare, 0, len(order))
	for _, id := range order {
		shares = append(shares, domain.SettlementShare{
			ID:    id,
			Name:  names[id],
			Paid:  paid[id],
			Share: share[id],
			Net:   paid[id] - share[id],
		})
	}
	return shares
}
