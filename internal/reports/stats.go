package reports

import (
	"context"
	"time"
)

// DashboardStats are the aggregates shown on the dashboard home card.
type DashboardStats struct {
	TotalVisitsThisMonth   int `json:"total_visits_this_month"`
	TotalPending           int `json:"total_pending"`
	UniqueLocationsVisited int `json:"unique_locations_visited"`
}

// Stats computes the aggregates for the calendar month containing now,
// evaluated in the service's configured timezone.
func (s *Service) Stats(ctx context.Context) (*DashboardStats, error) {
	now := s.now().In(s.loc)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 1, 0)

	items, err := s.store.FindReports(ctx, ReportQuery{CreatedFrom: &from, CreatedTo: &to})
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}

	// Distinct addresses by exact string equality. No case or whitespace
	// normalization: "Parque del Perro" and "parque del perro" count twice.
	locations := make(map[string]struct{}, len(items))
	for _, r := range items {
		locations[r.Address] = struct{}{}
	}

	pending, err := s.pending(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalVisitsThisMonth:   len(items),
		TotalPending:           pending,
		UniqueLocationsVisited: len(locations),
	}, nil
}
