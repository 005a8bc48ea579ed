package reports

import (
	"context"
	"strings"
	"time"

	"github.com/dagma-cali/reportes-360/internal/models"
)

// Service implements the history, recent-activity and dashboard operations
// over a ReportStore. Range and equality predicates are pushed down to the
// store; substring search is refined in memory because the store has no
// partial-text primitive.
type Service struct {
	store   ReportStore
	pending PendingPolicy
	loc     *time.Location
	now     func() time.Time
}

// PendingPolicy decides how many reports count as pending on the dashboard.
type PendingPolicy func(ctx context.Context) (int, error)

// ZeroPending is the current business rule: nothing feeds the pending figure
// yet, so the dashboard always reports zero. Swap the policy when it does.
func ZeroPending(_ context.Context) (int, error) {
	return 0, nil
}

func NewService(store ReportStore, pending PendingPolicy, loc *time.Location) *Service {
	if pending == nil {
		pending = ZeroPending
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:   store,
		pending: pending,
		loc:     loc,
		now:     time.Now,
	}
}

// PageResult is the output of a history query.
type PageResult struct {
	Reports    []*models.Report
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
	HasNext    bool
	HasPrev    bool
	Filters    AppliedFilters
}

// History runs the filter-and-paginate pipeline for a history request.
func (s *Service) History(ctx context.Context, spec QuerySpec) (*PageResult, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	q := ReportQuery{}
	if spec.Year != nil {
		from, to := s.dateWindow(*spec.Year, spec.Month)
		q.CreatedFrom = &from
		q.CreatedTo = &to
	}
	if spec.InterventionType != nil {
		q.InterventionType = *spec.InterventionType
	}

	items, err := s.store.FindReports(ctx, q)
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}

	filters := AppliedFilters{
		Year:             spec.Year,
		Month:            spec.Month,
		InterventionType: spec.InterventionType,
	}

	// The store cannot do partial-text search; refine here. Order from the
	// store (created_at descending) is preserved.
	if spec.Search != nil {
		needle := strings.TrimSpace(*spec.Search)
		items = filterBySearch(items, needle)
		filters.Search = &needle
	}

	total := len(items)
	totalPages := 0
	if total > 0 {
		totalPages = (total + spec.PageSize - 1) / spec.PageSize
	}

	start := (spec.Page - 1) * spec.PageSize
	if start > total {
		start = total
	}
	end := start + spec.PageSize
	if end > total {
		end = total
	}

	page := make([]*models.Report, 0, end-start)
	page = append(page, items[start:end]...)

	return &PageResult{
		Reports:    page,
		Page:       spec.Page,
		PageSize:   spec.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    spec.Page < totalPages,
		HasPrev:    spec.Page > 1,
		Filters:    filters,
	}, nil
}

// Recent returns the limit most recent reports, newest first. No filters,
// no pagination metadata.
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.Report, error) {
	if limit < 1 || limit > MaxRecentLimit {
		return nil, invalidParam("limit", "must be between 1 and %d", MaxRecentLimit)
	}

	items, err := s.store.FindReports(ctx, ReportQuery{Limit: limit})
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}
	if items == nil {
		items = []*models.Report{}
	}
	return items, nil
}

// dateWindow builds the half-open [from, to) creation-time range for a year
// or a year+month, in the service's configured timezone. time.Date normalizes
// month 13, which handles the December→January rollover.
func (s *Service) dateWindow(year int, month *int) (time.Time, time.Time) {
	if month == nil {
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
		return from, time.Date(year+1, time.January, 1, 0, 0, 0, 0, s.loc)
	}
	from := time.Date(year, time.Month(*month), 1, 0, 0, 0, 0, s.loc)
	to := time.Date(year, time.Month(*month+1), 1, 0, 0, 0, 0, s.loc)
	return from, to
}

// filterBySearch keeps reports whose address, description or intervention
// type contains the needle, case-insensitively. Plain substring match, no
// accent folding: "parque" matches "Parque San Antonio" but not "párque".
func filterBySearch(items []*models.Report, needle string) []*models.Report {
	needle = strings.ToLower(needle)
	kept := make([]*models.Report, 0, len(items))
	for _, r := range items {
		if strings.Contains(strings.ToLower(r.Address), needle) ||
			strings.Contains(strings.ToLower(r.Description), needle) ||
			strings.Contains(strings.ToLower(r.InterventionType), needle) {
			kept = append(kept, r)
		}
	}
	return kept
}
