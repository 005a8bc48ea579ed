package tracking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dagma-cali/reportes-360/internal/models"
)

// Store is the persistence surface the tracking service needs.
type Store interface {
	ReportExists(ctx context.Context, reportID string) (bool, error)
	GetTracking(ctx context.Context, reportID string) (*models.TrackingInfo, bool, error)
	SaveTracking(ctx context.Context, info *models.TrackingInfo) error
	AppendProgress(ctx context.Context, entry *models.ProgressEntry) error
	ListProgress(ctx context.Context, reportID string) ([]*models.ProgressEntry, error)
	ListTracking(ctx context.Context) ([]*models.TrackingInfo, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// ProgressInput is a request to record an advance on a report.
type ProgressInput struct {
	NewStatus   string          `json:"new_status"`
	Description string          `json:"description"`
	Author      string          `json:"author"`
	Progress    int             `json:"progress"`
	Evidences   []EvidenceInput `json:"evidences"`
}

type EvidenceInput struct {
	Kind        string `json:"kind"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// RecordProgress validates and stores a new advance, moving the report's
// tracking state forward. Progress can never decrease.
func (s *Service) RecordProgress(ctx context.Context, reportID string, in ProgressInput) (*models.ProgressEntry, *models.TrackingInfo, error) {
	if err := validateProgressInput(in); err != nil {
		return nil, nil, err
	}

	exists, err := s.store.ReportExists(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, ErrReportNotFound
	}

	info, err := s.trackingOrDefault(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}

	if !CanTransition(info.Status, in.NewStatus) {
		return nil, nil, &InvalidTransitionError{From: info.Status, To: in.NewStatus}
	}
	if in.Progress < info.Progress {
		return nil, nil, invalid("progress", "cannot decrease from %d to %d", info.Progress, in.Progress)
	}
	if !checkProgressForStatus(in.NewStatus, in.Progress) {
		return nil, nil, invalid("progress", "%d%% is not coherent with status %q", in.Progress, in.NewStatus)
	}

	now := s.now().UTC()
	entry := &models.ProgressEntry{
		ID:             uuid.New().String(),
		ReportID:       reportID,
		Author:         strings.TrimSpace(in.Author),
		Description:    strings.TrimSpace(in.Description),
		PreviousStatus: info.Status,
		NewStatus:      in.NewStatus,
		Progress:       in.Progress,
		CreatedAt:      now,
	}
	for _, ev := range in.Evidences {
		entry.Evidences = append(entry.Evidences, models.Evidence{
			ID:          uuid.New().String(),
			Kind:        ev.Kind,
			URL:         ev.URL,
			Description: ev.Description,
		})
	}

	if err := s.store.AppendProgress(ctx, entry); err != nil {
		return nil, nil, err
	}

	info.Status = in.NewStatus
	info.Progress = in.Progress
	info.UpdatedAt = now
	if err := s.store.SaveTracking(ctx, info); err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("report_id", reportID).
		Str("status", in.NewStatus).
		Int("progress", in.Progress).
		Msg("Progress recorded")

	return entry, info, nil
}

// AssignManager sets the responsible official and management center.
func (s *Service) AssignManager(ctx context.Context, reportID, manager, center string) (*models.TrackingInfo, error) {
	manager = strings.TrimSpace(manager)
	center = strings.TrimSpace(center)
	if manager == "" {
		return nil, invalid("manager", "must not be empty")
	}
	if center == "" {
		return nil, invalid("management_center", "must not be empty")
	}

	exists, err := s.store.ReportExists(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrReportNotFound
	}

	info, err := s.trackingOrDefault(ctx, reportID)
	if err != nil {
		return nil, err
	}
	info.Manager = manager
	info.ManagementCenter = center
	info.UpdatedAt = s.now().UTC()

	if err := s.store.SaveTracking(ctx, info); err != nil {
		return nil, err
	}
	return info, nil
}

// SetPriority changes the report's priority level.
func (s *Service) SetPriority(ctx context.Context, reportID, priority string) (*models.TrackingInfo, error) {
	if !ValidPriority(priority) {
		return nil, invalid("priority", "must be one of %s", strings.Join(Priorities, ", "))
	}

	exists, err := s.store.ReportExists(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrReportNotFound
	}

	info, err := s.trackingOrDefault(ctx, reportID)
	if err != nil {
		return nil, err
	}
	info.Priority = priority
	info.UpdatedAt = s.now().UTC()

	if err := s.store.SaveTracking(ctx, info); err != nil {
		return nil, err
	}
	return info, nil
}

// History returns a report's progress entries, newest first.
func (s *Service) History(ctx context.Context, reportID string) ([]*models.ProgressEntry, error) {
	exists, err := s.store.ReportExists(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrReportNotFound
	}

	entries, err := s.store.ListProgress(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.ProgressEntry{}
	}
	return entries, nil
}

// CenterStats aggregates resolution counts per management center.
type CenterStats struct {
	Name       string `json:"name"`
	Total      int    `json:"total"`
	Resolved   int    `json:"resolved"`
	InProgress int    `json:"in_progress"`
}

// Stats are the tracking-wide aggregates.
type Stats struct {
	TotalReports    int            `json:"total_reports"`
	AverageProgress int            `json:"average_progress"`
	ByStatus        map[string]int `json:"by_status"`
	ByPriority      map[string]int `json:"by_priority"`
	ByCenter        []CenterStats  `json:"by_center"`
}

// Stats computes aggregates over every tracked report.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	infos, err := s.store.ListTracking(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ByStatus:   make(map[string]int, len(Statuses)),
		ByPriority: make(map[string]int, len(Priorities)),
		ByCenter:   []CenterStats{},
	}
	for _, st := range Statuses {
		stats.ByStatus[st] = 0
	}
	for _, p := range Priorities {
		stats.ByPriority[p] = 0
	}

	centers := make(map[string]*CenterStats)
	var centerOrder []string
	progressSum := 0

	for _, info := range infos {
		stats.TotalReports++
		stats.ByStatus[info.Status]++
		stats.ByPriority[info.Priority]++
		progressSum += info.Progress

		if info.ManagementCenter == "" {
			continue
		}
		c, ok := centers[info.ManagementCenter]
		if !ok {
			c = &CenterStats{Name: info.ManagementCenter}
			centers[info.ManagementCenter] = c
			centerOrder = append(centerOrder, info.ManagementCenter)
		}
		c.Total++
		if info.Status == StatusResolved || info.Status == StatusClosed {
			c.Resolved++
		} else {
			c.InProgress++
		}
	}

	if stats.TotalReports > 0 {
		stats.AverageProgress = progressSum / stats.TotalReports
	}
	for _, name := range centerOrder {
		stats.ByCenter = append(stats.ByCenter, *centers[name])
	}
	return stats, nil
}

// trackingOrDefault loads the tracking row for a report, or builds the
// default state for a report never touched by the tracking system.
func (s *Service) trackingOrDefault(ctx context.Context, reportID string) (*models.TrackingInfo, error) {
	info, found, err := s.store.GetTracking(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if found {
		return info, nil
	}
	now := s.now().UTC()
	return &models.TrackingInfo{
		ReportID:  reportID,
		Status:    StatusNotified,
		Priority:  PriorityMedium,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func validateProgressInput(in ProgressInput) error {
	if !ValidStatus(in.NewStatus) {
		return invalid("new_status", "unknown status %q", in.NewStatus)
	}
	if len(strings.TrimSpace(in.Description)) < 10 {
		return invalid("description", "must be at least 10 characters")
	}
	if strings.TrimSpace(in.Author) == "" {
		return invalid("author", "must not be empty")
	}
	if in.Progress < 0 || in.Progress > 100 {
		return invalid("progress", "must be between 0 and 100")
	}
	for _, ev := range in.Evidences {
		if !validEvidenceKind(ev.Kind) {
			return invalid("evidences", "kind must be %q or %q", EvidencePhoto, EvidenceDocument)
		}
		if strings.TrimSpace(ev.URL) == "" {
			return invalid("evidences", "url must not be empty")
		}
	}
	return nil
}
