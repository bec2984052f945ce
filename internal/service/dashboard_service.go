package service

import (
	"context"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/pkg/apierror"
)

type DashboardService struct {
	dashboard *repository.DashboardRepository
}

func NewDashboardService(dashboard *repository.DashboardRepository) *DashboardService {
	return &DashboardService{dashboard: dashboard}
}

func (s *DashboardService) Overview(ctx context.Context, requester *model.AuthClaims) (model.DashboardOverview, error) {
	return s.dashboard.Overview(ctx, requester.UserID)
}

func (s *DashboardService) Charts(ctx context.Context, requester *model.AuthClaims) (model.DashboardCharts, error) {
	byStatus, err := s.dashboard.TasksByStatus(ctx, requester.UserID)
	if err != nil {
		return model.DashboardCharts{}, err
	}
	byPriority, err := s.dashboard.TasksByPriority(ctx, requester.UserID)
	if err != nil {
		return model.DashboardCharts{}, err
	}
	return model.DashboardCharts{TasksByStatus: byStatus, TasksByPriority: byPriority}, nil
}

// Calendar returns tasks whose due window overlaps [from, until].
// Defaults to the current month when either bound is missing.
func (s *DashboardService) Calendar(ctx context.Context, fromRaw string, untilRaw string, requester *model.AuthClaims) ([]model.CalendarTask, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	if fromRaw != "" {
		parsed, err := parseDate(fromRaw)
		if err != nil {
			return nil, apierror.BadRequest("invalid from date", fromRaw)
		}
		from = parsed
	}
	if untilRaw != "" {
		parsed, err := parseDate(untilRaw)
		if err != nil {
			return nil, apierror.BadRequest("invalid until date", untilRaw)
		}
		until = parsed
	}
	if until.Before(from) {
		return nil, apierror.BadRequest("until cannot precede from", "")
	}

	return s.dashboard.CalendarTasks(ctx, requester.UserID, from, until)
}

func (s *DashboardService) Workload(ctx context.Context, requester *model.AuthClaims) ([]model.MemberWorkload, error) {
	return s.dashboard.Workload(ctx, requester.UserID)
}
