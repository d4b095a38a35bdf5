package service

import (
	"context"

	"github.com/avvvet/ticket-services/internal/dashboard"
	"github.com/avvvet/ticket-services/internal/models"
)

type BalanceSource interface {
	MonthlyBalance(ctx context.Context, year, month int) (*models.DashboardSummary, error)
}

type DashboardService struct {
	source BalanceSource
}

func NewDashboardService(source BalanceSource) *DashboardService {
	return &DashboardService{source: source}
}

// Load fetches the summary of year/month and renders it.
func (s *DashboardService) Load(ctx context.Context, year, month int) (*dashboard.View, error) {
	if err := dashboard.ValidMonth(year, month); err != nil {
		return nil, err
	}
	summary, err := s.source.MonthlyBalance(ctx, year, month)
	if err != nil {
		return nil, err
	}
	return dashboard.Render(summary, year, month), nil
}
