package service

import (
	"context"
	"strings"

	"savdo/backend/internal/dashboard"
	"savdo/backend/internal/domain"
)

// Dashboard aggregates the receipts inside the requested range, and the part
// of them created today, against one snapshot of the live catalog.
func (s *Service) Dashboard(ctx context.Context, startDate string, endDate string) (domain.DashboardResponse, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	filteredRange, err := domain.ParseDateRange(startDate, endDate, s.loc)
	if err != nil {
		return domain.DashboardResponse{}, err
	}

	products, err := s.repo.ListProducts(ctx, actor.ProfileID)
	if err != nil {
		return domain.DashboardResponse{}, storeErr(err)
	}
	catalog := dashboard.NewCatalog(products)

	now := s.now()
	todayReceipts, _, err := s.repo.ListReceipts(ctx, actor.ProfileID, domain.ReceiptFilter{Range: domain.DayRange(now, s.loc).Intersect(filteredRange)})
	if err != nil {
		return domain.DashboardResponse{}, storeErr(err)
	}
	filteredReceipts, _, err := s.repo.ListReceipts(ctx, actor.ProfileID, domain.ReceiptFilter{Range: filteredRange})
	if err != nil {
		return domain.DashboardResponse{}, storeErr(err)
	}

	return domain.DashboardResponse{
		Date:      now.In(s.loc).Format(domain.DateLayout),
		StartDate: strings.TrimSpace(startDate),
		EndDate:   strings.TrimSpace(endDate),
		Today:     dashboard.Aggregate(todayReceipts, catalog),
		Filtered:  dashboard.Aggregate(filteredReceipts, catalog),
	}, nil
}
