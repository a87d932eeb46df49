package service

import (
	"context"
	"strconv"
	"strings"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/store"
)

const receiptsPerPage = 20

func (s *Service) receiptFilter(req domain.ReceiptListRequest) (domain.ReceiptFilter, error) {
	dateRange, err := domain.ParseDateRange(req.StartDate, req.EndDate, s.loc)
	if err != nil {
		return domain.ReceiptFilter{}, err
	}
	filter := domain.ReceiptFilter{
		Range:       dateRange,
		Description: strings.TrimSpace(req.Description),
	}
	switch strings.ToLower(strings.TrimSpace(req.Ready)) {
	case "true":
		ready := true
		filter.Ready = &ready
	case "false":
		ready := false
		filter.Ready = &ready
	}
	return filter, nil
}

// ListReceipts pages the tenant's receipts newest first. Out-of-range page
// numbers are clamped to the nearest valid page.
func (s *Service) ListReceipts(ctx context.Context, req domain.ReceiptListRequest) (domain.ReceiptPage, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.ReceiptPage{}, err
	}
	filter, err := s.receiptFilter(req)
	if err != nil {
		return domain.ReceiptPage{}, err
	}

	page, err := strconv.Atoi(strings.TrimSpace(req.Page))
	if err != nil || page < 1 {
		page = 1
	}

	filter.Limit = receiptsPerPage
	filter.Offset = (page - 1) * receiptsPerPage
	receipts, total, err := s.repo.ListReceipts(ctx, actor.ProfileID, filter)
	if err != nil {
		return domain.ReceiptPage{}, storeErr(err)
	}

	totalPages := max(1, (total+receiptsPerPage-1)/receiptsPerPage)
	if page > totalPages {
		page = totalPages
		filter.Offset = (page - 1) * receiptsPerPage
		receipts, total, err = s.repo.ListReceipts(ctx, actor.ProfileID, filter)
		if err != nil {
			return domain.ReceiptPage{}, storeErr(err)
		}
	}

	profile, err := s.repo.GetProfile(ctx, actor.ProfileID)
	if err != nil {
		return domain.ReceiptPage{}, storeErr(err)
	}

	return domain.ReceiptPage{
		Receipts:   toReceiptViews(receipts),
		Page:       page,
		TotalPages: totalPages,
		TotalCount: total,
		Name:       profile.DisplayName(),
		Location:   profile.DisplayLocation(),
	}, nil
}

// ExportReceipts returns every receipt matching the filters, ignoring paging.
func (s *Service) ExportReceipts(ctx context.Context, req domain.ReceiptListRequest) ([]domain.ReceiptView, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := s.receiptFilter(req)
	if err != nil {
		return nil, err
	}
	receipts, _, err := s.repo.ListReceipts(ctx, actor.ProfileID, filter)
	if err != nil {
		return nil, storeErr(err)
	}
	return toReceiptViews(receipts), nil
}

func (s *Service) ToggleReceiptReady(ctx context.Context, receiptID int64) (domain.ReceiptReadyResponse, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.ReceiptReadyResponse{}, err
	}
	if receiptID < 1 {
		return domain.ReceiptReadyResponse{}, store.ErrNotFound
	}
	receipt, err := s.repo.ToggleReceiptReady(ctx, actor.ProfileID, receiptID)
	if err != nil {
		return domain.ReceiptReadyResponse{}, storeErr(err)
	}

	s.logAudit(ctx, actor.ProfileID, "receipt_toggle_ready", "receipt", strconv.FormatInt(receipt.ID, 10), "ready="+strconv.FormatBool(receipt.Ready))
	return domain.ReceiptReadyResponse{ID: receipt.ID, Ready: receipt.Ready}, nil
}

func toReceiptViews(receipts []domain.Receipt) []domain.ReceiptView {
	views := make([]domain.ReceiptView, 0, len(receipts))
	for _, r := range receipts {
		views = append(views, domain.ReceiptView{Receipt: r, Total: r.Total().StringFixed(2)})
	}
	return views
}
