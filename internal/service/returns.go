package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"savdo/backend/internal/cart"
	"savdo/backend/internal/domain"
)

// ProcessReturn restocks a product and issues a ready receipt carrying a
// negative line, so revenue over receipts nets the return out.
func (s *Service) ProcessReturn(ctx context.Context, req domain.ReturnRequest) (domain.ReturnResponse, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.ReturnResponse{}, err
	}
	if strings.TrimSpace(req.Quantity) == "" {
		return domain.ReturnResponse{}, cart.ErrInvalidQuantity
	}
	qty, err := cart.ParseQuantity(req.Quantity)
	if err != nil {
		return domain.ReturnResponse{}, err
	}

	ret, receipt, err := s.repo.CreateReturn(ctx, domain.ReturnedProduct{
		ProfileID: actor.ProfileID,
		Username:  actor.Username,
		ProductID: req.ProductID,
		Quantity:  qty,
		Reason:    strings.TrimSpace(req.Reason),
		Date:      s.now().UTC(),
	})
	if err != nil {
		return domain.ReturnResponse{}, storeErr(err)
	}

	s.logAudit(ctx, actor.ProfileID, "product_return", "product", strconv.FormatInt(ret.ProductID, 10),
		fmt.Sprintf("qty=%s,receipt=%d", ret.Quantity, receipt.ID))

	return domain.ReturnResponse{Return: *ret, Receipt: *receipt}, nil
}

func (s *Service) ListReturns(ctx context.Context, startDate string, endDate string) ([]domain.ReturnedProduct, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	dateRange, err := domain.ParseDateRange(startDate, endDate, s.loc)
	if err != nil {
		return nil, err
	}
	returns, err := s.repo.ListReturns(ctx, actor.ProfileID, dateRange)
	return returns, storeErr(err)
}
