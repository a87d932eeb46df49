package service

import (
	"context"
	"fmt"
	"strconv"

	"savdo/backend/internal/cart"
	"savdo/backend/internal/domain"
	"savdo/backend/internal/session"
	"savdo/backend/internal/store"
)

func sessionKey(actor domain.Actor) session.Key {
	return session.Key{ProfileID: actor.ProfileID, SessionID: actor.SessionID}
}

func (s *Service) loadCart(ctx context.Context) (domain.Actor, cart.State, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.Actor{}, cart.State{}, err
	}
	state, err := s.sessions.Load(ctx, sessionKey(actor))
	if err != nil {
		return domain.Actor{}, cart.State{}, fmt.Errorf("%w: load cart: %w", store.ErrStoreUnavailable, err)
	}
	return actor, state, nil
}

func (s *Service) saveCart(ctx context.Context, actor domain.Actor, state cart.State) error {
	if err := s.sessions.Save(ctx, sessionKey(actor), state); err != nil {
		return fmt.Errorf("%w: save cart: %w", store.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Service) ViewCart(ctx context.Context) (domain.CartView, error) {
	_, state, err := s.loadCart(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	return state.View(), nil
}

func (s *Service) SelectActiveCart(ctx context.Context, slot int) (domain.CartView, error) {
	actor, state, err := s.loadCart(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	next, err := state.Select(slot)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.saveCart(ctx, actor, next); err != nil {
		return domain.CartView{}, err
	}
	return next.View(), nil
}

// AddToCart captures the product's current name and selling price on the
// first add. Later adds of the same product only grow the quantity.
func (s *Service) AddToCart(ctx context.Context, productID int64, rawQuantity string) (domain.CartView, error) {
	actor, state, err := s.loadCart(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	product, err := s.repo.GetProduct(ctx, actor.ProfileID, productID)
	if err != nil {
		return domain.CartView{}, storeErr(err)
	}
	qty, err := cart.ParseQuantity(rawQuantity)
	if err != nil {
		return domain.CartView{}, err
	}

	next, err := state.Add(product.ID, product.Name, product.SellingPrice, qty)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.saveCart(ctx, actor, next); err != nil {
		return domain.CartView{}, err
	}
	return next.View(), nil
}

func (s *Service) RemoveFromCart(ctx context.Context, productID int64) (domain.CartView, error) {
	actor, state, err := s.loadCart(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	next, err := state.Remove(productID)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.saveCart(ctx, actor, next); err != nil {
		return domain.CartView{}, err
	}
	return next.View(), nil
}

// Checkout turns the active slot into a receipt. Stock decrements and the
// receipt are written in one repository call; the slot is cleared only after
// that call succeeds, so a failed checkout leaves the cart as it was.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	actor, state, err := s.loadCart(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if state.IsEmpty() {
		return domain.CheckoutResponse{}, cart.ErrEmptyCart
	}

	lines := state.Lines()
	sale := domain.Sale{
		ProfileID:   actor.ProfileID,
		Username:    actor.Username,
		Description: req.Description,
		CreatedAt:   s.now().UTC(),
		Lines:       make([]domain.SaleLine, 0, len(lines)),
	}
	for _, line := range lines {
		sale.Lines = append(sale.Lines, domain.SaleLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}

	receipt, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.CheckoutResponse{}, storeErr(err)
	}

	if err := s.sessions.Save(ctx, sessionKey(actor), state.ClearActive()); err != nil {
		logger.Warn().Err(err).Int64("receipt_id", receipt.ID).Msg("receipt committed but cart slot was not cleared")
	}

	profile, err := s.repo.GetProfile(ctx, actor.ProfileID)
	if err != nil {
		logger.Warn().Err(err).Int64("profile_id", actor.ProfileID).Msg("failed to load profile for receipt header")
	}

	resp := domain.CheckoutResponse{
		ReceiptID: receipt.ID,
		Items:     make([]domain.CheckoutItem, 0, len(receipt.Items)),
		Total:     receipt.Total().StringFixed(2),
		Name:      profile.DisplayName(),
		Location:  profile.DisplayLocation(),
	}
	for _, item := range receipt.Items {
		resp.Items = append(resp.Items, domain.CheckoutItem{
			Name:     item.ProductName,
			Price:    item.Price.StringFixed(2),
			Quantity: item.Quantity.String(),
			Total:    item.LineTotal().StringFixed(2),
		})
	}

	s.logAudit(ctx, actor.ProfileID, "checkout", "receipt", strconv.FormatInt(receipt.ID, 10),
		fmt.Sprintf("slot=%d,lines=%d,total=%s", state.ActiveSlot(), len(receipt.Items), resp.Total))

	return resp, nil
}
