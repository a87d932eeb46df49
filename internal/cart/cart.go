// Package cart holds the per-session cart slots as an immutable value.
// Every operation takes a State and returns a new one, so callers decide
// when the result is persisted.
package cart

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"savdo/backend/internal/domain"
)

const (
	SlotCount     = 3
	DefaultSlot   = 1
	QuantityScale = 3
)

// MaxQuantity is the exclusive upper bound of a line quantity, matching the
// twelve integer digits the receipt and stock columns hold.
var MaxQuantity = decimal.New(1, 12)

var (
	ErrInvalidSlot     = errors.New("cart slot must be 1, 2 or 3")
	ErrInvalidQuantity = errors.New("quantity must be a positive number")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrLineNotFound    = errors.New("product is not in the cart")
)

type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity)
}

type Slot struct {
	Lines []Line `json:"lines"`
}

type State struct {
	Active int             `json:"active"`
	Slots  [SlotCount]Slot `json:"slots"`
}

func New() State {
	return State{Active: DefaultSlot}
}

// ActiveSlot clamps whatever was stored to a valid slot number.
func (s State) ActiveSlot() int {
	if s.Active < 1 || s.Active > SlotCount {
		return DefaultSlot
	}
	return s.Active
}

func (s State) Select(slot int) (State, error) {
	if slot < 1 || slot > SlotCount {
		return s, ErrInvalidSlot
	}
	next := s.clone()
	next.Active = slot
	return next, nil
}

// Add puts qty of a product into the active slot. An existing line keeps the
// price and name captured on its first add and only accumulates quantity.
func (s State) Add(productID int64, name string, price decimal.Decimal, qty decimal.Decimal) (State, error) {
	if !qty.IsPositive() || qty.GreaterThanOrEqual(MaxQuantity) {
		return s, ErrInvalidQuantity
	}
	next := s.clone()
	idx := next.ActiveSlot() - 1
	lines := next.Slots[idx].Lines
	for i := range lines {
		if lines[i].ProductID == productID {
			total := lines[i].Quantity.Add(qty)
			if total.GreaterThanOrEqual(MaxQuantity) {
				return s, ErrInvalidQuantity
			}
			lines[i].Quantity = total
			return next, nil
		}
	}
	next.Slots[idx].Lines = append(lines, Line{
		ProductID: productID,
		Name:      name,
		UnitPrice: price,
		Quantity:  qty,
	})
	return next, nil
}

func (s State) Remove(productID int64) (State, error) {
	next := s.clone()
	idx := next.ActiveSlot() - 1
	lines := next.Slots[idx].Lines
	for i := range lines {
		if lines[i].ProductID == productID {
			next.Slots[idx].Lines = append(lines[:i], lines[i+1:]...)
			return next, nil
		}
	}
	return s, ErrLineNotFound
}

// Lines returns a copy of the active slot's lines in insertion order.
func (s State) Lines() []Line {
	src := s.Slots[s.ActiveSlot()-1].Lines
	out := make([]Line, len(src))
	copy(out, src)
	return out
}

func (s State) IsEmpty() bool {
	return len(s.Slots[s.ActiveSlot()-1].Lines) == 0
}

// ClearActive empties the active slot and leaves the others untouched.
func (s State) ClearActive() State {
	next := s.clone()
	next.Active = next.ActiveSlot()
	next.Slots[next.Active-1].Lines = nil
	return next
}

func (s State) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Slots[s.ActiveSlot()-1].Lines {
		total = total.Add(line.Total())
	}
	return total
}

func (s State) View() domain.CartView {
	lines := s.Slots[s.ActiveSlot()-1].Lines
	rows := make([]domain.CartRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, domain.CartRow{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.UnitPrice.StringFixed(2),
			Quantity:  line.Quantity.String(),
			Total:     line.Total().StringFixed(2),
		})
	}
	return domain.CartView{ActiveCart: s.ActiveSlot(), Rows: rows}
}

func (s State) clone() State {
	next := State{Active: s.Active}
	for i := range s.Slots {
		if len(s.Slots[i].Lines) == 0 {
			continue
		}
		lines := make([]Line, len(s.Slots[i].Lines))
		copy(lines, s.Slots[i].Lines)
		next.Slots[i].Lines = lines
	}
	return next
}

// ParseQuantity accepts "." or "," as the decimal separator. Blank input means 1.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "1"
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	qty, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidQuantity
	}
	if !qty.IsPositive() || !qty.Equal(qty.Truncate(QuantityScale)) || qty.GreaterThanOrEqual(MaxQuantity) {
		return decimal.Zero, ErrInvalidQuantity
	}
	return qty, nil
}
