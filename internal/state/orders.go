package state

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/anvargas/tiendaluz-core/pkg/enums"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
)

// Orders returns a copy of the order collection.
func (s *Store) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, len(s.data.Orders))
	for i, o := range s.data.Orders {
		o.Items = append([]LineItem(nil), o.Items...)
		out[i] = o
	}
	return out
}

// OrderByID returns a copy of one order.
func (s *Store) OrderByID(id int64) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.orderLocked(id); o != nil {
		cp := *o
		cp.Items = append([]LineItem(nil), o.Items...)
		return cp, true
	}
	return Order{}, false
}

// AddOrder assigns a sequence-derived order number and stores the order in
// the pending state.
func (s *Store) AddOrder(actor string, o Order) (Order, error) {
	s.mu.Lock()
	if o.ID == 0 {
		ids := make([]int64, len(s.data.Orders))
		for i, existing := range s.data.Orders {
			ids[i] = existing.ID
		}
		o.ID = nextID(ids, s.data.Settings.OrderSeqStart)
	}
	if o.ID > s.data.Settings.OrderSeqStart {
		s.data.Settings.OrderSeqStart = o.ID
	}
	if !o.Status.IsValid() {
		o.Status = enums.OrderStatusPending
	}
	now := s.now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	s.data.Orders = append(s.data.Orders, o)
	s.logActivityLocked(actor, enums.ActivityOrder, fmt.Sprintf("order %d created", o.ID))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return o, nil
}

// AdvanceOrder moves an order to the next lifecycle state. Skipping states or
// moving backwards is rejected; completed is terminal.
func (s *Store) AdvanceOrder(actor string, id int64, next enums.OrderStatus) error {
	if !next.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	s.mu.Lock()
	o := s.orderLocked(id)
	if o == nil {
		s.mu.Unlock()
		return notFound("order")
	}
	if !o.Status.CanAdvanceTo(next) {
		current := o.Status
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("order cannot move from %s to %s", current, next))
	}
	o.Status = next
	o.UpdatedAt = s.now()
	s.logActivityLocked(actor, enums.ActivityOrder, fmt.Sprintf("order %d moved to %s", id, next))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return nil
}

func (s *Store) orderLocked(id int64) *Order {
	for i := range s.data.Orders {
		if s.data.Orders[i].ID == id {
			return &s.data.Orders[i]
		}
	}
	return nil
}

// Purchases returns a copy of the purchase collection.
func (s *Store) Purchases() []Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Purchase, len(s.data.Purchases))
	for i, p := range s.data.Purchases {
		p.Items = append([]PurchaseItem(nil), p.Items...)
		out[i] = p
	}
	return out
}

// AddPurchase completes immediately: received quantities enter stock and the
// purchase total leaves the drawer as an expense.
func (s *Store) AddPurchase(actor string, p Purchase) (Purchase, error) {
	if len(p.Items) == 0 {
		return Purchase{}, pkgerrors.New(pkgerrors.CodeValidation, "purchase needs at least one item")
	}
	s.mu.Lock()
	if p.ID == 0 {
		ids := make([]int64, len(s.data.Purchases))
		for i, existing := range s.data.Purchases {
			ids[i] = existing.ID
		}
		p.ID = nextID(ids, 0)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if p.Total.IsZero() {
		total := decimal.Zero
		for _, item := range p.Items {
			total = total.Add(item.UnitCost.Mul(decimal.NewFromInt(int64(item.Qty))))
		}
		p.Total = total
	}

	for _, item := range p.Items {
		s.adjustStockLocked(item.ProductID, item.Qty, enums.StockIn, "")
	}

	if p.Total.IsPositive() {
		mv := CashMovement{
			ID:        newMovementID(),
			Kind:      enums.CashFlowExpense,
			Channel:   enums.CashChannelDrawer,
			Amount:    p.Total,
			Category:  categoryPurchase,
			CreatedAt: s.now(),
		}
		s.data.CashMovements = append(s.data.CashMovements, mv)
	}

	s.data.Purchases = append(s.data.Purchases, p)
	s.logActivityLocked(actor, enums.ActivityPurchase, fmt.Sprintf("purchase %d: total %s", p.ID, p.Total))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return p, nil
}
