package state

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anvargas/tiendaluz-core/pkg/enums"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
)

const (
	categorySale     = "sale"
	categoryPayment  = "payment"
	categoryPurchase = "purchase"
)

func newMovementID() string {
	return uuid.NewString()
}

// Transactions returns a copy of the transaction collection.
func (s *Store) Transactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transaction, len(s.data.Transactions))
	for i, t := range s.data.Transactions {
		t.Items = append([]LineItem(nil), t.Items...)
		out[i] = t
	}
	return out
}

// TransactionByID returns a copy of one transaction.
func (s *Store) TransactionByID(id int64) (Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.transactionLocked(id); t != nil {
		cp := *t
		cp.Items = append([]LineItem(nil), t.Items...)
		return cp, true
	}
	return Transaction{}, false
}

// AddTransaction records a sale or return.
//
// An absent ID is assigned max-plus-one over existing ticket numbers with the
// configured sequence start as floor. A completed transaction with a customer
// and an unpaid balance increases that customer's debt exactly once. A
// positive paid amount on a cash-moving method emits cash movements tagged by
// channel, with split amounts divided by the declared cash portion.
func (s *Store) AddTransaction(actor string, tx Transaction) (Transaction, error) {
	if !tx.Method.IsValid() {
		return Transaction{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	s.mu.Lock()
	if tx.ID == 0 {
		ids := make([]int64, len(s.data.Transactions))
		for i, existing := range s.data.Transactions {
			ids[i] = existing.ID
		}
		tx.ID = nextID(ids, s.data.Settings.TicketSeqStart)
	}
	if tx.ID > s.data.Settings.TicketSeqStart {
		s.data.Settings.TicketSeqStart = tx.ID
	}
	if !tx.Status.IsValid() {
		tx.Status = enums.TransactionStatusCompleted
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	tx.PaymentStatus = paymentStatusFor(tx.Total, tx.AmountPaid)

	if tx.Status.CountsTowardDebt() && tx.CustomerID != nil {
		if outstanding := tx.Outstanding(); outstanding.IsPositive() {
			if c := s.customerLocked(*tx.CustomerID); c != nil {
				c.Debt = c.Debt.Add(outstanding)
			}
		}
	}

	if tx.AmountPaid.IsPositive() && tx.Method.MovesCash() {
		for _, mv := range s.movementsForPayment(tx.Method, tx.AmountPaid, tx.CashPortion, categorySale, &tx.ID, tx.CustomerID) {
			s.data.CashMovements = append(s.data.CashMovements, mv)
		}
	}

	s.data.Transactions = append(s.data.Transactions, tx)
	s.logActivityLocked(actor, enums.ActivitySale,
		fmt.Sprintf("ticket %d: total %s, paid %s (%s)", tx.ID, tx.Total, tx.AmountPaid, tx.Method))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return tx, nil
}

// RegisterTransactionPayment applies a partial or final payment to an
// existing transaction, reducing linked customer debt by the same amount.
// Credit-method payments carry no cash-drawer effect.
func (s *Store) RegisterTransactionPayment(actor string, id int64, amount decimal.Decimal, method enums.PaymentMethod) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	s.mu.Lock()
	tx := s.transactionLocked(id)
	if tx == nil {
		s.mu.Unlock()
		return Transaction{}, notFound("transaction")
	}

	tx.AmountPaid = tx.AmountPaid.Add(amount)
	tx.PaymentStatus = paymentStatusFor(tx.Total, tx.AmountPaid)

	if tx.CustomerID != nil {
		if c := s.customerLocked(*tx.CustomerID); c != nil {
			c.Debt = c.Debt.Sub(amount)
			if c.Debt.IsNegative() {
				c.Debt = decimal.Zero
			}
		}
	}

	if method.MovesCash() {
		for _, mv := range s.movementsForPayment(method, amount, decimal.Zero, categoryPayment, &tx.ID, tx.CustomerID) {
			s.data.CashMovements = append(s.data.CashMovements, mv)
		}
	}

	result := *tx
	result.Items = append([]LineItem(nil), tx.Items...)
	s.logActivityLocked(actor, enums.ActivityPayment,
		fmt.Sprintf("payment %s on ticket %d (%s)", amount, id, method))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return result, nil
}

// DeleteTransaction cancels a transaction: stock for the given items is
// reversed (direction in), linked customer debt is reduced by the remaining
// outstanding balance, cash movements derived from the ticket are removed,
// and the record itself is retained with a cancelled status for audit.
func (s *Store) DeleteTransaction(actor string, id int64, items []LineItem) error {
	s.mu.Lock()
	tx := s.transactionLocked(id)
	if tx == nil {
		s.mu.Unlock()
		return notFound("transaction")
	}
	if tx.Status == enums.TransactionStatusCancelled {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeConflict, "transaction already cancelled")
	}

	for _, item := range items {
		s.adjustStockLocked(item.ProductID, item.Qty, enums.StockIn, item.VariantID)
	}

	if tx.Status.CountsTowardDebt() && tx.CustomerID != nil {
		if outstanding := tx.Outstanding(); outstanding.IsPositive() {
			if c := s.customerLocked(*tx.CustomerID); c != nil {
				c.Debt = c.Debt.Sub(outstanding)
				if c.Debt.IsNegative() {
					c.Debt = decimal.Zero
				}
			}
		}
	}

	tx.Status = enums.TransactionStatusCancelled

	kept := s.data.CashMovements[:0]
	for _, mv := range s.data.CashMovements {
		if mv.TransactionID != nil && *mv.TransactionID == id {
			continue
		}
		kept = append(kept, mv)
	}
	s.data.CashMovements = kept

	s.logActivityLocked(actor, enums.ActivitySale, fmt.Sprintf("ticket %d cancelled", id))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return nil
}

func (s *Store) transactionLocked(id int64) *Transaction {
	for i := range s.data.Transactions {
		if s.data.Transactions[i].ID == id {
			return &s.data.Transactions[i]
		}
	}
	return nil
}

// movementsForPayment splits a paid amount into channel-tagged cash
// movements. Split payments land in two movements when both portions are
// positive; everything else is a single movement on its method's channel.
func (s *Store) movementsForPayment(method enums.PaymentMethod, amount, cashPortion decimal.Decimal, category string, txID, customerID *int64) []CashMovement {
	build := func(channel enums.CashChannel, amt decimal.Decimal) CashMovement {
		return CashMovement{
			ID:            uuid.NewString(),
			Kind:          enums.CashFlowDeposit,
			Channel:       channel,
			Amount:        amt,
			Category:      category,
			TransactionID: txID,
			CustomerID:    customerID,
			CreatedAt:     s.now(),
		}
	}

	switch method {
	case enums.PaymentMethodSplit:
		cash := cashPortion
		if cash.GreaterThan(amount) {
			cash = amount
		}
		if cash.IsNegative() {
			cash = decimal.Zero
		}
		other := amount.Sub(cash)
		var out []CashMovement
		if cash.IsPositive() {
			out = append(out, build(enums.CashChannelDrawer, cash))
		}
		if other.IsPositive() {
			out = append(out, build(enums.CashChannelOther, other))
		}
		return out
	case enums.PaymentMethodCash:
		return []CashMovement{build(enums.CashChannelDrawer, amount)}
	default:
		return []CashMovement{build(enums.CashChannelOther, amount)}
	}
}

// paymentStatusFor derives the payment status from amounts. Decimal
// comparison is exact, so no epsilon is needed.
func paymentStatusFor(total, paid decimal.Decimal) enums.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return enums.PaymentStatusPaid
	case paid.IsPositive():
		return enums.PaymentStatusPartial
	default:
		return enums.PaymentStatusPending
	}
}

// CashMovements returns a copy of the cash movement collection.
func (s *Store) CashMovements() []CashMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CashMovement(nil), s.data.CashMovements...)
}

// AddCashMovement records a manual drawer entry (deposit or expense).
func (s *Store) AddCashMovement(actor string, mv CashMovement) (CashMovement, error) {
	if !mv.Kind.IsValid() {
		return CashMovement{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid cash flow kind")
	}
	if !mv.Amount.IsPositive() {
		return CashMovement{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	s.mu.Lock()
	if mv.ID == "" {
		mv.ID = uuid.NewString()
	}
	if !mv.Channel.IsValid() {
		mv.Channel = enums.CashChannelDrawer
	}
	if mv.CreatedAt.IsZero() {
		mv.CreatedAt = s.now()
	}
	s.data.CashMovements = append(s.data.CashMovements, mv)
	s.logActivityLocked(actor, enums.ActivityCash, fmt.Sprintf("%s %s (%s)", mv.Kind, mv.Amount, mv.Category))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return mv, nil
}
