package state

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/anvargas/tiendaluz-core/pkg/enums"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
)

// Customers returns a copy of the customer collection.
func (s *Store) Customers() []Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Customer(nil), s.data.Customers...)
}

// CustomerByID returns a copy of one customer.
func (s *Store) CustomerByID(id int64) (Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.customerLocked(id); c != nil {
		return *c, true
	}
	return Customer{}, false
}

// AddCustomer assigns a sequence ID when absent and stores the customer.
func (s *Store) AddCustomer(actor string, c Customer) (Customer, error) {
	s.mu.Lock()
	if c.ID == 0 {
		ids := make([]int64, len(s.data.Customers))
		for i, existing := range s.data.Customers {
			ids[i] = existing.ID
		}
		c.ID = nextID(ids, s.data.Settings.CustomerSeqStart)
	}
	if c.ID > s.data.Settings.CustomerSeqStart {
		s.data.Settings.CustomerSeqStart = c.ID
	}
	s.data.Customers = append(s.data.Customers, c)
	s.logActivityLocked(actor, enums.ActivityCustomer, fmt.Sprintf("customer %d added: %s", c.ID, c.Name))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return c, nil
}

// UpdateCustomer replaces contact fields; the debt balance is repository-
// maintained and carried over from the stored record.
func (s *Store) UpdateCustomer(actor string, c Customer) error {
	s.mu.Lock()
	existing := s.customerLocked(c.ID)
	if existing == nil {
		s.mu.Unlock()
		return notFound("customer")
	}
	c.Debt = existing.Debt
	*existing = c
	s.logActivityLocked(actor, enums.ActivityCustomer, fmt.Sprintf("customer %d updated", c.ID))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return nil
}

// RegisterCustomerPayment reduces a customer's debt by the paid amount and
// records the drawer deposit. Credit is not a settlement method here.
func (s *Store) RegisterCustomerPayment(actor string, customerID int64, amount decimal.Decimal, method enums.PaymentMethod) (Customer, error) {
	if !amount.IsPositive() {
		return Customer{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if method == enums.PaymentMethodCredit {
		return Customer{}, pkgerrors.New(pkgerrors.CodeValidation, "credit cannot settle debt")
	}
	s.mu.Lock()
	c := s.customerLocked(customerID)
	if c == nil {
		s.mu.Unlock()
		return Customer{}, notFound("customer")
	}
	c.Debt = c.Debt.Sub(amount)
	if c.Debt.IsNegative() {
		c.Debt = decimal.Zero
	}
	for _, mv := range s.movementsForPayment(method, amount, decimal.Zero, categoryPayment, nil, &customerID) {
		s.data.CashMovements = append(s.data.CashMovements, mv)
	}
	result := *c
	s.logActivityLocked(actor, enums.ActivityPayment,
		fmt.Sprintf("debt payment %s from customer %d (%s)", amount, customerID, method))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return result, nil
}

func (s *Store) customerLocked(id int64) *Customer {
	for i := range s.data.Customers {
		if s.data.Customers[i].ID == id {
			return &s.data.Customers[i]
		}
	}
	return nil
}

// Suppliers returns a copy of the supplier collection.
func (s *Store) Suppliers() []Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Supplier(nil), s.data.Suppliers...)
}

// AddSupplier assigns a sequence ID when absent and stores the supplier.
func (s *Store) AddSupplier(actor string, sup Supplier) (Supplier, error) {
	s.mu.Lock()
	if sup.ID == 0 {
		ids := make([]int64, len(s.data.Suppliers))
		for i, existing := range s.data.Suppliers {
			ids[i] = existing.ID
		}
		sup.ID = nextID(ids, 0)
	}
	s.data.Suppliers = append(s.data.Suppliers, sup)
	s.logActivityLocked(actor, enums.ActivitySupplier, fmt.Sprintf("supplier %d added: %s", sup.ID, sup.Name))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return sup, nil
}
