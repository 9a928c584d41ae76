package state

import (
	"fmt"

	"github.com/anvargas/tiendaluz-core/pkg/enums"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
)

// Products returns a copy of the product collection.
func (s *Store) Products() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Product, len(s.data.Products))
	for i, p := range s.data.Products {
		p.Variants = append([]Variant(nil), p.Variants...)
		out[i] = p
	}
	return out
}

// ProductByID returns a copy of one product.
func (s *Store) ProductByID(id int64) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.productLocked(id); p != nil {
		cp := *p
		cp.Variants = append([]Variant(nil), p.Variants...)
		return cp, true
	}
	return Product{}, false
}

// AddProduct assigns a sequence ID when absent and stores the product.
func (s *Store) AddProduct(actor string, p Product) (Product, error) {
	s.mu.Lock()
	if !p.Kind.IsValid() {
		p.Kind = enums.ProductKindSellable
	}
	if p.ID == 0 {
		ids := make([]int64, len(s.data.Products))
		for i, existing := range s.data.Products {
			ids[i] = existing.ID
		}
		p.ID = nextID(ids, s.data.Settings.ProductSeqStart)
	}
	if p.ID > s.data.Settings.ProductSeqStart {
		s.data.Settings.ProductSeqStart = p.ID
	}
	if len(p.Variants) > 0 {
		p.Stock = variantSum(p.Variants)
	}
	if p.Stock < 0 {
		p.Stock = 0
	}
	s.data.Products = append(s.data.Products, p)
	s.logActivityLocked(actor, enums.ActivityInventory, fmt.Sprintf("product %d added: %s", p.ID, p.Name))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return p, nil
}

// UpdateProduct replaces a product record by ID. Stock is recomputed from
// variants when present; direct stock writes still go through AdjustStock.
func (s *Store) UpdateProduct(actor string, p Product) error {
	s.mu.Lock()
	existing := s.productLocked(p.ID)
	if existing == nil {
		s.mu.Unlock()
		return notFound("product")
	}
	if len(p.Variants) > 0 {
		p.Stock = variantSum(p.Variants)
	} else {
		p.Stock = existing.Stock
	}
	*existing = p
	s.logActivityLocked(actor, enums.ActivityInventory, fmt.Sprintf("product %d updated", p.ID))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return nil
}

// DeleteProduct removes a product. Sequence IDs are never reissued, so a
// later add cannot collide with references left behind.
func (s *Store) DeleteProduct(actor string, id int64) error {
	s.mu.Lock()
	idx := -1
	for i := range s.data.Products {
		if s.data.Products[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return notFound("product")
	}
	s.data.Products = append(s.data.Products[:idx], s.data.Products[idx+1:]...)
	s.logActivityLocked(actor, enums.ActivityInventory, fmt.Sprintf("product %d deleted", id))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return nil
}

// AdjustStock moves qty units in or out of a product or one of its variants.
// Direction out floors the result at zero; direction in has no upper bound.
// With a variant the parent stock is recomputed as the sum of variant stocks.
// Returns the resulting aggregate stock.
func (s *Store) AdjustStock(actor string, productID int64, qty int, direction enums.StockDirection, variantID string) (int, error) {
	if qty < 0 {
		qty = -qty
	}
	s.mu.Lock()
	p := s.productLocked(productID)
	if p == nil {
		s.mu.Unlock()
		return 0, notFound("product")
	}
	if !direction.IsValid() {
		s.mu.Unlock()
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock direction")
	}

	if variantID != "" && len(p.Variants) > 0 {
		found := false
		for i := range p.Variants {
			if p.Variants[i].ID == variantID {
				p.Variants[i].Stock = applyDirection(p.Variants[i].Stock, qty, direction)
				found = true
				break
			}
		}
		if !found {
			s.mu.Unlock()
			return 0, notFound("variant")
		}
		p.Stock = variantSum(p.Variants)
	} else {
		p.Stock = applyDirection(p.Stock, qty, direction)
	}

	result := p.Stock
	s.logActivityLocked(actor, enums.ActivityInventory,
		fmt.Sprintf("stock %s %d x product %d (now %d)", direction, qty, productID, result))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return result, nil
}

// adjustStockLocked is the in-transaction variant used while reversing a
// cancelled sale. The caller holds the lock and owns the activity entry.
func (s *Store) adjustStockLocked(productID int64, qty int, direction enums.StockDirection, variantID string) {
	p := s.productLocked(productID)
	if p == nil {
		// Dangling item reference: the product was deleted after the sale.
		s.warn("stock reversal skipped for missing product")
		return
	}
	if variantID != "" && len(p.Variants) > 0 {
		for i := range p.Variants {
			if p.Variants[i].ID == variantID {
				p.Variants[i].Stock = applyDirection(p.Variants[i].Stock, qty, direction)
				break
			}
		}
		p.Stock = variantSum(p.Variants)
		return
	}
	p.Stock = applyDirection(p.Stock, qty, direction)
}

func (s *Store) productLocked(id int64) *Product {
	for i := range s.data.Products {
		if s.data.Products[i].ID == id {
			return &s.data.Products[i]
		}
	}
	return nil
}

func applyDirection(current, qty int, direction enums.StockDirection) int {
	if direction == enums.StockIn {
		return current + qty
	}
	next := current - qty
	if next < 0 {
		return 0
	}
	return next
}

func variantSum(variants []Variant) int {
	total := 0
	for _, v := range variants {
		total += v.Stock
	}
	return total
}
