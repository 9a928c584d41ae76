package state

import "time"

// Snapshot is the complete contents of every tracked collection plus settings
// at one instant. It is the unit of replication: pushes serialize it whole,
// pulls replace every collection from it.
type Snapshot struct {
	Users         []User          `json:"users"`
	Products      []Product       `json:"products"`
	Transactions  []Transaction   `json:"transactions"`
	Customers     []Customer      `json:"customers"`
	Suppliers     []Supplier      `json:"suppliers"`
	CashMovements []CashMovement  `json:"cashMovements"`
	Orders        []Order         `json:"orders"`
	Purchases     []Purchase      `json:"purchases"`
	Invites       []UserInvite    `json:"invites"`
	Activity      []ActivityEntry `json:"activity"`
	Settings      Settings        `json:"settings"`
	ExportedAt    time.Time       `json:"exportedAt"`
}

// HasLocalEvidence reports whether the snapshot shows signs of real usage.
// The sync engine refuses unforced pushes without it so a freshly-reset
// device cannot wipe the remote copy.
func (s Snapshot) HasLocalEvidence() bool {
	return len(s.Products) > 0 || len(s.Customers) > 0 || len(s.Activity) > 0
}

// clone returns a deep copy so callers never alias repository internals.
func (s Snapshot) clone() Snapshot {
	out := s
	out.Users = append([]User(nil), s.Users...)
	out.Products = make([]Product, len(s.Products))
	for i, p := range s.Products {
		p.Variants = append([]Variant(nil), p.Variants...)
		out.Products[i] = p
	}
	out.Transactions = make([]Transaction, len(s.Transactions))
	for i, t := range s.Transactions {
		t.Items = append([]LineItem(nil), t.Items...)
		out.Transactions[i] = t
	}
	out.Customers = append([]Customer(nil), s.Customers...)
	out.Suppliers = append([]Supplier(nil), s.Suppliers...)
	out.CashMovements = append([]CashMovement(nil), s.CashMovements...)
	out.Orders = make([]Order, len(s.Orders))
	for i, o := range s.Orders {
		o.Items = append([]LineItem(nil), o.Items...)
		out.Orders[i] = o
	}
	out.Purchases = make([]Purchase, len(s.Purchases))
	for i, p := range s.Purchases {
		p.Items = append([]PurchaseItem(nil), p.Items...)
		out.Purchases[i] = p
	}
	out.Invites = append([]UserInvite(nil), s.Invites...)
	out.Activity = append([]ActivityEntry(nil), s.Activity...)
	return out
}
