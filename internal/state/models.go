package state

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/anvargas/tiendaluz-core/pkg/enums"
)

// User is the canonical identity record. Password material lives here because
// the repository is the single authority for account state; the auth service
// owns the rules that mutate it.
type User struct {
	ID                 string           `json:"id"`
	Username           string           `json:"username"`
	FullName           string           `json:"fullName"`
	Role               enums.Role       `json:"role"`
	Active             bool             `json:"active"`
	PasswordHash       string           `json:"passwordHash"`
	PasswordSalt       string           `json:"passwordSalt"`
	TOTPSecret         string           `json:"totpSecret,omitempty"`
	RecoveryCode       string           `json:"recoveryCode,omitempty"`
	SecurityQuestion   string           `json:"securityQuestion,omitempty"`
	SecurityAnswerHash string           `json:"securityAnswerHash,omitempty"`
	SecurityAnswerSalt string           `json:"securityAnswerSalt,omitempty"`
	FailedAttempts     int              `json:"failedAttempts"`
	LockoutUntil       *time.Time       `json:"lockoutUntil,omitempty"`
	LastLoginAt        *time.Time       `json:"lastLoginAt,omitempty"`
	LastActiveAt       *time.Time       `json:"lastActiveAt,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// UserInvite is a one-time provisioning code bound to a target role.
type UserInvite struct {
	Code      string     `json:"code"`
	Role      enums.Role `json:"role"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Variant is a product variation carrying its own stock.
type Variant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// Product's Stock is the single source of truth for availability. With
// variants present it is the aggregate of variant stocks.
type Product struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Price    decimal.Decimal   `json:"price"`
	Cost     decimal.Decimal   `json:"cost"`
	Stock    int               `json:"stock"`
	Kind     enums.ProductKind `json:"kind"`
	Variants []Variant         `json:"variants,omitempty"`
}

// LineItem is one sold line within a transaction or order.
type LineItem struct {
	ProductID int64           `json:"productId"`
	VariantID string          `json:"variantId,omitempty"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Transaction is a sale or return. Cancelled transactions are retained for
// audit rather than removed.
type Transaction struct {
	ID            int64                   `json:"id"`
	Total         decimal.Decimal         `json:"total"`
	AmountPaid    decimal.Decimal         `json:"amountPaid"`
	Method        enums.PaymentMethod     `json:"method"`
	CashPortion   decimal.Decimal         `json:"cashPortion"`
	PaymentStatus enums.PaymentStatus     `json:"paymentStatus"`
	Status        enums.TransactionStatus `json:"status"`
	CustomerID    *int64                  `json:"customerId,omitempty"`
	Items         []LineItem              `json:"items"`
	CreatedAt     time.Time               `json:"createdAt"`
}

// Outstanding is the unpaid balance, floored at zero.
func (t Transaction) Outstanding() decimal.Decimal {
	diff := t.Total.Sub(t.AmountPaid)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// Customer carries a running debt balance maintained by the repository.
type Customer struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Phone string          `json:"phone,omitempty"`
	Email string          `json:"email,omitempty"`
	Debt  decimal.Decimal `json:"debt"`
}

// Supplier is referenced by purchases.
type Supplier struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// CashMovement is a signed cash-drawer effect. Movements derived from a
// transaction carry its ID so they can be removed when the transaction is
// cancelled.
type CashMovement struct {
	ID            string             `json:"id"`
	Kind          enums.CashFlowKind `json:"kind"`
	Channel       enums.CashChannel  `json:"channel"`
	Amount        decimal.Decimal    `json:"amount"`
	Category      string             `json:"category"`
	TransactionID *int64             `json:"transactionId,omitempty"`
	CustomerID    *int64             `json:"customerId,omitempty"`
	Note          string             `json:"note,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// Order is a work-in-progress ticket moving through the kanban lifecycle.
type Order struct {
	ID         int64             `json:"id"`
	CustomerID *int64            `json:"customerId,omitempty"`
	Items      []LineItem        `json:"items"`
	Status     enums.OrderStatus `json:"status"`
	Notes      string            `json:"notes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// PurchaseItem is one received line within a purchase.
type PurchaseItem struct {
	ProductID int64           `json:"productId"`
	Qty       int             `json:"qty"`
	UnitCost  decimal.Decimal `json:"unitCost"`
}

// Purchase completes immediately, with stock and cash side effects.
type Purchase struct {
	ID         int64           `json:"id"`
	SupplierID *int64          `json:"supplierId,omitempty"`
	Items      []PurchaseItem  `json:"items"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// ActivityEntry is an immutable, append-only audit record.
type ActivityEntry struct {
	ID     string               `json:"id"`
	Actor  string               `json:"actor"`
	Action enums.ActivityAction `json:"action"`
	Detail string               `json:"detail"`
	At     time.Time            `json:"at"`
}
