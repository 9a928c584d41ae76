package enums

// ActivityAction classifies entries in the append-only activity log.
type ActivityAction string

const (
	ActivityLogin     ActivityAction = "login"
	ActivityLogout    ActivityAction = "logout"
	ActivitySale      ActivityAction = "sale"
	ActivityPayment   ActivityAction = "payment"
	ActivityInventory ActivityAction = "inventory"
	ActivityCustomer  ActivityAction = "customer"
	ActivitySupplier  ActivityAction = "supplier"
	ActivityOrder     ActivityAction = "order"
	ActivityPurchase  ActivityAction = "purchase"
	ActivityCash      ActivityAction = "cash"
	ActivitySecurity  ActivityAction = "security"
	ActivitySettings  ActivityAction = "settings"
	ActivityUser      ActivityAction = "user"
	ActivitySync      ActivityAction = "sync"
)

// String implements fmt.Stringer.
func (a ActivityAction) String() string {
	return string(a)
}
