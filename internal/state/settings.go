package state

// Settings is the single versioned configuration record. It replicates with
// the snapshot but merges field-wise on pull, unlike the collections which
// are replaced wholesale.
type Settings struct {
	BusinessName string `json:"businessName"`
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Currency     string `json:"currency"`
	Logo         string `json:"logo,omitempty"`

	SyncEndpoint string `json:"syncEndpoint,omitempty"`
	SyncSecret   string `json:"syncSecret,omitempty"`
	SyncEnabled  bool   `json:"syncEnabled"`

	TicketSeqStart   int64 `json:"ticketSeqStart"`
	CustomerSeqStart int64 `json:"customerSeqStart"`
	OrderSeqStart    int64 `json:"orderSeqStart"`
	ProductSeqStart  int64 `json:"productSeqStart"`

	LowStockAlert     bool `json:"lowStockAlert"`
	LowStockThreshold int  `json:"lowStockThreshold"`
}

// DefaultSettings are the values a fresh device starts from and the base
// layer of the pull-time merge.
func DefaultSettings() Settings {
	return Settings{
		BusinessName:      "Mi Negocio",
		Currency:          "MXN",
		LowStockThreshold: 5,
	}
}
