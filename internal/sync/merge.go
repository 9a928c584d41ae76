package sync

import (
	"strings"

	"github.com/anvargas/tiendaluz-core/internal/state"
)

// PreferNonEmpty keeps the local value when the incoming one looks emptier
// or shorter. The remote can lag behind a recent local edit (a freshly
// uploaded logo, a just-configured endpoint); length is the heuristic for
// "the remote has not caught up yet".
func PreferNonEmpty(local, incoming string) string {
	if len(strings.TrimSpace(incoming)) < len(strings.TrimSpace(local)) {
		return local
	}
	return incoming
}

// MergeSettings layers the incoming settings over defaults, then protects
// the connection-critical fields and the logo with PreferNonEmpty so a pull
// can never disconnect the device or clobber a fresh upload.
func MergeSettings(local, incoming state.Settings) state.Settings {
	defaults := state.DefaultSettings()
	merged := incoming

	if strings.TrimSpace(merged.BusinessName) == "" {
		merged.BusinessName = defaults.BusinessName
	}
	if strings.TrimSpace(merged.Currency) == "" {
		merged.Currency = defaults.Currency
	}
	if merged.LowStockThreshold <= 0 {
		merged.LowStockThreshold = defaults.LowStockThreshold
	}

	merged.SyncEndpoint = PreferNonEmpty(local.SyncEndpoint, incoming.SyncEndpoint)
	merged.SyncSecret = PreferNonEmpty(local.SyncSecret, incoming.SyncSecret)
	if local.SyncEnabled {
		merged.SyncEnabled = true
	}
	merged.Logo = PreferNonEmpty(local.Logo, incoming.Logo)

	return merged
}
