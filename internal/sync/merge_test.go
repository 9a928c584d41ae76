package sync

import (
	"strings"
	"testing"

	"github.com/anvargas/tiendaluz-core/internal/state"
)

func TestPreferNonEmpty(t *testing.T) {
	cases := []struct {
		name     string
		local    string
		incoming string
		want     string
	}{
		{"incoming empty keeps local", "https://a.example", "", "https://a.example"},
		{"incoming shorter keeps local", strings.Repeat("x", 500), "stale", strings.Repeat("x", 500)},
		{"incoming longer wins", "v1", "v1-extended", "v1-extended"},
		{"equal length takes incoming", "aaa", "bbb", "bbb"},
		{"both empty", "", "", ""},
		{"whitespace counts as empty", "secret", "   ", "secret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PreferNonEmpty(tc.local, tc.incoming); got != tc.want {
				t.Fatalf("PreferNonEmpty(%q, %q) = %q, want %q", tc.local, tc.incoming, got, tc.want)
			}
		})
	}
}

func TestMergeSettingsProtectsConnectionFields(t *testing.T) {
	local := state.DefaultSettings()
	local.SyncEnabled = true
	local.SyncEndpoint = "https://sync.example.test/sync"
	local.SyncSecret = "shared-secret"
	local.Logo = strings.Repeat("L", 500)

	incoming := state.Settings{
		BusinessName: "Sucursal Centro",
		Currency:     "USD",
	}

	merged := MergeSettings(local, incoming)
	if merged.BusinessName != "Sucursal Centro" || merged.Currency != "USD" {
		t.Fatalf("incoming business fields must win: %+v", merged)
	}
	if !merged.SyncEnabled {
		t.Fatal("sync-enabled must survive an incoming false")
	}
	if merged.SyncEndpoint != local.SyncEndpoint || merged.SyncSecret != local.SyncSecret {
		t.Fatal("connection fields must survive an emptier incoming")
	}
	if merged.Logo != local.Logo {
		t.Fatal("local logo must survive an empty incoming logo")
	}
}

func TestMergeSettingsLayersDefaults(t *testing.T) {
	merged := MergeSettings(state.Settings{}, state.Settings{})
	defaults := state.DefaultSettings()
	if merged.BusinessName != defaults.BusinessName {
		t.Fatalf("business name = %q, want default", merged.BusinessName)
	}
	if merged.Currency != defaults.Currency {
		t.Fatalf("currency = %q, want default", merged.Currency)
	}
	if merged.LowStockThreshold != defaults.LowStockThreshold {
		t.Fatalf("low stock threshold = %d, want default", merged.LowStockThreshold)
	}
}

func TestMergeSettingsAcceptsRicherIncoming(t *testing.T) {
	local := state.DefaultSettings()
	local.SyncEndpoint = "http://old.example"

	incoming := state.DefaultSettings()
	incoming.SyncEndpoint = "https://new-and-longer.example/sync"
	incoming.Logo = strings.Repeat("R", 600)

	merged := MergeSettings(local, incoming)
	if merged.SyncEndpoint != incoming.SyncEndpoint {
		t.Fatal("a longer incoming endpoint must win")
	}
	if merged.Logo != incoming.Logo {
		t.Fatal("a richer incoming logo must win")
	}
}
