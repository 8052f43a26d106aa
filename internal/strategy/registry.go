package strategy

import (
	"fmt"
	"sort"
)

// Variant IDs. The IDs are persisted on profiles, so they are stable names,
// not display names.
const (
	NFCID         = "nfc"
	QRID          = "qr"
	ManualID      = "manual"
	NFCManualID   = "nfc-manual"
	TimerID       = "timer"
	NFCTimerID    = "nfc-timer"
	PauseID       = "pause"
	NFCPauseID    = "nfc-pause"
	QRPauseID     = "qr-pause"
	DefaultID     = NFCID
	ScheduleStart = "schedule" // sentinel tag for schedule-originated sessions
)

// Registry holds all known strategy variants.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry creates a registry with the full default variant set.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]Definition)}

	r.Register(Definition{
		ID:          NFCID,
		Name:        "NFC Tags",
		Description: "Block and unblock by scanning the same NFC tag",
		Traits:      Traits{ScanToStart: true, ScanToStop: true, ScanKind: ScanNFC},
	})
	r.Register(Definition{
		ID:          QRID,
		Name:        "QR Codes",
		Description: "Block and unblock by scanning the same QR code",
		Traits:      Traits{ScanToStart: true, ScanToStop: true, ScanKind: ScanQR},
	})
	r.Register(Definition{
		ID:          ManualID,
		Name:        "Manual",
		Description: "Start and stop without scanning anything",
		Traits:      Traits{StartsManually: true},
	})
	r.Register(Definition{
		ID:          NFCManualID,
		Name:        "Manual + NFC",
		Description: "Start manually, unblock by scanning an NFC tag",
		Traits:      Traits{StartsManually: true, ScanToStop: true, ScanKind: ScanNFC},
	})
	r.Register(Definition{
		ID:          TimerID,
		Name:        "Timer",
		Description: "Block for a chosen duration, unblocks automatically",
		Traits:      Traits{StartsManually: true, HasTimer: true},
	})
	r.Register(Definition{
		ID:          NFCTimerID,
		Name:        "NFC + Timer",
		Description: "Block for a chosen duration, unblock early with an NFC tag",
		Traits:      Traits{StartsManually: true, HasTimer: true, ScanToStop: true, ScanKind: ScanNFC},
	})
	r.Register(Definition{
		ID:          PauseID,
		Name:        "Pause Timer",
		Description: "Stop initiates a temporary pause, a second stop fully ends",
		Traits:      Traits{StartsManually: true, PauseCapable: true},
	})
	r.Register(Definition{
		ID:          NFCPauseID,
		Name:        "NFC + Pause Timer",
		Description: "NFC-gated stops with a pause before fully ending",
		Traits:      Traits{ScanToStart: true, ScanToStop: true, ScanKind: ScanNFC, PauseCapable: true},
	})
	r.Register(Definition{
		ID:          QRPauseID,
		Name:        "QR + Pause Timer",
		Description: "QR-gated stops with a pause before fully ending",
		Traits:      Traits{ScanToStart: true, ScanToStop: true, ScanKind: ScanQR, PauseCapable: true},
	})

	return r
}

// NewRegistryWithDefinitions creates a registry with custom variants (for testing).
func NewRegistryWithDefinitions(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	for _, d := range defs {
		r.Register(d)
	}
	return r
}

// Register adds a variant to the registry.
func (r *Registry) Register(d Definition) {
	r.defs[d.ID] = d
}

// Get returns a variant by ID. Unknown or empty IDs fall back to the
// default variant so pre-strategy profiles keep working.
func (r *Registry) Get(id string) Definition {
	if d, ok := r.defs[id]; ok {
		return d
	}
	return r.defs[DefaultID]
}

// Lookup returns a variant by exact ID.
func (r *Registry) Lookup(id string) (Definition, error) {
	d, ok := r.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("unknown strategy: %s", id)
	}
	return d, nil
}

// All returns all variants sorted by ID.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// List returns all variant IDs sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
