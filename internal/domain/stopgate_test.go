package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStopGatePrecedence(t *testing.T) {
	p := &Profile{
		UnblockTokenID: "dedicated",
		Whitelist:      []WhitelistTag{{ID: uuid.New(), TagID: "listed"}},
	}

	// Dedicated token outranks the whitelist.
	gate := StopGateFor(p, false)
	assert.Equal(t, GateExact, gate.Kind)

	p.UnblockTokenID = ""
	gate = StopGateFor(p, false)
	assert.Equal(t, GateWhitelist, gate.Kind)

	p.Whitelist = nil
	gate = StopGateFor(p, false)
	assert.Equal(t, GateOriginalOnly, gate.Kind)

	gate = StopGateFor(p, true)
	assert.Equal(t, GateUnrestricted, gate.Kind)
}

func TestStopGateExact(t *testing.T) {
	gate := StopGateFor(&Profile{UnblockTokenID: "dedicated"}, false)

	assert.NoError(t, gate.Admit("dedicated", "original"))
	assert.ErrorIs(t, gate.Admit("original", "original"), ErrWrongToken)
	assert.ErrorIs(t, gate.Admit("DEDICATED", "original"), ErrWrongToken, "dedicated token match is exact")
}

func TestStopGateDedicatedQRCode(t *testing.T) {
	gate := StopGateFor(&Profile{UnblockQRCodeID: "qr-code-1"}, false)
	assert.Equal(t, GateExact, gate.Kind)
	assert.NoError(t, gate.Admit("qr-code-1", "original"))
	assert.ErrorIs(t, gate.Admit("original", "original"), ErrWrongToken)

	// Both codes configured: either one unlocks.
	gate = StopGateFor(&Profile{UnblockTokenID: "nfc-tag", UnblockQRCodeID: "qr-code-1"}, false)
	assert.NoError(t, gate.Admit("nfc-tag", "original"))
	assert.NoError(t, gate.Admit("qr-code-1", "original"))
	assert.ErrorIs(t, gate.Admit("other", "original"), ErrWrongToken)
}

func TestStopGateWhitelist(t *testing.T) {
	p := &Profile{Whitelist: []WhitelistTag{
		{ID: uuid.New(), TagID: "Kitchen-Tag"},
		{ID: uuid.New(), TagID: "desk"},
	}}
	gate := StopGateFor(p, false)

	assert.NoError(t, gate.Admit("kitchen-tag", "original"))
	assert.NoError(t, gate.Admit("DESK", "original"))
	assert.ErrorIs(t, gate.Admit("original", "original"), ErrNotWhitelisted,
		"whitelist replaces the original-trigger rule entirely")
}

func TestStopGateOriginalOnly(t *testing.T) {
	gate := StopGateFor(&Profile{}, false)

	assert.NoError(t, gate.Admit("tag-1", "tag-1"))
	assert.ErrorIs(t, gate.Admit("tag-2", "tag-1"), ErrMustUseOriginalTrigger)
}

func TestStopGateUnrestricted(t *testing.T) {
	gate := StopGateFor(&Profile{}, true)
	assert.NoError(t, gate.Admit("anything", "tag-1"))
	assert.NoError(t, gate.Admit("", "tag-1"))
}

func TestStopGateForceDoesNotBypassConfiguredGates(t *testing.T) {
	// Force-start waives only the original-trigger rule; dedicated tokens
	// and whitelists still apply.
	p := &Profile{UnblockTokenID: "dedicated"}
	gate := StopGateFor(p, true)
	assert.Equal(t, GateExact, gate.Kind)

	p = &Profile{Whitelist: []WhitelistTag{{ID: uuid.New(), TagID: "listed"}}}
	gate = StopGateFor(p, true)
	assert.Equal(t, GateWhitelist, gate.Kind)
}

func TestIsGatingError(t *testing.T) {
	assert.True(t, IsGatingError(ErrWrongToken))
	assert.True(t, IsGatingError(ErrNotWhitelisted))
	assert.True(t, IsGatingError(ErrMustUseOriginalTrigger))
	assert.False(t, IsGatingError(ErrAlreadyActive))
	assert.False(t, IsGatingError(nil))
}
