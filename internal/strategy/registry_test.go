package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry()

	assert.Len(t, r.All(), 9)

	def, err := r.Lookup(NFCID)
	require.NoError(t, err)
	assert.True(t, def.Traits.ScanToStart)
	assert.True(t, def.Traits.ScanToStop)
	assert.Equal(t, ScanNFC, def.Traits.ScanKind)

	_, err = r.Lookup("teleport")
	assert.Error(t, err)

	// Profiles created before strategies existed have no strategy ID.
	assert.Equal(t, DefaultID, r.Get("").ID)
	assert.Equal(t, DefaultID, r.Get("bogus").ID)
}

func TestBeginPlans(t *testing.T) {
	r := NewRegistry()

	plan := r.Get(NFCID).Begin()
	assert.True(t, plan.NeedsScan)
	assert.Empty(t, plan.Tag)

	plan = r.Get(ManualID).Begin()
	assert.False(t, plan.NeedsScan)
	assert.Equal(t, ManualID, plan.Tag)

	plan = r.Get(TimerID).Begin()
	assert.False(t, plan.NeedsScan)
	assert.True(t, plan.NeedsDuration)

	// NFC timer variants start manually too; only the stop is scan-gated.
	plan = r.Get(NFCTimerID).Begin()
	assert.False(t, plan.NeedsScan)
	assert.True(t, plan.NeedsDuration)
}

func TestEndPlans(t *testing.T) {
	r := NewRegistry()

	plan := r.Get(ManualID).End()
	assert.False(t, plan.NeedsScan)
	assert.False(t, plan.PauseFirst)

	plan = r.Get(NFCID).End()
	assert.True(t, plan.NeedsScan)

	plan = r.Get(PauseID).End()
	assert.True(t, plan.PauseFirst)

	plan = r.Get(QRPauseID).End()
	assert.True(t, plan.NeedsScan)
	assert.True(t, plan.PauseFirst)
}

func TestTimerData(t *testing.T) {
	raw, err := EncodeTimerData(TimerData{DurationMinutes: 90})
	require.NoError(t, err)

	d, err := DecodeTimerData(raw)
	require.NoError(t, err)
	assert.Equal(t, 90, d.DurationMinutes)

	_, err = DecodeTimerData(nil)
	assert.Error(t, err, "missing timer data must not decode to zero minutes")

	_, err = DecodePauseData([]byte("{broken"))
	assert.Error(t, err)
}
