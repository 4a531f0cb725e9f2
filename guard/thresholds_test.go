package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestThresholdsDefaults(t *testing.T) {
	assert := assert.New(t)

	d := DefaultThresholds()
	assert.Equal(5, d.AutoBlockReportCount)
	assert.Equal(3, d.WarnThreshold)
	assert.Equal(3, d.FirstPostQueueCount)
	assert.Equal(7, d.NewAccountDays)
	assert.Equal(3, d.NewAccountWriteRatePerMin)
	assert.Equal(10, d.EstablishedWriteRatePerMin)
	assert.True(d.LinkHoldEnabled)
	assert.True(d.TopicCreationDelayEnabled)
	assert.Equal(5, d.BurstPostCount)
	assert.Equal(10, d.BurstWindowMinutes)
	assert.Equal(10, d.TrustedPostThreshold)
}

func TestThresholdsMerge(t *testing.T) {
	assert := assert.New(t)

	base := DefaultThresholds()
	merged := base.Merge(ThresholdsUpdate{
		NewAccountWriteRatePerMin: intPtr(1),
		LinkHoldEnabled:           boolPtr(false),
	})

	// updated fields take the new value
	assert.Equal(1, merged.NewAccountWriteRatePerMin)
	assert.False(merged.LinkHoldEnabled)

	// everything else is untouched
	assert.Equal(base.AutoBlockReportCount, merged.AutoBlockReportCount)
	assert.Equal(base.TrustedPostThreshold, merged.TrustedPostThreshold)
	assert.Equal(base.BurstWindowMinutes, merged.BurstWindowMinutes)

	// empty update is the identity
	assert.Equal(base, base.Merge(ThresholdsUpdate{}))
}

func TestThresholdsUpdateValidate(t *testing.T) {
	assert := assert.New(t)

	ok := ThresholdsUpdate{AutoBlockReportCount: intPtr(10)}
	assert.NoError(ok.Validate())

	empty := ThresholdsUpdate{}
	assert.NoError(empty.Validate())

	tooHigh := ThresholdsUpdate{AutoBlockReportCount: intPtr(500)}
	assert.Error(tooHigh.Validate())

	zeroRate := ThresholdsUpdate{NewAccountWriteRatePerMin: intPtr(0)}
	assert.Error(zeroRate.Validate())

	negative := ThresholdsUpdate{WarnThreshold: intPtr(-1)}
	assert.Error(negative.Validate())
}
