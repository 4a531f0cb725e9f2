package guard

import (
	"github.com/go-playground/validator/v10"
)

// Thresholds is the fully-resolved moderation configuration for one
// community. Every field always holds a concrete value; see
// DefaultThresholds for the documented defaults.
type Thresholds struct {
	AutoBlockReportCount       int
	WarnThreshold              int
	FirstPostQueueCount        int
	NewAccountDays             int
	NewAccountWriteRatePerMin  int
	EstablishedWriteRatePerMin int
	LinkHoldEnabled            bool
	TopicCreationDelayEnabled  bool
	BurstPostCount             int
	BurstWindowMinutes         int
	TrustedPostThreshold       int
}

// DefaultThresholds returns the configuration applied to communities with no
// stored settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoBlockReportCount:       5,
		WarnThreshold:              3,
		FirstPostQueueCount:        3,
		NewAccountDays:             7,
		NewAccountWriteRatePerMin:  3,
		EstablishedWriteRatePerMin: 10,
		LinkHoldEnabled:            true,
		TopicCreationDelayEnabled:  true,
		BurstPostCount:             5,
		BurstWindowMinutes:         10,
		TrustedPostThreshold:       10,
	}
}

// ThresholdsUpdate is a partial update: nil fields are left unchanged.
// Updates are always merged onto the stored configuration (or onto defaults
// when no row exists), never onto a zero struct.
type ThresholdsUpdate struct {
	AutoBlockReportCount       *int  `json:"autoBlockReportCount" validate:"omitnil,gte=1,lte=100"`
	WarnThreshold              *int  `json:"warnThreshold" validate:"omitnil,gte=0"`
	FirstPostQueueCount        *int  `json:"firstPostQueueCount" validate:"omitnil,gte=0"`
	NewAccountDays             *int  `json:"newAccountDays" validate:"omitnil,gte=0"`
	NewAccountWriteRatePerMin  *int  `json:"newAccountWriteRatePerMin" validate:"omitnil,gte=1"`
	EstablishedWriteRatePerMin *int  `json:"establishedWriteRatePerMin" validate:"omitnil,gte=1"`
	LinkHoldEnabled            *bool `json:"linkHoldEnabled"`
	TopicCreationDelayEnabled  *bool `json:"topicCreationDelayEnabled"`
	BurstPostCount             *int  `json:"burstPostCount" validate:"omitnil,gte=1"`
	BurstWindowMinutes         *int  `json:"burstWindowMinutes" validate:"omitnil,gte=1"`
	TrustedPostThreshold       *int  `json:"trustedPostThreshold" validate:"omitnil,gte=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (u *ThresholdsUpdate) Validate() error {
	return validate.Struct(u)
}

// Merge applies the update's non-nil fields onto t and returns the result.
func (t Thresholds) Merge(u ThresholdsUpdate) Thresholds {
	if u.AutoBlockReportCount != nil {
		t.AutoBlockReportCount = *u.AutoBlockReportCount
	}
	if u.WarnThreshold != nil {
		t.WarnThreshold = *u.WarnThreshold
	}
	if u.FirstPostQueueCount != nil {
		t.FirstPostQueueCount = *u.FirstPostQueueCount
	}
	if u.NewAccountDays != nil {
		t.NewAccountDays = *u.NewAccountDays
	}
	if u.NewAccountWriteRatePerMin != nil {
		t.NewAccountWriteRatePerMin = *u.NewAccountWriteRatePerMin
	}
	if u.EstablishedWriteRatePerMin != nil {
		t.EstablishedWriteRatePerMin = *u.EstablishedWriteRatePerMin
	}
	if u.LinkHoldEnabled != nil {
		t.LinkHoldEnabled = *u.LinkHoldEnabled
	}
	if u.TopicCreationDelayEnabled != nil {
		t.TopicCreationDelayEnabled = *u.TopicCreationDelayEnabled
	}
	if u.BurstPostCount != nil {
		t.BurstPostCount = *u.BurstPostCount
	}
	if u.BurstWindowMinutes != nil {
		t.BurstWindowMinutes = *u.BurstWindowMinutes
	}
	if u.TrustedPostThreshold != nil {
		t.TrustedPostThreshold = *u.TrustedPostThreshold
	}
	return t
}
