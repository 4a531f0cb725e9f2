package forum

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/parlor-social/parlor/guard"
	"github.com/parlor-social/parlor/models"
)

func settingsToThresholds(row models.CommunityModSettings) guard.Thresholds {
	return guard.Thresholds{
		AutoBlockReportCount:       row.AutoBlockReportCount,
		WarnThreshold:              row.WarnThreshold,
		FirstPostQueueCount:        row.FirstPostQueueCount,
		NewAccountDays:             row.NewAccountDays,
		NewAccountWriteRatePerMin:  row.NewAccountWriteRatePerMin,
		EstablishedWriteRatePerMin: row.EstablishedWriteRatePerMin,
		LinkHoldEnabled:            row.LinkHoldEnabled,
		TopicCreationDelayEnabled:  row.TopicCreationDelayEnabled,
		BurstPostCount:             row.BurstPostCount,
		BurstWindowMinutes:         row.BurstWindowMinutes,
		TrustedPostThreshold:       row.TrustedPostThreshold,
	}
}

func applyThresholds(row *models.CommunityModSettings, t guard.Thresholds) {
	row.AutoBlockReportCount = t.AutoBlockReportCount
	row.WarnThreshold = t.WarnThreshold
	row.FirstPostQueueCount = t.FirstPostQueueCount
	row.NewAccountDays = t.NewAccountDays
	row.NewAccountWriteRatePerMin = t.NewAccountWriteRatePerMin
	row.EstablishedWriteRatePerMin = t.EstablishedWriteRatePerMin
	row.LinkHoldEnabled = t.LinkHoldEnabled
	row.TopicCreationDelayEnabled = t.TopicCreationDelayEnabled
	row.BurstPostCount = t.BurstPostCount
	row.BurstWindowMinutes = t.BurstWindowMinutes
	row.TrustedPostThreshold = t.TrustedPostThreshold
}

func (s *Service) getCommunity(ctx context.Context, did string) (*models.Community, error) {
	var comm models.Community
	err := s.db.Where("did = ?", did).First(&comm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: community %s", ErrNotFound, did)
	}
	if err != nil {
		return nil, fmt.Errorf("loading community: %w", err)
	}
	return &comm, nil
}

// GetThresholds returns the community's moderation thresholds, falling back
// to defaults when the community has never customized them.
func (s *Service) GetThresholds(ctx context.Context, communityDid string) (guard.Thresholds, error) {
	var row models.CommunityModSettings
	err := s.db.Where("community_did = ?", communityDid).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return guard.DefaultThresholds(), nil
	}
	if err != nil {
		return guard.Thresholds{}, fmt.Errorf("loading moderation settings: %w", err)
	}
	return settingsToThresholds(row), nil
}

// UpdateThresholds merges a partial update onto the stored configuration, or
// onto the defaults when no row exists, and persists the result. Invalid
// field values reject the whole update before any write.
func (s *Service) UpdateThresholds(ctx context.Context, communityDid string, update guard.ThresholdsUpdate) (guard.Thresholds, error) {
	if err := update.Validate(); err != nil {
		return guard.Thresholds{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := s.getCommunity(ctx, communityDid); err != nil {
		return guard.Thresholds{}, err
	}

	var row models.CommunityModSettings
	err := s.db.Where("community_did = ?", communityDid).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.CommunityModSettings{CommunityDid: communityDid}
		applyThresholds(&row, guard.DefaultThresholds())
	} else if err != nil {
		return guard.Thresholds{}, fmt.Errorf("loading moderation settings: %w", err)
	}

	merged := settingsToThresholds(row).Merge(update)
	applyThresholds(&row, merged)
	row.UpdatedAt = s.Now()
	if err := s.db.Save(&row).Error; err != nil {
		return guard.Thresholds{}, fmt.Errorf("saving moderation settings: %w", err)
	}
	return merged, nil
}

// UpdateBlocklist adds and removes word-filter terms for a community.
func (s *Service) UpdateBlocklist(ctx context.Context, communityDid string, add, remove []string) error {
	if _, err := s.getCommunity(ctx, communityDid); err != nil {
		return err
	}
	if len(add) > 0 {
		if err := s.guard.Blocklists.Add(ctx, communityDid, add); err != nil {
			return fmt.Errorf("updating blocklist: %w", err)
		}
	}
	if len(remove) > 0 {
		if err := s.guard.Blocklists.Remove(ctx, communityDid, remove); err != nil {
			return fmt.Errorf("updating blocklist: %w", err)
		}
	}
	return nil
}
