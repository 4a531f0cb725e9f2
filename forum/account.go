package forum

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"gorm.io/gorm"

	"github.com/parlor-social/parlor/guard"
	"github.com/parlor-social/parlor/models"
)

const flaggedCacheName = "acct-flagged"

// ensureAccount loads the account row for an identity, creating it on the
// first write ever observed from that identity. CreatedAt is set once at
// first-seen and never updated. New identities are registered with the repo
// tracker as a post-commit task.
func (s *Service) ensureAccount(ctx context.Context, did syntax.DID) (*models.Account, error) {
	var acct models.Account
	err := s.db.Where("did = ?", did.String()).First(&acct).Error
	if err == nil {
		return &acct, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	acct = models.Account{
		Did:         did.String(),
		CreatedAt:   s.Now(),
		TrustStatus: string(guard.TrustNew),
	}
	if err := s.db.Create(&acct).Error; err != nil {
		// lost a race with a concurrent first write; re-read
		var existing models.Account
		if err2 := s.db.Where("did = ?", did.String()).First(&existing).Error; err2 == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	if s.tracker != nil {
		s.tasks.Enqueue("track-repo", func(ctx context.Context) error {
			tracked, err := s.tracker.IsTracked(ctx, did)
			if err != nil {
				return err
			}
			if tracked {
				return nil
			}
			return s.tracker.Track(ctx, did)
		})
	}
	return &acct, nil
}

// accountFlagged checks the federation-wide spam signal, caching results so
// a busy identity does not hammer the label service. A signal outage is
// treated as not-flagged; the classifier override only ever tightens.
func (s *Service) accountFlagged(ctx context.Context, did syntax.DID) bool {
	if s.signal == nil {
		return false
	}
	if s.cache != nil {
		v, err := s.cache.Get(ctx, flaggedCacheName, did.String())
		if err == nil && v != "" {
			return v == "true"
		}
	}
	flagged, err := s.signal.IsFlagged(ctx, did)
	if err != nil {
		s.logger.Warn("trust signal lookup failed", "did", did, "err", err)
		return false
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, flaggedCacheName, did.String(), strconv.FormatBool(flagged)); err != nil {
			s.logger.Warn("trust signal cache write failed", "did", did, "err", err)
		}
	}
	return flagged
}

// accountMeta assembles the classifier input for an account row.
func (s *Service) accountMeta(ctx context.Context, acct *models.Account) guard.AccountMeta {
	return guard.AccountMeta{
		DID:           syntax.DID(acct.Did),
		CreatedAt:     acct.CreatedAt,
		ApprovedCount: acct.ApprovedCount,
		Flagged:       s.accountFlagged(ctx, syntax.DID(acct.Did)),
	}
}

// refreshTrustStatus writes back the denormalized trust snapshot when the
// freshly computed level differs. The snapshot exists for query filtering
// only; write-path decisions never read it.
func (s *Service) refreshTrustStatus(acct *models.Account, level guard.TrustLevel) {
	if acct.TrustStatus == string(level) {
		return
	}
	acct.TrustStatus = string(level)
	if err := s.db.Model(&models.Account{}).Where("did = ?", acct.Did).Update("trust_status", string(level)).Error; err != nil {
		s.logger.Warn("updating trust status snapshot", "did", acct.Did, "err", err)
	}
}
