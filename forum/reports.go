package forum

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"gorm.io/gorm"

	"github.com/parlor-social/parlor/guard"
	"github.com/parlor-social/parlor/models"
	"github.com/parlor-social/parlor/pagination"
)

// Report reason types accepted from users.
var ReportReasonTypes = []string{"spam", "violation", "misleading", "sexual", "rude", "other"}

var resolutionTypes = []string{
	models.ResolutionDismissed,
	models.ResolutionWarned,
	models.ResolutionLabeled,
	models.ResolutionRemoved,
	models.ResolutionBanned,
}

type FileReportInput struct {
	Reporter    syntax.DID
	TargetUri   string
	ReasonType  string
	Description string
}

// FileReport records a user report against the content at TargetUri. At most
// one pending report may exist per (reporter, target); duplicates and
// self-reports are rejected before any write. When the pending report count
// against a target reaches the community's auto-block threshold, the content
// is pulled from public view and queued for review in the same transaction.
func (s *Service) FileReport(ctx context.Context, in FileReportInput) (*models.Report, error) {
	if !slices.Contains(ReportReasonTypes, in.ReasonType) {
		return nil, fmt.Errorf("%w: unknown report reason %q", ErrValidation, in.ReasonType)
	}

	ref, err := s.findContent(ctx, in.TargetUri)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, ErrTargetNotFound
	}
	if ref.AuthorDid == in.Reporter.String() {
		return nil, ErrSelfReport
	}

	thresh, err := s.GetThresholds(ctx, ref.CommunityDid)
	if err != nil {
		return nil, err
	}

	report := models.Report{
		CreatedAt:    s.Now(),
		ReporterDid:  in.Reporter.String(),
		TargetUri:    in.TargetUri,
		TargetDid:    ref.AuthorDid,
		CommunityDid: ref.CommunityDid,
		ReasonType:   in.ReasonType,
		Description:  in.Description,
		Status:       models.ReportStatusPending,
		AppealStatus: models.AppealNone,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var dup int64
		err := tx.Model(&models.Report{}).
			Where("reporter_did = ? AND target_uri = ? AND status = ?", in.Reporter.String(), in.TargetUri, models.ReportStatusPending).
			Count(&dup).Error
		if err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateReport
		}
		if err := tx.Create(&report).Error; err != nil {
			// the partial unique index catches filings that raced past the
			// count check
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReport
			}
			return err
		}

		// auto-block: enough independent pending reports pull the content
		// from public view until a human looks at it
		var pending int64
		err = tx.Model(&models.Report{}).
			Where("target_uri = ? AND status = ?", in.TargetUri, models.ReportStatusPending).
			Count(&pending).Error
		if err != nil {
			return err
		}
		if int(pending) >= thresh.AutoBlockReportCount && ref.Status == models.StatusApproved {
			model, _ := contentModel(ref.Type)
			res := tx.Model(model).
				Where("uri = ? AND moderation_status = ?", in.TargetUri, models.StatusApproved).
				Update("moderation_status", models.StatusHeld)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				autoBlockCount.Inc()
				return enqueueEntries(tx, in.TargetUri, ref.Type, ref.AuthorDid, ref.CommunityDid, s.Now(),
					[]guard.HoldReason{{Reason: guard.ReasonReportThreshold}})
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("filing report: %w", err)
	}

	reportFiledCount.WithLabelValues(in.ReasonType).Inc()
	s.logger.Info("report filed", "reporter", in.Reporter, "target", in.TargetUri, "reason", in.ReasonType)
	return &report, nil
}

// ResolveReport closes a pending report. Only valid from pending; the update
// is guarded on the observed (status, appealStatus) pair so two moderators
// racing on the same report cannot both win. When the report is a re-opened
// appeal, dismissing again rejects the appeal for good; any other resolution
// accepts it.
func (s *Service) ResolveReport(ctx context.Context, moderator syntax.DID, reportID uint, resolutionType string) error {
	if !slices.Contains(resolutionTypes, resolutionType) {
		return fmt.Errorf("%w: unknown resolution type %q", ErrValidation, resolutionType)
	}

	var report models.Report
	if err := s.db.First(&report, reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: report %d", ErrNotFound, reportID)
		}
		return fmt.Errorf("loading report: %w", err)
	}
	if report.Status != models.ReportStatusPending {
		return ErrAlreadyResolved
	}

	now := s.Now()
	updates := map[string]any{
		"status":          models.ReportStatusResolved,
		"resolution_type": resolutionType,
		"resolved_by":     moderator.String(),
		"resolved_at":     now,
	}
	if report.AppealStatus == models.AppealPending {
		if resolutionType == models.ResolutionDismissed {
			// appeal denied; terminal, no further appeal possible
			updates["appeal_status"] = models.AppealRejected
		} else {
			// appeal accepted: the dismissal was overturned
			updates["appeal_status"] = models.AppealNone
		}
	}

	res := s.db.Model(&models.Report{}).
		Where("id = ? AND status = ? AND appeal_status = ?", reportID, models.ReportStatusPending, report.AppealStatus).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("resolving report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// lost a race with another moderator
		return ErrAlreadyResolved
	}

	reportResolvedCount.WithLabelValues(resolutionType).Inc()
	s.logger.Info("report resolved", "moderator", moderator, "report", reportID, "resolution", resolutionType, "appeal", report.AppealStatus == models.AppealPending)
	return nil
}

// AppealReport lets the original reporter contest a dismissal. The report
// re-enters the same pending review queue as fresh reports, distinguished
// only by its appeal status; the stored resolution type is cleared while the
// appeal is open. One appeal per report, ever.
func (s *Service) AppealReport(ctx context.Context, reporter syntax.DID, reportID uint, reason string) error {
	var report models.Report
	if err := s.db.First(&report, reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: report %d", ErrNotFound, reportID)
		}
		return fmt.Errorf("loading report: %w", err)
	}

	if report.Status != models.ReportStatusResolved {
		return ErrNotResolved
	}
	if report.ResolutionType == nil || *report.ResolutionType != models.ResolutionDismissed {
		return ErrNotDismissed
	}
	if report.ReporterDid != reporter.String() {
		return ErrNotReporter
	}
	if report.AppealStatus != models.AppealNone {
		return ErrAlreadyAppealed
	}

	now := s.Now()
	res := s.db.Model(&models.Report{}).
		Where("id = ? AND status = ? AND appeal_status = ?", reportID, models.ReportStatusResolved, models.AppealNone).
		Updates(map[string]any{
			"status":          models.ReportStatusPending,
			"appeal_status":   models.AppealPending,
			"appeal_reason":   reason,
			"appealed_at":     now,
			"resolution_type": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("appealing report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// raced with a concurrent appeal or moderator action
		return fmt.Errorf("%w: report changed concurrently", ErrConflict)
	}

	s.logger.Info("report appealed", "reporter", reporter, "report", reportID)
	return nil
}

type ListReportsInput struct {
	CommunityDid string // empty for all communities
	Limit        int
	Cursor       string
}

// ListPendingReports pages through the review queue, newest first. Appealed
// reports re-enter this same listing with AppealStatus set to pending.
func (s *Service) ListPendingReports(ctx context.Context, in ListReportsInput) ([]models.Report, *string, error) {
	limit := pagination.PageSize(in.Limit, 25, 100)

	q := s.db.Model(&models.Report{}).Where("status = ?", models.ReportStatusPending)
	if in.CommunityDid != "" {
		q = q.Where("community_did = ?", in.CommunityDid)
	}
	if at, id, ok := cursorPosition(in.Cursor); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", at, at, id)
	}

	var reports []models.Report
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&reports).Error; err != nil {
		return nil, nil, fmt.Errorf("listing reports: %w", err)
	}

	page, next := pagination.TrimPage(reports, limit, func(r models.Report) pagination.Cursor {
		return pagination.Cursor{OrderedAt: r.CreatedAt, Tiebreak: strconv.FormatUint(uint64(r.ID), 10)}
	})
	return page, next, nil
}

// WarningCount reports how many times an account has been resolved with a
// warning, so reviewers can weigh repeat behavior against the community's
// warn threshold. Counting only; reaching the threshold never auto-acts.
func (s *Service) WarningCount(ctx context.Context, targetDid string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Report{}).
		Where("target_did = ? AND status = ? AND resolution_type = ?", targetDid, models.ReportStatusResolved, models.ResolutionWarned).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting warnings: %w", err)
	}
	return count, nil
}
