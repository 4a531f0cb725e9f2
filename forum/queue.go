package forum

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"gorm.io/gorm"

	"github.com/parlor-social/parlor/guard"
	"github.com/parlor-social/parlor/models"
	"github.com/parlor-social/parlor/pagination"
)

// cursorPosition decodes a listing cursor into the (timestamp, id) resume
// position. Malformed cursors, including a non-numeric tiebreak, behave like
// no cursor at all.
func cursorPosition(token string) (time.Time, uint64, bool) {
	c := pagination.Decode(token)
	if c == nil {
		return time.Time{}, 0, false
	}
	id, err := strconv.ParseUint(c.Tiebreak, 10, 64)
	if err != nil {
		return time.Time{}, 0, false
	}
	return c.OrderedAt, id, true
}

// enqueueEntries writes one moderation queue row per hold reason, inside the
// caller's transaction, so held content and its reasons commit atomically.
func enqueueEntries(tx *gorm.DB, uri, contentType, authorDid, communityDid string, now time.Time, reasons []guard.HoldReason) error {
	for _, r := range reasons {
		entry := models.ModerationQueueEntry{
			CreatedAt:    now,
			ContentUri:   uri,
			ContentType:  contentType,
			AuthorDid:    authorDid,
			CommunityDid: communityDid,
			Reason:       r.Reason,
			MatchedWords: strings.Join(r.MatchedWords, ","),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("enqueueing moderation entry: %w", err)
		}
	}
	return nil
}

// ApproveContent is the moderator action that releases held content. The
// status flip and the author's approved-contribution credit are one
// transaction, guarded so a piece of content is credited at most once.
func (s *Service) ApproveContent(ctx context.Context, moderator syntax.DID, uri string) error {
	ref, err := s.findContent(ctx, uri)
	if err != nil {
		return err
	}
	if ref == nil {
		return fmt.Errorf("%w: content %s", ErrNotFound, uri)
	}
	model, _ := contentModel(ref.Type)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(model).
			Where("uri = ? AND moderation_status = ?", uri, models.StatusHeld).
			Update("moderation_status", models.StatusApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyModerated
		}
		return incrementApprovedCount(tx, ref.AuthorDid)
	})
	if err != nil {
		return err
	}
	s.logger.Info("content approved", "moderator", moderator, "uri", uri, "author", ref.AuthorDid)
	return nil
}

// RejectContent is the moderator action that refuses held content. The
// author's repo keeps the record; it simply never becomes publicly visible.
func (s *Service) RejectContent(ctx context.Context, moderator syntax.DID, uri string) error {
	ref, err := s.findContent(ctx, uri)
	if err != nil {
		return err
	}
	if ref == nil {
		return fmt.Errorf("%w: content %s", ErrNotFound, uri)
	}
	model, _ := contentModel(ref.Type)

	res := s.db.Model(model).
		Where("uri = ? AND moderation_status = ?", uri, models.StatusHeld).
		Update("moderation_status", models.StatusRejected)
	if res.Error != nil {
		return fmt.Errorf("rejecting content: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyModerated
	}
	s.logger.Info("content rejected", "moderator", moderator, "uri", uri, "author", ref.AuthorDid)
	return nil
}

type ListQueueInput struct {
	CommunityDid string // empty for all communities
	Reason       string // empty for all reasons
	Limit        int
	Cursor       string
}

// ListQueue pages through moderation queue entries, newest first, for the
// reviewer UI. The queue rows are history, not a work queue: resolving
// content does not remove its entries.
func (s *Service) ListQueue(ctx context.Context, in ListQueueInput) ([]models.ModerationQueueEntry, *string, error) {
	limit := pagination.PageSize(in.Limit, 25, 100)

	q := s.db.Model(&models.ModerationQueueEntry{})
	if in.CommunityDid != "" {
		q = q.Where("community_did = ?", in.CommunityDid)
	}
	if in.Reason != "" {
		q = q.Where("reason = ?", in.Reason)
	}
	if at, id, ok := cursorPosition(in.Cursor); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", at, at, id)
	}

	var entries []models.ModerationQueueEntry
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&entries).Error; err != nil {
		return nil, nil, fmt.Errorf("listing moderation queue: %w", err)
	}

	page, next := pagination.TrimPage(entries, limit, func(e models.ModerationQueueEntry) pagination.Cursor {
		return pagination.Cursor{OrderedAt: e.CreatedAt, Tiebreak: strconv.FormatUint(uint64(e.ID), 10)}
	})
	return page, next, nil
}
