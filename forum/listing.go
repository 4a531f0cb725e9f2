package forum

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"gorm.io/gorm"

	"github.com/parlor-social/parlor/models"
	"github.com/parlor-social/parlor/pagination"
	"github.com/parlor-social/parlor/visibility"
)

// Viewer identifies who is reading. A nil Profile means anonymous (capped at
// safe); a nil DID means not logged in. Moderators see held and rejected
// content; authors see their own regardless of status.
type Viewer struct {
	DID         *syntax.DID
	Profile     *visibility.ViewerProfile
	IsModerator bool
}

type ListTopicsInput struct {
	// CommunityDid scopes the listing to one community; empty means the
	// multi-community aggregate feed.
	CommunityDid string
	Limit        int
	Cursor       string
}

// ListTopics returns a page of topics the viewer may see, newest first.
// Filtering is staged: eligible communities first (aggregate mode only),
// then categories within them by maturity, then content rows; an empty set
// at any stage short-circuits to an empty page without further queries.
func (s *Service) ListTopics(ctx context.Context, viewer Viewer, in ListTopicsInput) ([]models.Topic, *string, error) {
	limit := pagination.PageSize(in.Limit, 25, 100)

	maxByCommunity := make(map[string]visibility.Rating)

	if in.CommunityDid == "" {
		var communities []models.Community
		if err := s.db.Find(&communities).Error; err != nil {
			return nil, nil, fmt.Errorf("loading communities: %w", err)
		}
		views := make([]visibility.CommunityView, len(communities))
		for i, c := range communities {
			views[i] = visibility.CommunityView{
				Did:            c.Did,
				MaturityRating: visibility.Rating(c.MaturityRating),
				AgeThreshold:   c.AgeThreshold,
			}
		}
		allowed := visibility.FilterCommunities(viewer.Profile, views)
		if len(allowed) == 0 {
			return []models.Topic{}, nil, nil
		}
		for _, c := range allowed {
			maxByCommunity[c.Did] = visibility.MaxAllowed(viewer.Profile, c.AgeThreshold)
		}
	} else {
		comm, err := s.getCommunity(ctx, in.CommunityDid)
		if err != nil {
			return nil, nil, err
		}
		max := visibility.MaxAllowed(viewer.Profile, comm.AgeThreshold)
		if !visibility.Allows(max, visibility.Rating(comm.MaturityRating)) {
			return []models.Topic{}, nil, nil
		}
		maxByCommunity[comm.Did] = max
	}

	communityDids := make([]string, 0, len(maxByCommunity))
	for did := range maxByCommunity {
		communityDids = append(communityDids, did)
	}

	var categories []models.Category
	if err := s.db.Where("community_did IN ?", communityDids).Find(&categories).Error; err != nil {
		return nil, nil, fmt.Errorf("loading categories: %w", err)
	}
	var categoryIDs []uint
	for _, cat := range categories {
		if visibility.Allows(maxByCommunity[cat.CommunityDid], visibility.Rating(cat.MaturityRating)) {
			categoryIDs = append(categoryIDs, cat.ID)
		}
	}
	if len(categoryIDs) == 0 {
		return []models.Topic{}, nil, nil
	}

	q := s.db.Model(&models.Topic{}).Where("category_id IN ?", categoryIDs)
	q = withStatusVisibility(q, viewer)
	if at, id, ok := cursorPosition(in.Cursor); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", at, at, id)
	}

	var topics []models.Topic
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&topics).Error; err != nil {
		return nil, nil, fmt.Errorf("listing topics: %w", err)
	}

	page, next := pagination.TrimPage(topics, limit, func(t models.Topic) pagination.Cursor {
		return pagination.Cursor{OrderedAt: t.CreatedAt, Tiebreak: strconv.FormatUint(uint64(t.ID), 10)}
	})
	return page, next, nil
}

// withStatusVisibility restricts rows to approved content, except for the
// author's own items and for moderators.
func withStatusVisibility(q *gorm.DB, viewer Viewer) *gorm.DB {
	if viewer.IsModerator {
		return q
	}
	if viewer.DID != nil {
		return q.Where("moderation_status = ? OR author_did = ?", models.StatusApproved, viewer.DID.String())
	}
	return q.Where("moderation_status = ?", models.StatusApproved)
}

// GetTopic fetches a single topic, applying the same visibility rules as
// listings: non-approved content is invisible except to its author and
// moderators, and maturity gating hides the topic entirely rather than
// acknowledging it exists.
func (s *Service) GetTopic(ctx context.Context, viewer Viewer, uri string) (*models.Topic, error) {
	var topic models.Topic
	if err := s.db.Where("uri = ?", uri).First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: topic %s", ErrNotFound, uri)
		}
		return nil, fmt.Errorf("loading topic: %w", err)
	}

	isAuthor := viewer.DID != nil && viewer.DID.String() == topic.AuthorDid
	if topic.ModerationStatus != models.StatusApproved && !viewer.IsModerator && !isAuthor {
		return nil, fmt.Errorf("%w: topic %s", ErrNotFound, uri)
	}
	if viewer.IsModerator || isAuthor {
		return &topic, nil
	}

	comm, err := s.getCommunity(ctx, topic.CommunityDid)
	if err != nil {
		return nil, err
	}
	var cat models.Category
	if err := s.db.First(&cat, topic.CategoryID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading category: %w", err)
	}
	max := visibility.MaxAllowed(viewer.Profile, comm.AgeThreshold)
	if !visibility.Allows(max, visibility.Rating(comm.MaturityRating)) || !visibility.Allows(max, visibility.Rating(cat.MaturityRating)) {
		return nil, fmt.Errorf("%w: topic %s", ErrNotFound, uri)
	}
	return &topic, nil
}

type ListRepliesInput struct {
	TopicUri string
	Limit    int
	Cursor   string
}

// ListReplies pages through a topic's replies, newest first. The topic
// itself must be visible to the viewer; reply rows then get the same status
// filtering as every listing.
func (s *Service) ListReplies(ctx context.Context, viewer Viewer, in ListRepliesInput) ([]models.Reply, *string, error) {
	if _, err := s.GetTopic(ctx, viewer, in.TopicUri); err != nil {
		return nil, nil, err
	}
	limit := pagination.PageSize(in.Limit, 25, 100)

	q := s.db.Model(&models.Reply{}).Where("topic_uri = ?", in.TopicUri)
	q = withStatusVisibility(q, viewer)
	if at, id, ok := cursorPosition(in.Cursor); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", at, at, id)
	}

	var replies []models.Reply
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&replies).Error; err != nil {
		return nil, nil, fmt.Errorf("listing replies: %w", err)
	}

	page, next := pagination.TrimPage(replies, limit, func(r models.Reply) pagination.Cursor {
		return pagination.Cursor{OrderedAt: r.CreatedAt, Tiebreak: strconv.FormatUint(uint64(r.ID), 10)}
	})
	return page, next, nil
}
