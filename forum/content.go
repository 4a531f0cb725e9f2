package forum

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"gorm.io/gorm"

	"github.com/parlor-social/parlor/guard"
	"github.com/parlor-social/parlor/models"
)

// Record collections written to user repositories.
const (
	TopicCollection = "social.parlor.forum.topic"
	ReplyCollection = "social.parlor.forum.reply"
)

const (
	maxTitleLen = 300
	maxBodyLen  = 50_000
)

type CreateTopicInput struct {
	Author       syntax.DID
	CommunityDid string
	CategoryID   uint
	Title        string
	Body         string
}

type CreateReplyInput struct {
	Author    syntax.DID
	TopicUri  string
	ParentUri string
	Body      string
}

// CreateResult reports where the content landed. Held content is stored but
// visible only to its author and to moderators until reviewed.
type CreateResult struct {
	Uri     string
	Cid     string
	Status  string
	Reasons []guard.HoldReason
}

type writeEval struct {
	acct   *models.Account
	level  guard.TrustLevel
	thresh guard.Thresholds
	scan   guard.ScanResult
}

// evaluateWrite runs the write-path decision chain: classify the author,
// consume the rate limit window for untrusted authors, then screen the
// content. The rate limit increment is intentionally not rolled back on
// rejection.
func (s *Service) evaluateWrite(ctx context.Context, author syntax.DID, communityDid, title, body string, isTopic bool) (*writeEval, error) {
	thresh, err := s.GetThresholds(ctx, communityDid)
	if err != nil {
		return nil, err
	}
	acct, err := s.ensureAccount(ctx, author)
	if err != nil {
		return nil, err
	}
	level := s.guard.ClassifyAccount(s.accountMeta(ctx, acct), thresh)
	s.refreshTrustStatus(acct, level)

	if level != guard.TrustTrusted {
		if limited := s.guard.CheckWriteRate(ctx, author, communityDid, level, thresh); limited {
			return nil, ErrRateLimited
		}
	}

	window := time.Duration(thresh.BurstWindowMinutes) * time.Minute
	recent, err := s.recentPostCount(ctx, author, window)
	if err != nil {
		return nil, err
	}

	scan, err := s.guard.ScanContent(ctx, guard.ScanInput{
		AuthorDid:       author,
		CommunityDid:    communityDid,
		Title:           title,
		Body:            body,
		IsTopic:         isTopic,
		AuthorLevel:     level,
		ApprovedCount:   acct.ApprovedCount,
		RecentPostCount: recent,
	}, thresh)
	if err != nil {
		return nil, err
	}

	return &writeEval{acct: acct, level: level, thresh: thresh, scan: scan}, nil
}

// recentPostCount counts the author's items of any moderation status within
// the trailing window, for burst detection.
func (s *Service) recentPostCount(ctx context.Context, author syntax.DID, window time.Duration) (int, error) {
	since := s.Now().Add(-window)
	var topics, replies int64
	if err := s.db.Model(&models.Topic{}).Where("author_did = ? AND created_at > ?", author.String(), since).Count(&topics).Error; err != nil {
		return 0, fmt.Errorf("counting recent topics: %w", err)
	}
	if err := s.db.Model(&models.Reply{}).Where("author_did = ? AND created_at > ?", author.String(), since).Count(&replies).Error; err != nil {
		return 0, fmt.Errorf("counting recent replies: %w", err)
	}
	return int(topics + replies), nil
}

// CreateTopic validates, screens, and publishes a new topic. The PDS write
// happens first; if it fails, nothing is stored locally. The local row and
// any moderation queue entries are one atomic transaction, so a reader never
// observes held content without its reasons.
func (s *Service) CreateTopic(ctx context.Context, in CreateTopicInput) (*CreateResult, error) {
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	if title == "" || len(title) > maxTitleLen {
		return nil, fmt.Errorf("%w: title must be 1-%d characters", ErrValidation, maxTitleLen)
	}
	if body == "" || len(body) > maxBodyLen {
		return nil, fmt.Errorf("%w: body must be 1-%d characters", ErrValidation, maxBodyLen)
	}
	if _, err := s.getCommunity(ctx, in.CommunityDid); err != nil {
		return nil, err
	}
	var cat models.Category
	if err := s.db.Where("id = ? AND community_did = ?", in.CategoryID, in.CommunityDid).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, in.CategoryID)
		}
		return nil, fmt.Errorf("loading category: %w", err)
	}

	eval, err := s.evaluateWrite(ctx, in.Author, in.CommunityDid, title, body, true)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	uri, cid, err := s.pds.WriteRecord(ctx, in.Author, TopicCollection, map[string]any{
		"$type":     TopicCollection,
		"community": in.CommunityDid,
		"title":     title,
		"content":   body,
		"createdAt": now.UTC().Format(syntax.AtprotoDatetimeLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamWrite, err)
	}

	status := models.StatusApproved
	if eval.scan.Held {
		status = models.StatusHeld
	}
	topic := models.Topic{
		Uri:              uri,
		Cid:              cid,
		Rkey:             rkeyFromURI(uri),
		AuthorDid:        in.Author.String(),
		CommunityDid:     in.CommunityDid,
		CategoryID:       in.CategoryID,
		Title:            title,
		Body:             body,
		ModerationStatus: status,
		CreatedAt:        now,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&topic).Error; err != nil {
			return err
		}
		if eval.scan.Held {
			return enqueueEntries(tx, uri, models.ContentTypeTopic, in.Author.String(), in.CommunityDid, now, eval.scan.Reasons)
		}
		return incrementApprovedCount(tx, in.Author.String())
	})
	if err != nil {
		// local state is untouched; the orphaned PDS record is cleaned up
		// out-of-band by the firehose mirror
		return nil, fmt.Errorf("storing topic: %w", err)
	}

	s.notifyMentions(in.Author, uri, body)
	contentCreatedCount.WithLabelValues(models.ContentTypeTopic, status).Inc()
	s.logger.Info("topic created", "did", in.Author, "community", in.CommunityDid, "uri", uri, "status", status, "reasons", len(eval.scan.Reasons))

	return &CreateResult{Uri: uri, Cid: cid, Status: status, Reasons: eval.scan.Reasons}, nil
}

// CreateReply validates, screens, and publishes a reply to an existing
// topic. Same transaction shape as CreateTopic.
func (s *Service) CreateReply(ctx context.Context, in CreateReplyInput) (*CreateResult, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" || len(body) > maxBodyLen {
		return nil, fmt.Errorf("%w: body must be 1-%d characters", ErrValidation, maxBodyLen)
	}

	var topic models.Topic
	if err := s.db.Where("uri = ?", in.TopicUri).First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: topic %s", ErrNotFound, in.TopicUri)
		}
		return nil, fmt.Errorf("loading topic: %w", err)
	}
	parentUri := in.ParentUri
	if parentUri == "" {
		parentUri = in.TopicUri
	}

	eval, err := s.evaluateWrite(ctx, in.Author, topic.CommunityDid, "", body, false)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	uri, cid, err := s.pds.WriteRecord(ctx, in.Author, ReplyCollection, map[string]any{
		"$type":     ReplyCollection,
		"topic":     in.TopicUri,
		"parent":    parentUri,
		"content":   body,
		"createdAt": now.UTC().Format(syntax.AtprotoDatetimeLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamWrite, err)
	}

	status := models.StatusApproved
	if eval.scan.Held {
		status = models.StatusHeld
	}
	reply := models.Reply{
		Uri:              uri,
		Cid:              cid,
		Rkey:             rkeyFromURI(uri),
		TopicUri:         in.TopicUri,
		ParentUri:        parentUri,
		AuthorDid:        in.Author.String(),
		CommunityDid:     topic.CommunityDid,
		Body:             body,
		ModerationStatus: status,
		CreatedAt:        now,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reply).Error; err != nil {
			return err
		}
		if eval.scan.Held {
			return enqueueEntries(tx, uri, models.ContentTypeReply, in.Author.String(), topic.CommunityDid, now, eval.scan.Reasons)
		}
		return incrementApprovedCount(tx, in.Author.String())
	})
	if err != nil {
		return nil, fmt.Errorf("storing reply: %w", err)
	}

	s.notifyMentions(in.Author, uri, body)
	contentCreatedCount.WithLabelValues(models.ContentTypeReply, status).Inc()
	s.logger.Info("reply created", "did", in.Author, "topic", in.TopicUri, "uri", uri, "status", status)

	return &CreateResult{Uri: uri, Cid: cid, Status: status, Reasons: eval.scan.Reasons}, nil
}

// Delete variants: an author delete removes the record from the author's
// repo and hard-deletes the local row; a moderator delete is local-only and
// soft (status flips to rejected, the author's repo is untouched).
type DeleteKind string

const (
	AuthorDelete    = DeleteKind("author")
	ModeratorDelete = DeleteKind("moderator")
)

// DeleteContent applies the requested delete variant to the topic or reply
// at uri. For AuthorDelete the actor must be the author; the PDS delete runs
// first so a failed upstream delete leaves local state untouched. A repeated
// ModeratorDelete fails with a conflict.
func (s *Service) DeleteContent(ctx context.Context, actor syntax.DID, uri string, kind DeleteKind) error {
	ref, err := s.findContent(ctx, uri)
	if err != nil {
		return err
	}
	if ref == nil {
		return fmt.Errorf("%w: content %s", ErrNotFound, uri)
	}

	model, collection := contentModel(ref.Type)

	switch kind {
	case AuthorDelete:
		if ref.AuthorDid != actor.String() {
			return fmt.Errorf("%w: only the author may delete from origin", ErrForbidden)
		}
		if err := s.pds.DeleteRecord(ctx, actor, collection, ref.Rkey); err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamWrite, err)
		}
		if err := s.db.Where("uri = ?", uri).Delete(model).Error; err != nil {
			return fmt.Errorf("deleting content: %w", err)
		}
		s.logger.Info("content deleted by author", "did", actor, "uri", uri)
		return nil

	case ModeratorDelete:
		res := s.db.Model(model).
			Where("uri = ? AND moderation_status <> ?", uri, models.StatusRejected).
			Update("moderation_status", models.StatusRejected)
		if res.Error != nil {
			return fmt.Errorf("removing content: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyRemoved
		}
		s.logger.Info("content removed by moderator", "moderator", actor, "uri", uri)
		return nil

	default:
		return fmt.Errorf("%w: unknown delete kind %q", ErrValidation, kind)
	}
}

// contentRef is the minimal lookup result shared by deletes and reports.
type contentRef struct {
	Type         string
	AuthorDid    string
	CommunityDid string
	Status       string
	Rkey         string
}

// findContent locates a topic or reply by URI. Returns (nil, nil) when
// neither exists; callers choose the error.
func (s *Service) findContent(ctx context.Context, uri string) (*contentRef, error) {
	var topic models.Topic
	err := s.db.Where("uri = ?", uri).First(&topic).Error
	if err == nil {
		return &contentRef{
			Type:         models.ContentTypeTopic,
			AuthorDid:    topic.AuthorDid,
			CommunityDid: topic.CommunityDid,
			Status:       topic.ModerationStatus,
			Rkey:         topic.Rkey,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading content: %w", err)
	}

	var reply models.Reply
	err = s.db.Where("uri = ?", uri).First(&reply).Error
	if err == nil {
		return &contentRef{
			Type:         models.ContentTypeReply,
			AuthorDid:    reply.AuthorDid,
			CommunityDid: reply.CommunityDid,
			Status:       reply.ModerationStatus,
			Rkey:         reply.Rkey,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading content: %w", err)
	}
	return nil, nil
}

func contentModel(contentType string) (any, string) {
	if contentType == models.ContentTypeReply {
		return &models.Reply{}, ReplyCollection
	}
	return &models.Topic{}, TopicCollection
}

func incrementApprovedCount(tx *gorm.DB, authorDid string) error {
	return tx.Model(&models.Account{}).
		Where("did = ?", authorDid).
		UpdateColumn("approved_count", gorm.Expr("approved_count + 1")).Error
}

func rkeyFromURI(uri string) string {
	parts := strings.Split(uri, "/")
	return parts[len(parts)-1]
}

var mentionRegex = regexp.MustCompile(`@([a-zA-Z0-9][a-zA-Z0-9.-]+)`)

// notifyMentions dispatches mention notifications as a post-commit task;
// notification failure never affects the write that carried the mention.
func (s *Service) notifyMentions(author syntax.DID, uri, body string) {
	handles := mentionRegex.FindAllStringSubmatch(body, -1)
	if len(handles) == 0 {
		return
	}
	s.tasks.Enqueue("notify-mentions", func(ctx context.Context) error {
		for _, m := range handles {
			handle, err := syntax.ParseHandle(m[1])
			if err != nil {
				continue
			}
			s.logger.Info("mention notification", "author", author, "uri", uri, "handle", handle)
		}
		return nil
	})
}
