package models

import (
	"time"
)

// Moderation status values for topics and replies.
const (
	StatusApproved = "approved"
	StatusHeld     = "held"
	StatusRejected = "rejected"
)

// Content type values, used in moderation queue entries and report targets.
const (
	ContentTypeTopic = "topic"
	ContentTypeReply = "reply"
)

// Account tracks metadata for a federated identity observed by this forum.
// The authoritative repo lives on the account's PDS; this row only carries
// what the trust classifier and query layer need. CreatedAt is set when the
// identity is first seen and never updated.
type Account struct {
	ID            uint   `gorm:"primarykey"`
	Did           string `gorm:"uniqueIndex"`
	Handle        string
	CreatedAt     time.Time
	ApprovedCount int64
	// TrustStatus is a denormalized snapshot for query filtering only; the
	// write path always reclassifies from the raw row.
	TrustStatus string
}

// Community is a forum community hosted under its own DID.
type Community struct {
	ID             uint   `gorm:"primarykey"`
	Did            string `gorm:"uniqueIndex"`
	Name           string
	MaturityRating string
	AgeThreshold   int
	CreatedAt      time.Time
}

// Category is a posting category within a community, carrying its own
// maturity rating.
type Category struct {
	ID             uint   `gorm:"primarykey"`
	CommunityDid   string `gorm:"index"`
	Name           string
	MaturityRating string
}

// CommunityModSettings holds the fully-resolved moderation thresholds for one
// community. Rows always contain every field; partial updates are merged onto
// the stored row (or onto defaults when no row exists) before writing.
type CommunityModSettings struct {
	ID                         uint   `gorm:"primarykey"`
	CommunityDid               string `gorm:"uniqueIndex"`
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
	UpdatedAt                  time.Time
}

// Topic is a top-level post in a community.
type Topic struct {
	ID               uint      `gorm:"primarykey"`
	Uri              string    `gorm:"uniqueIndex"`
	Cid              string
	Rkey             string
	AuthorDid        string    `gorm:"index"`
	CommunityDid     string    `gorm:"index"`
	CategoryID       uint      `gorm:"index"`
	Title            string
	Body             string
	ModerationStatus string    `gorm:"index"`
	CreatedAt        time.Time `gorm:"index"`
}

// Reply is a response to a topic, or to another reply within the topic.
type Reply struct {
	ID               uint      `gorm:"primarykey"`
	Uri              string    `gorm:"uniqueIndex"`
	Cid              string
	Rkey             string
	TopicUri         string    `gorm:"index"`
	ParentUri        string
	AuthorDid        string    `gorm:"index"`
	CommunityDid     string    `gorm:"index"`
	Body             string
	ModerationStatus string    `gorm:"index"`
	CreatedAt        time.Time `gorm:"index"`
}

// ModerationQueueEntry records one reason a piece of content was held. Rows
// are immutable history: a moderator action changes the content's status but
// never mutates these entries. One row per (content, reason) pair, written in
// the same transaction as the held content row.
type ModerationQueueEntry struct {
	ID           uint `gorm:"primarykey"`
	CreatedAt    time.Time
	ContentUri   string `gorm:"index"`
	ContentType  string
	AuthorDid    string `gorm:"index"`
	CommunityDid string `gorm:"index"`
	Reason       string
	// comma-joined; only set for word_filter entries
	MatchedWords string
}

// Report status values.
const (
	ReportStatusPending  = "pending"
	ReportStatusResolved = "resolved"
)

// Report resolution types.
const (
	ResolutionDismissed = "dismissed"
	ResolutionWarned    = "warned"
	ResolutionLabeled   = "labeled"
	ResolutionRemoved   = "removed"
	ResolutionBanned    = "banned"
)

// Appeal status values. "rejected" is terminal.
const (
	AppealNone     = "none"
	AppealPending  = "pending"
	AppealRejected = "rejected"
)

// Report is a user-filed report against content or an account. Status flows
// pending -> resolved; a dismissed resolution may be appealed once, which
// re-opens status to pending with AppealStatus tracking the appeal. The
// partial unique index enforces one pending report per (reporter, target)
// even across concurrent filings.
type Report struct {
	ID             uint `gorm:"primarykey"`
	CreatedAt      time.Time
	ReporterDid    string `gorm:"index:idx_reporter_target;uniqueIndex:idx_reports_pending_dedupe,where:status = 'pending'"`
	TargetUri      string `gorm:"index:idx_reporter_target;index;uniqueIndex:idx_reports_pending_dedupe"`
	TargetDid      string `gorm:"index"`
	CommunityDid   string `gorm:"index"`
	ReasonType     string
	Description    string
	Status         string `gorm:"index"`
	ResolutionType *string
	ResolvedBy     *string
	ResolvedAt     *time.Time
	AppealStatus   string
	AppealReason   *string
	AppealedAt     *time.Time
}

// All returns every model for AutoMigrate.
func All() []any {
	return []any{
		&Account{},
		&Community{},
		&Category{},
		&CommunityModSettings{},
		&Topic{},
		&Reply{},
		&ModerationQueueEntry{},
		&Report{},
	}
}
