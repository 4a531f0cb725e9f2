package guard

import (
	"context"
	"fmt"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/parlor-social/parlor/guard/keyword"
)

// Hold reasons recorded in the moderation queue.
const (
	ReasonWordFilter      = "word_filter"
	ReasonFirstPost       = "first_post_queue"
	ReasonLinkHold        = "link_hold"
	ReasonBurst           = "burst"
	ReasonTopicDelay      = "topic_creation_delay"
	ReasonReportThreshold = "report_threshold"
)

// HoldReason is one independent reason content was held. MatchedWords is
// only populated for word filter hits.
type HoldReason struct {
	Reason       string
	MatchedWords []string
}

// ScanInput carries everything the scanner needs about one write attempt.
// RecentPostCount is the author's item count (any moderation status) within
// the trailing burst window, not including the current attempt; the caller
// supplies it from a time-ranged query.
type ScanInput struct {
	AuthorDid       syntax.DID
	CommunityDid    string
	Title           string
	Body            string
	IsTopic         bool
	AuthorLevel     TrustLevel
	ApprovedCount   int64
	RecentPostCount int
}

type ScanResult struct {
	Held    bool
	Reasons []HoldReason
}

// ScanContent runs the word filter, first-post queue, link hold, burst, and
// topic delay checks. The checks are independent and all applicable reasons are
// reported; there is no short-circuit, since reviewers want full context.
// Pure apart from the blocklist fetch: scanning the same input twice yields
// identical reasons.
func (g *Guard) ScanContent(ctx context.Context, in ScanInput, t Thresholds) (ScanResult, error) {
	var out ScanResult

	terms, err := g.Blocklists.Get(ctx, in.CommunityDid)
	if err != nil {
		return out, fmt.Errorf("fetching community blocklist: %w", err)
	}
	if matched := keyword.MatchTerms(in.Title+" "+in.Body, terms); len(matched) > 0 {
		out.Reasons = append(out.Reasons, HoldReason{Reason: ReasonWordFilter, MatchedWords: matched})
	}

	// a new voice's first N contributions always get human review
	if in.ApprovedCount < int64(t.FirstPostQueueCount) {
		out.Reasons = append(out.Reasons, HoldReason{Reason: ReasonFirstPost})
	}

	if t.LinkHoldEnabled && in.AuthorLevel != TrustTrusted && len(ExtractTextURLs(in.Body)) > 0 {
		out.Reasons = append(out.Reasons, HoldReason{Reason: ReasonLinkHold})
	}

	if in.RecentPostCount > t.BurstPostCount {
		out.Reasons = append(out.Reasons, HoldReason{Reason: ReasonBurst})
	}

	// new voices may still open topics, they just go through review first
	if t.TopicCreationDelayEnabled && in.IsTopic && in.AuthorLevel == TrustNew {
		out.Reasons = append(out.Reasons, HoldReason{Reason: ReasonTopicDelay})
	}

	out.Held = len(out.Reasons) > 0
	if out.Held {
		for _, r := range out.Reasons {
			contentHeldCount.WithLabelValues(r.Reason).Inc()
		}
	}
	return out, nil
}
