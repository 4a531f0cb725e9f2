package forum

import (
	"context"
	"testing"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/parlor-social/parlor/guard"
	"github.com/parlor-social/parlor/models"
)

const (
	reporterDid = syntax.DID("did:plc:reporter000000000000000w")
	reporter2   = syntax.DID("did:plc:reporter000000000000000x")
	reporter3   = syntax.DID("did:plc:reporter000000000000000y")
)

// reportFixture seeds a community and one approved topic to report against.
func reportFixture(t *testing.T, env *testEnv, thresh guard.Thresholds) (syntax.DID, string) {
	t.Helper()
	ctx := context.Background()
	catID := env.seedCommunity(t, testCommunity, thresh)

	author := syntax.DID("did:plc:author00000000000000000r")
	env.seedAccount(t, author, 60*24*time.Hour, 5)

	res, err := env.svc.CreateTopic(ctx, CreateTopicInput{
		Author: author, CommunityDid: testCommunity, CategoryID: catID,
		Title: "reported topic", Body: "contested content",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, res.Status)
	return author, res.Uri
}

func TestFileReportValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, uri := reportFixture(t, env, openThresholds())

	_, err := env.svc.FileReport(ctx, FileReportInput{Reporter: reporterDid, TargetUri: uri, ReasonType: "bogus"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.FileReport(ctx, FileReportInput{Reporter: reporterDid, TargetUri: "at://did:plc:x/social.parlor.forum.topic/nope", ReasonType: "spam"})
	assert.ErrorIs(t, err, ErrTargetNotFound)

	_, err = env.svc.FileReport(ctx, FileReportInput{Reporter: author, TargetUri: uri, ReasonType: "spam"})
	assert.ErrorIs(t, err, ErrSelfReport)

	_, err = env.svc.FileReport(ctx, FileReportInput{Reporter: reporterDid, TargetUri: uri, ReasonType: "spam"})
	require.NoError(t, err)

	// one pending report per (reporter, target)
	_, err = env.svc.FileReport(ctx, FileReportInput{Reporter: reporterDid, TargetUri: uri, ReasonType: "rude"})
	assert.ErrorIs(t, err, ErrDuplicateReport)
}

func TestPendingReportUniquenessEnforcedByIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, uri := reportFixture(t, env, openThresholds())

	report, err := env.svc.FileReport(ctx, FileReportInput{Reporter: reporterDid, TargetUri: uri, ReasonType: "spam"})
	require.NoError(t, err)

	// a second pending row written around the workflow's duplicate check
	// still hits the partial unique index
	dup := models.Report{
		CreatedAt:    env.now,
		ReporterDid:  reporterDid.String(),
		TargetUri:    uri,
		TargetDid:    report.TargetDid,
		CommunityDid: report.CommunityDid,
		ReasonType:   "rude",
		Status:       models.ReportStatusPending,
		AppealStatus: models.AppealNone,
	}
	err = env.svc.db.Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// resolved reports do not block a fresh filing by the same reporter
	require.NoError(t, env.svc.ResolveReport(ctx, testModerator, report.ID, models.ResolutionDismissed))
	_, err = env.svc.FileReport(ctx, FileReportInput{Reporter: reporterDid, TargetUri: uri, ReasonType: "spam"})
	require.NoError(t, err)
}

func TestResolveReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, uri := reportFixture(t, env, openThresholds())

	report, err := env.svc.FileReport(ctx, FileReportInput{Reporter: reporterDid, TargetUri: uri, ReasonType: "spam"})
	require.NoError(t, err)

	err = env.svc.ResolveReport(ctx, testModerator, report.ID, "shrugged")
	assert.ErrorIs(t, err, ErrValidation)

	err = env.svc.ResolveReport(ctx, testModerator, 99999, models.ResolutionDismissed)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.svc.ResolveReport(ctx, testModerator, report.ID, models.ResolutionWarned))

	var stored models.Report
	require.NoError(t, env.svc.db.First(&stored, report.ID).Error)
	assert.Equal(t, models.ReportStatusResolved, stored.Status)
	require.NotNil(t, stored.ResolutionType)
	assert.Equal(t, models.ResolutionWarned, *stored.ResolutionType)
	require.NotNil(t, stored.ResolvedBy)
	assert.Equal(t, testModerator.String(), *stored.ResolvedBy)
	assert.NotNil(t, stored.ResolvedAt)

	err = env.svc.ResolveReport(ctx, testModerator, report.ID, models.ResolutionDismissed)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	count, err := env.svc.WarningCount(ctx, stored.TargetDid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAppealLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, uri := reportFixture(t, env, openThresholds())

	report, err := env.svc.FileReport(ctx, FileReportInput{Reporter: reporterDid, TargetUri: uri, ReasonType: "violation"})
	require.NoError(t, err)

	// nothing to appeal while the report is pending
	err = env.svc.AppealReport(ctx, reporterDid, report.ID, "look again")
	assert.ErrorIs(t, err, ErrNotResolved)

	require.NoError(t, env.svc.ResolveReport(ctx, testModerator, report.ID, models.ResolutionDismissed))

	// only dismissals are appealable, and only by the reporter
	err = env.svc.AppealReport(ctx, reporter2, report.ID, "not mine")
	assert.ErrorIs(t, err, ErrNotReporter)

	require.NoError(t, env.svc.AppealReport(ctx, reporterDid, report.ID, "look again"))

	// the appeal re-opens the report into the pending queue
	var stored models.Report
	require.NoError(t, env.svc.db.First(&stored, report.ID).Error)
	assert.Equal(t, models.ReportStatusPending, stored.Status)
	assert.Equal(t, models.AppealPending, stored.AppealStatus)
	assert.Nil(t, stored.ResolutionType)
	require.NotNil(t, stored.AppealReason)
	assert.Equal(t, "look again", *stored.AppealReason)

	pending, _, err := env.svc.ListPendingReports(ctx, ListReportsInput{CommunityDid: testCommunity})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, report.ID, pending[0].ID)

	// a second appeal while the first is open fails
	err = env.svc.AppealReport(ctx, reporterDid, report.ID, "again")
	assert.ErrorIs(t, err, ErrConflict)

	// dismissing the appealed report again denies the appeal for good
	require.NoError(t, env.svc.ResolveReport(ctx, testModerator, report.ID, models.ResolutionDismissed))
	require.NoError(t, env.svc.db.First(&stored, report.ID).Error)
	assert.Equal(t, models.ReportStatusResolved, stored.Status)
	assert.Equal(t, models.AppealRejected, stored.AppealStatus)

	err = env.svc.AppealReport(ctx, reporterDid, report.ID, "once more")
	assert.ErrorIs(t, err, ErrAlreadyAppealed)
}

func TestAppealAcceptedClearsAppealState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, uri := reportFixture(t, env, openThresholds())

	report, err := env.svc.FileReport(ctx, FileReportInput{Reporter: reporterDid, TargetUri: uri, ReasonType: "violation"})
	require.NoError(t, err)
	require.NoError(t, env.svc.ResolveReport(ctx, testModerator, report.ID, models.ResolutionDismissed))
	require.NoError(t, env.svc.AppealReport(ctx, reporterDid, report.ID, "look again"))

	// the second reviewer agrees with the appeal and warns instead
	require.NoError(t, env.svc.ResolveReport(ctx, testModerator, report.ID, models.ResolutionWarned))

	var stored models.Report
	require.NoError(t, env.svc.db.First(&stored, report.ID).Error)
	assert.Equal(t, models.ReportStatusResolved, stored.Status)
	assert.Equal(t, models.AppealNone, stored.AppealStatus)
	require.NotNil(t, stored.ResolutionType)
	assert.Equal(t, models.ResolutionWarned, *stored.ResolutionType)

	// non-dismissed resolutions are not appealable
	err = env.svc.AppealReport(ctx, reporterDid, report.ID, "still unhappy")
	assert.ErrorIs(t, err, ErrNotDismissed)
}

func TestAutoBlockOnReportThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thresh := openThresholds()
	thresh.AutoBlockReportCount = 2
	_, uri := reportFixture(t, env, thresh)

	_, err := env.svc.FileReport(ctx, FileReportInput{Reporter: reporterDid, TargetUri: uri, ReasonType: "spam"})
	require.NoError(t, err)

	var topic models.Topic
	require.NoError(t, env.svc.db.Where("uri = ?", uri).First(&topic).Error)
	assert.Equal(t, models.StatusApproved, topic.ModerationStatus)

	// the second independent pending report crosses the threshold
	_, err = env.svc.FileReport(ctx, FileReportInput{Reporter: reporter2, TargetUri: uri, ReasonType: "spam"})
	require.NoError(t, err)

	require.NoError(t, env.svc.db.Where("uri = ?", uri).First(&topic).Error)
	assert.Equal(t, models.StatusHeld, topic.ModerationStatus)

	entries, _, err := env.svc.ListQueue(ctx, ListQueueInput{Reason: guard.ReasonReportThreshold})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uri, entries[0].ContentUri)

	// further reports on already-held content do not enqueue again
	_, err = env.svc.FileReport(ctx, FileReportInput{Reporter: reporter3, TargetUri: uri, ReasonType: "spam"})
	require.NoError(t, err)
	entries, _, err = env.svc.ListQueue(ctx, ListQueueInput{Reason: guard.ReasonReportThreshold})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListPendingReportsPaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, uri := reportFixture(t, env, openThresholds())

	reporters := []syntax.DID{reporterDid, reporter2, reporter3}
	for _, r := range reporters {
		env.advance(time.Minute)
		_, err := env.svc.FileReport(ctx, FileReportInput{Reporter: r, TargetUri: uri, ReasonType: "spam"})
		require.NoError(t, err)
	}

	page1, cursor, err := env.svc.ListPendingReports(ctx, ListReportsInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, reporter3.String(), page1[0].ReporterDid)

	page2, cursor, err := env.svc.ListPendingReports(ctx, ListReportsInput{Limit: 2, Cursor: *cursor})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Nil(t, cursor)
	assert.Equal(t, reporterDid.String(), page2[0].ReporterDid)
}
