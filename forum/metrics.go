package forum

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var contentCreatedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "forum_content_created",
	Help: "Number of content items created, by type and moderation status",
}, []string{"type", "status"})

var reportFiledCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "forum_reports_filed",
	Help: "Number of reports filed, by reason type",
}, []string{"reason"})

var reportResolvedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "forum_reports_resolved",
	Help: "Number of reports resolved, by resolution type",
}, []string{"resolution"})

var autoBlockCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "forum_report_auto_blocks",
	Help: "Number of content items auto-held after hitting the report threshold",
})

var postCommitTaskCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "forum_post_commit_tasks",
	Help: "Number of post-commit tasks executed, by task and outcome",
}, []string{"task", "outcome"})
