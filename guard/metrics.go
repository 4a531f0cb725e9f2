package guard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var contentHeldCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_content_held",
	Help: "Number of content holds, by queue reason",
}, []string{"reason"})

var rateLimitedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_write_rate_limited",
	Help: "Number of writes rejected by the per-identity rate limit",
}, []string{"trust_level"})
