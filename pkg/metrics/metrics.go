package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wikifun", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wikifun", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	DocumentReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wikifun", Name: "document_reads_total", Help: "Document loads by bucket and result (ok, not_found, malformed, error)."},
		[]string{"bucket", "result"},
	)
	DocumentWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wikifun", Name: "document_writes_total", Help: "Document saves by bucket and result (ok, conflict, error)."},
		[]string{"bucket", "result"},
	)

	Votes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wikifun", Name: "votes_total", Help: "Recorded votes by direction and resulting transition."},
		[]string{"direction", "transition"},
	)
	Comments = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "wikifun", Name: "comments_total", Help: "Comments appended to pages."},
	)
	AvatarUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wikifun", Name: "avatar_uploads_total", Help: "Avatar uploads by result (ok, conflict, error)."},
		[]string{"result"},
	)

	QueryScanPages = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wikifun",
			Name:      "query_scan_pages",
			Help:      "Pages fetched per full-bucket query scan.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"query"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DocumentReads)
	reg.MustRegister(DocumentWrites)
	reg.MustRegister(Votes)
	reg.MustRegister(Comments)
	reg.MustRegister(AvatarUploads)
	reg.MustRegister(QueryScanPages)
}
