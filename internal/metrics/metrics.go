// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pixelnest_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pixelnest_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pixelnest_posts_created_total",
		Help: "Posts created.",
	})

	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pixelnest_like_toggles_total",
		Help: "Like toggles by resulting state (liked, unliked).",
	}, []string{"result"})

	BlobOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pixelnest_blob_operations_total",
		Help: "Blob store calls by operation and outcome.",
	}, []string{"op", "outcome"})

	MailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pixelnest_mails_total",
		Help: "Outgoing mails by kind and outcome.",
	}, []string{"kind", "outcome"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pixelnest_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by route.",
	}, []string{"route"})
)

// Outcome maps an error to the "outcome" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
