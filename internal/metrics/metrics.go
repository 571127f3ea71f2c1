// Package metrics defines the Prometheus collectors for blob store and orphan
// activity. Collectors are registered with the default registry on import and
// exposed by the server at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// BlobUploadsTotal counts object uploads.
// Label:
//   - result: "success" or "error"
var BlobUploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blob_uploads_total",
		Help:      "Total number of image uploads to the blob store.",
	},
	[]string{"result"},
)

// BlobDeletesTotal counts delete-by-URL calls.
// Label:
//   - result: "success", "error", or "skipped" (foreign or malformed URL)
var BlobDeletesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blob_deletes_total",
		Help:      "Total number of image deletions against the blob store.",
	},
	[]string{"result"},
)

// BlobUploadDuration measures a single put-object call.
var BlobUploadDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "blob_upload_duration_seconds",
		Help:      "Duration of a single image upload to the blob store.",
		Buckets:   prometheus.DefBuckets,
	},
)

// OrphansReportedTotal counts objects known to be unreferenced by any product.
// Label:
//   - reason: why the object was orphaned (e.g. "delete_failed", "batch_aborted")
var OrphansReportedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphans_reported_total",
		Help:      "Total number of orphaned blob store objects reported for cleanup.",
	},
	[]string{"reason"},
)

// OrphansSweptTotal counts orphan events handled by the sweeper.
// Label:
//   - result: "success" or "error"
var OrphansSweptTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphans_swept_total",
		Help:      "Total number of orphan events processed by the sweeper.",
	},
	[]string{"result"},
)
