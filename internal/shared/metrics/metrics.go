package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	loginSucceededTotal  atomic.Uint64
	loginFailedTotal     atomic.Uint64
	tokenRefreshedTotal  atomic.Uint64
	refreshRejectedTotal atomic.Uint64

	documentsUploadedTotal atomic.Uint64
	documentsRenamedTotal  atomic.Uint64
	documentsDeletedTotal  atomic.Uint64

	ingestionRelayedTotal atomic.Uint64
	ingestionFailedTotal  atomic.Uint64

	ingestionDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
)

func IncLoginSucceeded() { loginSucceededTotal.Add(1) }
func IncLoginFailed() { loginFailedTotal.Add(1) }
func IncTokenRefreshed() { tokenRefreshedTotal.Add(1) }
func IncRefreshRejected() { refreshRejectedTotal.Add(1) }
func IncDocumentUploaded() { documentsUploadedTotal.Add(1) }
func IncDocumentRenamed() { documentsRenamedTotal.Add(1) }
func IncDocumentDeleted() { documentsDeletedTotal.Add(1) }
func IncIngestionRelayed() { ingestionRelayedTotal.Add(1) }
func IncIngestionFailed() { ingestionFailedTotal.Add(1) }

// ObserveIngestionDurationMs records an upstream relay duration in milliseconds.
func ObserveIngestionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	ingestionDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "auth_login_succeeded_total", "Successful logins", loginSucceededTotal.Load())
	writeCounter(&buf, "auth_login_failed_total", "Rejected logins", loginFailedTotal.Load())
	writeCounter(&buf, "auth_token_refreshed_total", "Access tokens issued from a refresh token", tokenRefreshedTotal.Load())
	writeCounter(&buf, "auth_refresh_rejected_total", "Rejected refresh attempts", refreshRejectedTotal.Load())
	writeCounter(&buf, "documents_uploaded_total", "Documents uploaded", documentsUploadedTotal.Load())
	writeCounter(&buf, "documents_renamed_total", "Documents renamed", documentsRenamedTotal.Load())
	writeCounter(&buf, "documents_deleted_total", "Documents deleted", documentsDeletedTotal.Load())
	writeCounter(&buf, "ingestion_relayed_total", "Ingestion requests accepted upstream", ingestionRelayedTotal.Load())
	writeCounter(&buf, "ingestion_failed_total", "Ingestion requests that failed upstream", ingestionFailedTotal.Load())
	writeHistogram(&buf, "ingestion_duration_ms", "Ingestion relay duration in milliseconds", ingestionDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket that holds it; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
