package server

import (
	"sync"
	"time"
)

// Metrics holds application counters. One instance is owned by the Server.
type Metrics struct {
	mu sync.RWMutex

	startedAt time.Time

	// Database connectivity checks
	dbTestsTotal        int64
	dbTestFailuresTotal int64
	dbTestDurationTotal time.Duration

	// Uploads
	uploadsTotal        int64
	uploadBytesTotal    int64
	uploadErrorsTotal   int64
	uploadDurationTotal time.Duration

	// HTTP
	requestsTotal    int64
	requestErrors4xx int64
	requestErrors5xx int64
}

// NewMetrics returns zeroed counters with uptime starting now.
func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

// RecordDBTest records the outcome of one connectivity check.
func (m *Metrics) RecordDBTest(ok bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dbTestsTotal++
	m.dbTestDurationTotal += duration
	if !ok {
		m.dbTestFailuresTotal++
	}
}

// RecordUpload records a successful upload
func (m *Metrics) RecordUpload(bytes int64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
	m.uploadDurationTotal += duration
}

// RecordUploadError records an upload error
func (m *Metrics) RecordUploadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErrorsTotal++
}

// RecordRequest records an HTTP request
func (m *Metrics) RecordRequest(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++

	if statusCode >= 500 {
		m.requestErrors5xx++
	} else if statusCode >= 400 {
		m.requestErrors4xx++
	}
}

// Snapshot returns a snapshot of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		DBTestsTotal:        m.dbTestsTotal,
		DBTestFailuresTotal: m.dbTestFailuresTotal,
		DBTestAvgDurationMs: avgDuration(m.dbTestDurationTotal, m.dbTestsTotal),
		UploadsTotal:        m.uploadsTotal,
		UploadBytesTotal:    m.uploadBytesTotal,
		UploadErrorsTotal:   m.uploadErrorsTotal,
		UploadAvgDurationMs: avgDuration(m.uploadDurationTotal, m.uploadsTotal),
		RequestsTotal:       m.requestsTotal,
		RequestErrors4xx:    m.requestErrors4xx,
		RequestErrors5xx:    m.requestErrors5xx,
		UptimeSeconds:       time.Since(m.startedAt).Seconds(),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	DBTestsTotal        int64   `json:"db_tests_total"`
	DBTestFailuresTotal int64   `json:"db_test_failures_total"`
	DBTestAvgDurationMs float64 `json:"db_test_avg_duration_ms"`

	UploadsTotal        int64   `json:"uploads_total"`
	UploadBytesTotal    int64   `json:"upload_bytes_total"`
	UploadErrorsTotal   int64   `json:"upload_errors_total"`
	UploadAvgDurationMs float64 `json:"upload_avg_duration_ms"`

	RequestsTotal    int64 `json:"requests_total"`
	RequestErrors4xx int64 `json:"request_errors_4xx"`
	RequestErrors5xx int64 `json:"request_errors_5xx"`

	UptimeSeconds float64 `json:"uptime_seconds"`
}

func avgDuration(total time.Duration, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(total.Milliseconds()) / float64(count)
}
