// prometheus.go - Prometheus text exposition for the probe counters.
package server

import (
	"fmt"
	"net/http"
	"strings"
)

// metricsHandler serves GET /metrics in the Prometheus text format.
func metricsHandler(m *Metrics, build BuildInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := m.Snapshot()

		var out strings.Builder
		writeMetric(&out, "probe_info", "gauge", "Build information",
			fmt.Sprintf("probe_info{version=\"%s\",commit=\"%s\"} 1",
				prometheusLabel(build.Version), prometheusLabel(build.Commit)))

		writeMetric(&out, "probe_requests_total", "counter", "Total number of HTTP requests",
			fmt.Sprintf("probe_requests_total %d", s.RequestsTotal))
		writeMetric(&out, "probe_request_errors_total", "counter", "HTTP responses with an error status",
			fmt.Sprintf("probe_request_errors_total{class=\"4xx\"} %d\nprobe_request_errors_total{class=\"5xx\"} %d",
				s.RequestErrors4xx, s.RequestErrors5xx))

		writeMetric(&out, "probe_db_tests_total", "counter", "Database connectivity checks performed",
			fmt.Sprintf("probe_db_tests_total %d", s.DBTestsTotal))
		writeMetric(&out, "probe_db_test_failures_total", "counter", "Database connectivity checks that failed",
			fmt.Sprintf("probe_db_test_failures_total %d", s.DBTestFailuresTotal))

		writeMetric(&out, "probe_uploads_total", "counter", "Objects written to storage",
			fmt.Sprintf("probe_uploads_total %d", s.UploadsTotal))
		writeMetric(&out, "probe_upload_bytes_total", "counter", "Bytes written to storage",
			fmt.Sprintf("probe_upload_bytes_total %d", s.UploadBytesTotal))
		writeMetric(&out, "probe_upload_errors_total", "counter", "Uploads that failed",
			fmt.Sprintf("probe_upload_errors_total %d", s.UploadErrorsTotal))

		writeMetric(&out, "probe_uptime_seconds", "counter", "Process uptime in seconds",
			fmt.Sprintf("probe_uptime_seconds %.0f", s.UptimeSeconds))

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(out.String()))
	}
}

func writeMetric(b *strings.Builder, name, kind, help, samples string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n%s\n\n", name, help, name, kind, samples)
}

// prometheusLabel escapes quotes and backslashes in a label value.
func prometheusLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}
