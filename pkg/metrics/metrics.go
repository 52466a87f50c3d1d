// Package metrics documents the Prometheus metrics exposed by the
// scraper. The metrics themselves are defined next to the code they
// observe (pkg/osuapi, pkg/collector) and registered via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the Prometheus registerer used by all scraper metrics.
var Registry = prometheus.DefaultRegisterer

// Metrics Reference
//
// API Client (pkg/osuapi):
//   - osu_api_requests_total{endpoint, status} (Counter): requests by
//     logical endpoint (oauth, ranking, user_best) and HTTP status.
//     Transport failures count under status="transport_error".
//   - osu_api_request_duration_seconds{endpoint} (Histogram): request
//     duration by endpoint.
//   - osu_api_errors_total{kind} (Counter): errors by taxonomy kind
//     (transport, protocol, api, decode, bad_request,
//     service_unavailable, rate_limited, missing_credential).
//
// Collector (pkg/collector):
//   - osu_collector_rows_total (Counter): output rows emitted.
//   - osu_collector_user_failures_total (Counter): per-user fetches that
//     failed and contributed zero rows.
//
// The CLI exposes these on /metrics when OSU_METRICS_ADDR is set.
