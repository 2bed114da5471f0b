// Package server exposes the audit service over HTTP.
//
// Routes:
//   - POST /api/analyze  audits {"url": ...} and returns the analysis
//   - GET  /healthz      liveness check
//   - GET  /metrics      Prometheus exposition
//
// Every analyze request passes URL validation (scheme, host, private
// address rejection, length cap) and a per-client token bucket before a
// browser is touched. Identical concurrent requests share one audit, and a
// short-lived result cache can be enabled to absorb repeated submissions.
package server
