// Package metrics exposes Prometheus collectors for audits.
//
// Collectors live on a dedicated registry rather than the global default so
// tests and embedders can create independent instances. Every method is
// safe to call on a nil *Metrics, which lets components treat metrics as
// optional without nil checks at each call site.
package metrics
