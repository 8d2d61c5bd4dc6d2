// Package prometheus renders engine metrics in the Prometheus text
// exposition format.
//
// [NewExporter] reads [goIdentity.Engine.MetricsSnapshot] on every scrape.
// Counters are named goidentity_*_total and the session authentication
// histogram is goidentity_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in a global registry. Callers mount [Exporter.Handler].
//   - Mutate engine state.
package prometheus
