// Package internaldefs holds the metric names shared by the Prometheus and
// OpenTelemetry exporters, so both publish identical names and buckets.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
