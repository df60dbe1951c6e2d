// Package metrics defines the Prometheus metrics of the service and a small server
// exposing them on a separate address.
package metrics
