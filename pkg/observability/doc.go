/*
Package observability turns undo stack lifecycle events into Prometheus metrics and
structured log lines.
*/
package observability
