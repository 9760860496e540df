// Package observe provides observability primitives for the resource core.
//
// It wires OpenTelemetry tracing and metrics plus a zap-backed structured
// logger. Stores, memoizers and the search service accept a *Middleware or a
// Logger; nothing in this package performs I/O beyond exporter setup.
package observe
