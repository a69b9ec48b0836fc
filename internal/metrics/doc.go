// Package metrics provides observability hooks for the streak engine.
//
// # Design Philosophy
//
// This package implements the Null Object pattern to enable metrics collection
// without requiring explicit nil checks throughout the codebase. By default,
// components use NoopRecorder which implements the Recorder interface with
// no-op methods.
//
// # Usage Pattern
//
// Components receive a Recorder through dependency injection:
//
//	engine := rollover.NewEngine(registry, policy, rollover.WithRecorder(recorder))
//
// # Activation
//
// The daemon swaps NoopRecorder for a PrometheusRecorder when an admin
// address is configured and serves the registry through HTTPHandler.
package metrics
