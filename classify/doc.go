// Package classify detects query intent for the retrieval pipeline.
//
// The classifier maps free-text travel queries to an optional category
// filter (via multilingual keyword containment) and a "primary attractions
// only" flag (via configurable trigger phrases). It holds no mutable state:
// the vocabulary is an immutable Config built once at startup and shared by
// reference into every component that needs it.
//
// Classification must be deterministic because its output participates in
// query-result cache keys.
package classify
