// Package store serves FHIR documents from NDJSON dataset files.
//
// A Registry names the files behind each resource type. Two Store modes read
// them: Streaming opens the files on every query and stops at the limit,
// Preloaded reads everything once into an immutable table. Both return the
// same documents in the same order for the same query.
//
// Files are read through an afero.Fs so tests can run on an in-memory
// filesystem. Watcher reports edits to registered files on a real directory.
package store
