package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrDataDirMissing indicates the configured data directory does not exist.
	ErrDataDirMissing = errors.New("health: data directory missing")

	// ErrNoDatasets indicates none of the registered dataset files exist.
	ErrNoDatasets = errors.New("health: no dataset files found")
)
