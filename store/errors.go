package store

import "errors"

// Sentinel errors for store operations.
var (
	// ErrResourceTypeNotFound is returned for types absent from the registry.
	ErrResourceTypeNotFound = errors.New("store: resource type not found")

	// ErrResourceNotFound is returned by FindByID when no document matches.
	ErrResourceNotFound = errors.New("store: resource not found")

	ErrDuplicateType   = errors.New("store: resource type already registered")
	ErrNoDatasets      = errors.New("store: resource type has no datasets")
	ErrInvalidRegistry = errors.New("store: invalid registry file")
	ErrNilRegistry     = errors.New("store: registry is nil")
	ErrNilFs           = errors.New("store: filesystem is nil")

	// ErrRegistryFrozen is returned by Register once a store uses the registry.
	ErrRegistryFrozen = errors.New("store: registry is in use by a store")
)
