// Package search turns typed requests into FHIR bundles over a store.
//
// Every operation is memoized through the caches of a cache.Registry and
// wrapped by observe.Middleware, so repeated requests are answered without
// reading datasets and each call is traced and counted.
package search
