// Package config loads fhirstore settings with viper.
//
// Values come from built-in defaults, then fhirstore.yaml, then FHIRSTORE_*
// environment variables, then command-line flags. Path settings support
// strict ${VAR} expansion.
//
// Example file:
//
//	data_dir: ${HOME}/mimic-iv-demo/fhir
//	mode: preloaded
//	caches:
//	  bundle:
//	    capacity: 500
//	    ttl: 10m
//	    eviction: fifo
//	observe:
//	  logging:
//	    level: debug
package config
