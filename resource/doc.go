// Package resource holds FHIR documents as raw JSON and the predicates used
// to filter them.
package resource
