// Package bundle builds FHIR searchset bundles and the capability statement.
package bundle
