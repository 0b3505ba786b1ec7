// Package oracle decides whether a document number is Valid, Invalid or
// Expired. It is a deterministic stand-in for a real adjudication authority
// so that the rest of the pipeline is reproducible and testable.
package oracle
