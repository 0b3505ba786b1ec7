// Package verify wires the individual stages into the verification pipeline
// and owns all in-memory state. A photo flows strictly through recognition,
// adjudication, fingerprinting and ledger recording before the record is
// stored; a question flows through the agent broker.
package verify
