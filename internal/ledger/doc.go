// Package ledger houses distributed-ledger connectivity: the client contract
// every chain backend implements, the multi-chain configuration helpers and
// the verification recorder that writes a verdict as a value-bearing message
// to a fixed receiving account and waits, within a bounded window, for the
// sending account's sequence number to advance.
package ledger
