// Package license holds the verification record model, the time-salted
// fingerprint generator and the two process-lifetime stores: one keeping the
// latest verification record per requester, the other the requester-to-wallet
// bindings. Neither store survives a restart.
package license
