// Package config loads the daemon configuration from environment variables,
// with an optional JSON file for tunables such as polling intervals and the
// status API address. Required variables missing at startup are reported as a
// fatal condition; optional ledger credentials merely switch the recorder
// into demo mode.
package config
