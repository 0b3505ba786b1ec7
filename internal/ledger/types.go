package ledger

import (
	"context"
	"time"
)

// OpLicenseVerification is the operation code embedded in every payload so
// receiving-side contract logic can differentiate this message type.
const OpLicenseVerification uint32 = 0

// TransferAmount is the fixed value attached to each recording transfer,
// sized to cover network fees.
const TransferAmount = "0.01"

// DefaultReceiver is the fixed receiving account for verification records.
const DefaultReceiver = "0QDvE6RYrv2gKTi7dfytJ0_vNfCVh_c5pa8Dl3v4qCzPGAAc"

// Payload is the application-level body of a verification record message.
type Payload struct {
	Op          uint32
	Digest      [32]byte
	VerdictCode uint8
	UnixMilli   uint64
	RequesterID string
}

// Transfer wraps a payload in a value-bearing message to a receiving account.
type Transfer struct {
	To      string
	Amount  string
	Payload Payload
}

// Transaction summarizes one recent account transaction. Internal reports
// whether the incoming message was of internal type; entries are ordered
// newest first.
type Transaction struct {
	Hash     string
	Internal bool
	At       time.Time
}

// Client defines the common interface that any chain implementation must
// provide so the recorder can interact with different networks uniformly.
// Sequence numbers are monotonically non-decreasing per account.
type Client interface {
	Sequence(ctx context.Context) (uint64, error)
	Submit(ctx context.Context, transfer Transfer) error
	RecentTransactions(ctx context.Context, limit int) ([]Transaction, error)
	Balance(ctx context.Context) (string, error)
	Deployed(ctx context.Context) (bool, error)
	Address() string
	Close()
}
