package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"LicenseOracle-TON/internal/license"
	"LicenseOracle-TON/internal/oracle"
)

type fakeClient struct {
	mu            sync.Mutex
	sequence      uint64
	advanceAfter  int // sequence advances once this many Sequence calls happened
	failFrom      int // inclusive range of Sequence call numbers that error
	failTo        int
	sequenceCalls int
	submitted     []Transfer
	submitErr     error
	transactions  []Transaction
	txErr         error
}

func (f *fakeClient) Sequence(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sequenceCalls++
	n := f.sequenceCalls
	if f.failFrom > 0 && n >= f.failFrom && n <= f.failTo {
		return 0, errors.New("rpc flake")
	}
	if f.advanceAfter > 0 && n > f.advanceAfter {
		return f.sequence + 1, nil
	}
	return f.sequence, nil
}

func (f *fakeClient) Submit(_ context.Context, transfer Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, transfer)
	return nil
}

func (f *fakeClient) RecentTransactions(context.Context, int) ([]Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transactions, f.txErr
}

func (f *fakeClient) Balance(context.Context) (string, error) { return "0", nil }
func (f *fakeClient) Deployed(context.Context) (bool, error)  { return true, nil }
func (f *fakeClient) Address() string                         { return "test" }
func (f *fakeClient) Close()                                  {}

func testRecord() license.Record {
	return license.Record{
		RequesterID:    "alice",
		WalletAddress:  "EQ" + strings.Repeat("a", 46),
		DocumentNumber: "A1234567",
		Fingerprint:    strings.Repeat("ab", 32),
		Verdict:        oracle.VerdictValid,
	}
}

func TestRecordDemoModeWithoutClient(t *testing.T) {
	r := NewRecorder(nil)
	if ref := r.Record(context.Background(), testRecord()); ref != "" {
		t.Fatalf("demo mode returned %q, want empty", ref)
	}
}

func TestRecordConfirmsAfterSequenceAdvance(t *testing.T) {
	client := &fakeClient{
		sequence:     7,
		advanceAfter: 3,
		transactions: []Transaction{
			{Hash: "external", Internal: false},
			{Hash: "wanted", Internal: true},
		},
	}
	r := NewRecorder(client, WithConfirmWindow(500*time.Millisecond, time.Millisecond))

	ref := r.Record(context.Background(), testRecord())
	if ref != "wanted" {
		t.Fatalf("reference = %q, want wanted (internal preferred)", ref)
	}
	if len(client.submitted) != 1 {
		t.Fatalf("submitted %d transfers, want 1", len(client.submitted))
	}

	transfer := client.submitted[0]
	if transfer.To != DefaultReceiver {
		t.Fatalf("receiver = %s", transfer.To)
	}
	if transfer.Amount != TransferAmount {
		t.Fatalf("amount = %s", transfer.Amount)
	}
	if transfer.Payload.Op != OpLicenseVerification {
		t.Fatalf("op = %d", transfer.Payload.Op)
	}
	if transfer.Payload.VerdictCode != 1 {
		t.Fatalf("verdict code = %d, want 1", transfer.Payload.VerdictCode)
	}
	for _, b := range transfer.Payload.Digest {
		if b != 0xab {
			t.Fatalf("digest bytes should be raw fingerprint bytes, got %x", transfer.Payload.Digest)
		}
	}
	if transfer.Payload.RequesterID != "alice" {
		t.Fatalf("requester = %s", transfer.Payload.RequesterID)
	}
}

func TestRecordFallsBackToNewestTransaction(t *testing.T) {
	client := &fakeClient{
		advanceAfter: 1,
		transactions: []Transaction{
			{Hash: "newest", Internal: false},
			{Hash: "older", Internal: false},
		},
	}
	r := NewRecorder(client, WithConfirmWindow(500*time.Millisecond, time.Millisecond))
	if ref := r.Record(context.Background(), testRecord()); ref != "newest" {
		t.Fatalf("reference = %q, want newest", ref)
	}
}

func TestRecordTimesOutWithoutAdvance(t *testing.T) {
	client := &fakeClient{sequence: 4}
	r := NewRecorder(client, WithConfirmWindow(30*time.Millisecond, time.Millisecond))

	start := time.Now()
	ref := r.Record(context.Background(), testRecord())
	if ref != "" {
		t.Fatalf("reference = %q, want empty on timeout", ref)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("returned before the window elapsed: %v", elapsed)
	}
	if client.sequenceCalls < 2 {
		t.Fatalf("expected repeated sequence polls, got %d", client.sequenceCalls)
	}
}

func TestRecordSwallowsTransientPollErrors(t *testing.T) {
	// The pre-submission sequence read succeeds, then two poll cycles fail
	// before the sequence finally advances.
	client := &fakeClient{
		advanceAfter: 1,
		failFrom:     2,
		failTo:       3,
		transactions: []Transaction{{Hash: "tx", Internal: true}},
	}
	r := NewRecorder(client, WithConfirmWindow(500*time.Millisecond, time.Millisecond))

	ref := r.Record(context.Background(), testRecord())
	if ref != "tx" {
		t.Fatalf("reference = %q, want tx", ref)
	}
	if client.sequenceCalls < 4 {
		t.Fatalf("expected the loop to retry past transient errors, got %d calls", client.sequenceCalls)
	}
}

func TestRecordSubmitFailureIsSoft(t *testing.T) {
	client := &fakeClient{submitErr: errors.New("wallet offline")}
	r := NewRecorder(client, WithConfirmWindow(30*time.Millisecond, time.Millisecond))
	if ref := r.Record(context.Background(), testRecord()); ref != "" {
		t.Fatalf("reference = %q, want empty on submit failure", ref)
	}
}

func TestRecordRejectsMalformedFingerprint(t *testing.T) {
	client := &fakeClient{}
	r := NewRecorder(client)
	record := testRecord()
	record.Fingerprint = "not-hex"
	if ref := r.Record(context.Background(), record); ref != "" {
		t.Fatalf("reference = %q, want empty", ref)
	}
	if len(client.submitted) != 0 {
		t.Fatalf("nothing should be submitted for a malformed fingerprint")
	}
}
