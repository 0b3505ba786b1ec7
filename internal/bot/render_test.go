package bot

import (
	"strings"
	"testing"

	"LicenseOracle-TON/internal/agents"
	"LicenseOracle-TON/internal/license"
	"LicenseOracle-TON/internal/oracle"
	"LicenseOracle-TON/internal/verify"
)

func sampleRecord(reference string) license.Record {
	return license.Record{
		RequesterID:     "alice",
		WalletAddress:   "EQDvE6RYrv2gKTi7dfytJ0_vNfCVh_c5pa8Dl3v4qCzPGAAc",
		DocumentNumber:  "A1234567",
		Fingerprint:     strings.Repeat("ab", 32),
		Verdict:         oracle.VerdictValid,
		LedgerReference: reference,
		CreatedAt:       "2025-06-01T12:00:00Z",
	}
}

func TestVerdictIcons(t *testing.T) {
	cases := map[oracle.Verdict]string{
		oracle.VerdictValid:   "✅",
		oracle.VerdictExpired: "⏰",
		oracle.VerdictInvalid: "❌",
	}
	for verdict, want := range cases {
		if got := verdictIcon(verdict); got != want {
			t.Errorf("verdictIcon(%s) = %q, want %q", verdict, got, want)
		}
	}
}

func TestShortHexTruncation(t *testing.T) {
	if got := shortHex("abcdef", 4); got != "abcd..." {
		t.Fatalf("shortHex = %q", got)
	}
	if got := shortHex("ab", 4); got != "ab" {
		t.Fatalf("short input should pass through, got %q", got)
	}
}

func TestVerificationMessageRecorded(t *testing.T) {
	outcome := &verify.Outcome{
		Record:        sampleRecord("deadbeef"),
		Confidence:    88.4,
		DocumentFound: true,
	}
	msg := verificationMessage(outcome)

	for _, want := range []string{"A1234567", "✅ Valid", "88.40%", "Recorded", explorerBase + "deadbeef"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestVerificationMessageDemoMode(t *testing.T) {
	outcome := &verify.Outcome{Record: sampleRecord(""), DocumentFound: true}
	msg := verificationMessage(outcome)

	if !strings.Contains(msg, "Demo Mode") {
		t.Fatalf("unrecorded outcome should mention demo mode:\n%s", msg)
	}
	if strings.Contains(msg, explorerBase) {
		t.Fatalf("unrecorded outcome must not link an explorer:\n%s", msg)
	}
}

func TestNoNumberMessageTruncatesLongText(t *testing.T) {
	msg := noNumberMessage(strings.Repeat("x", 400))
	if !strings.Contains(msg, strings.Repeat("x", 300)+"...") {
		t.Fatal("long OCR text should be truncated at 300 characters")
	}
	if strings.Contains(msg, strings.Repeat("x", 301)) {
		t.Fatal("truncated text leaked past the limit")
	}
}

func TestLicensesListMessage(t *testing.T) {
	if got := licensesListMessage(nil); got != "📋 No licenses processed yet." {
		t.Fatalf("empty list message = %q", got)
	}

	msg := licensesListMessage([]license.Record{sampleRecord("ref")})
	if !strings.Contains(msg, "alice: A1234567 ✅") {
		t.Fatalf("listing missing entry:\n%s", msg)
	}
}

func TestExportMessage(t *testing.T) {
	if got := exportMessage("", 0); got != "📋 No license data to export." {
		t.Fatalf("empty export message = %q", got)
	}

	msg := exportMessage("REQUESTER ...\n", 3)
	if !strings.Contains(msg, "Total Records: 3") || !strings.Contains(msg, "```") {
		t.Fatalf("export message malformed:\n%s", msg)
	}
}

func TestAgentListMessage(t *testing.T) {
	msg := agentListMessage([]agents.Agent{
		{ID: 1, Name: "Project Manager", Description: "Coordinates tasks"},
		{ID: 2, Name: "Research Assistant", Description: "Digs deep"},
	}, "Project Manager")

	for _, want := range []string{"Available Agents (2)", "Project Manager (ID: 1)", "Digs deep", "Current: Project Manager"} {
		if !strings.Contains(msg, want) {
			t.Errorf("agent list missing %q:\n%s", want, msg)
		}
	}
}

func TestWalletInfoMessage(t *testing.T) {
	active := walletInfoMessage("1.5", true, 2)
	if !strings.Contains(active, "🟢 Blockchain Recording Active") || !strings.Contains(active, "Balance: 1.5") {
		t.Fatalf("active wallet info malformed:\n%s", active)
	}

	idle := walletInfoMessage("0", false, 0)
	if !strings.Contains(idle, "🔵 Blockchain Recording Ready") {
		t.Fatalf("idle wallet info malformed:\n%s", idle)
	}
}
