package oracle

import "testing"

func TestVerifyNoDigitsIsInvalid(t *testing.T) {
	o := New()
	for _, doc := range []string{"", "ABCDEF", "----", "license"} {
		if got := o.Verify(doc); got != VerdictInvalid {
			t.Fatalf("Verify(%q) = %s, want Invalid", doc, got)
		}
	}
}

func TestVerifyDigitSumModulo(t *testing.T) {
	o := New()

	cases := []struct {
		doc  string
		want Verdict
	}{
		{"A55", VerdictValid},         // sum 10 -> 0
		{"B560", VerdictValid},        // sum 11 -> 1
		{"A1234567", VerdictInvalid},  // sum 28 -> 3
		{"B99", VerdictInvalid},       // sum 18 -> 3
		{"E2222222222", VerdictValid}, // sum 20 -> 0
		{"F4", VerdictValid},          // sum 4 -> 4
		{"G7", VerdictExpired},        // sum 7 -> 2
		{"C499", VerdictExpired},      // sum 22 -> 2
		{"C599", VerdictInvalid},      // sum 23 -> 3
	}
	for _, tc := range cases {
		if got := o.Verify(tc.doc); got != tc.want {
			t.Fatalf("Verify(%q) = %s, want %s", tc.doc, got, tc.want)
		}
	}
}

func TestVerifyDeterministic(t *testing.T) {
	o := New()
	first := o.Verify("MORGA7S3ifesMol")
	for i := 0; i < 100; i++ {
		if got := o.Verify("MORGA7S3ifesMol"); got != first {
			t.Fatalf("verdict changed between calls: %s then %s", first, got)
		}
	}
}

func TestVerdictCode(t *testing.T) {
	codes := map[Verdict]uint8{
		VerdictValid:      1,
		VerdictExpired:    2,
		VerdictInvalid:    3,
		VerdictProcessing: 0,
	}
	for verdict, want := range codes {
		if got := verdict.Code(); got != want {
			t.Fatalf("%s.Code() = %d, want %d", verdict, got, want)
		}
	}
}
