package util

import (
	"testing"
	"time"
)

func TestParseEpochMsRFC3339(t *testing.T) {
	got, ok := ParseEpochMs("2024-10-10T10:10:10.5Z")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2024, 10, 10, 10, 10, 10, 5e8, time.UTC).UnixMilli()
	if got != want {
		t.Fatalf("unexpected ms %d, want %d", got, want)
	}
}

func TestParseEpochMsNumbers(t *testing.T) {
	if got, ok := ParseEpochMs("1728555010"); !ok || got != 1728555010000 {
		t.Fatalf("seconds: got %d ok=%v", got, ok)
	}
	if got, ok := ParseEpochMs("1728555010123"); !ok || got != 1728555010123 {
		t.Fatalf("millis: got %d ok=%v", got, ok)
	}
	if _, ok := ParseEpochMs("-5"); ok {
		t.Fatalf("negative should fail")
	}
	if _, ok := ParseEpochMs(""); ok {
		t.Fatalf("empty should fail")
	}
}

func TestMsRoundTrip(t *testing.T) {
	ms := int64(1728555010123)
	tm := MsToTime(ms)
	if tm.Location() != time.UTC {
		t.Fatalf("expected UTC")
	}
	if TimeToMs(tm) != ms {
		t.Fatalf("round trip lost precision: %d", TimeToMs(tm))
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected %v", got)
	}
	if ParseIntDefault("x", 7) != 7 || ParseIntDefault("8", 7) != 8 {
		t.Fatalf("ParseIntDefault")
	}
}
