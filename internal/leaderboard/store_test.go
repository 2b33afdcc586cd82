package leaderboard

import "testing"

func TestMemberCodec(t *testing.T) {
	m := member("alice", 1736942400000)
	u, ts := parseMember(m)
	if u != "alice" || ts != 1736942400000 {
		t.Fatalf("round trip = %q/%d", u, ts)
	}

	// Usernames may contain colons; only the last segment is the timestamp.
	u, ts = parseMember("room:42:bob:1700000000000")
	if u != "room:42:bob" || ts != 1700000000000 {
		t.Fatalf("colon username = %q/%d", u, ts)
	}

	u, ts = parseMember("legacy")
	if u != "legacy" || ts != 0 {
		t.Fatalf("legacy member = %q/%d", u, ts)
	}
}

func TestBestCodec(t *testing.T) {
	score, ts := parseBest(encodeBest(42, 1700000000000))
	if score != 42 || ts != 1700000000000 {
		t.Fatalf("round trip = %d/%d", score, ts)
	}

	// Plain integers from older writers parse as score with no timestamp.
	score, ts = parseBest("17")
	if score != 17 || ts != 0 {
		t.Fatalf("legacy best = %d/%d", score, ts)
	}
}
