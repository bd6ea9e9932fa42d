package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"SessionID", KeySessionID, "s1", SessionID("s1")},
		{"RequestID", KeyRequestID, "rid", RequestID("rid")},
		{"Section", KeySection, "Intro", Section("Intro")},
		{"Outcome", KeyOutcome, "applied", Outcome("applied")},
		{"MessageType", KeyMessage, "status", MessageType("status")},
		{"Transport", KeyTransport, "nats", Transport("nats")},
		{"Path", KeyPath, "/api/tree", Path("/api/tree")},
		{"Method", KeyMethod, "GET", Method("GET")},
		{"UserAgent", KeyUserAgent, "ua", UserAgent("ua")},
		{"RemoteAddr", KeyRemoteAddr, "1.2.3.4", RemoteAddr("1.2.3.4")},
	}
	for _, c := range cases {
		if c.attr.Key != c.attrKey {
			t.Fatalf("%s key mismatch: got %s want %s", c.name, c.attr.Key, c.attrKey)
		}
		if c.attr.Value.String() != c.attrVal {
			t.Fatalf("%s value mismatch: got %s want %s", c.name, c.attr.Value.String(), c.attrVal)
		}
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	if got := Revision(7).Value.Uint64(); got != 7 {
		t.Fatalf("revision: got %d", got)
	}
	if got := Status(409).Value.Int64(); got != 409 {
		t.Fatalf("status: got %d", got)
	}
	if got := Error(nil).Value.String(); got != "" {
		t.Fatalf("nil error: got %q", got)
	}
	if got := Error(errors.New("boom")).Value.String(); got != "boom" {
		t.Fatalf("error: got %q", got)
	}
}
