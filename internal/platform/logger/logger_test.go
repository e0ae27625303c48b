package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{
		"SENDGRID_API_KEY", "SG.abc",
		"owner_user_id", "u-1",
		"assignment_id", "a-1",
		"payload", map[string]interface{}{"drive_token": "x", "title": "Lab 2"},
		"dangling",
	})
	if got[1] != "[REDACTED]" {
		t.Fatalf("api key not redacted: %v", got[1])
	}
	if s, _ := got[3].(string); !strings.HasPrefix(s, "hash:") {
		t.Fatalf("user id not hashed: %v", got[3])
	}
	if got[5] != "a-1" {
		t.Fatalf("assignment id changed: %v", got[5])
	}
	m := got[7].(map[string]interface{})
	if m["drive_token"] != "[REDACTED]" || m["title"] != "Lab 2" {
		t.Fatalf("nested map: %v", m)
	}
	if got[len(got)-1] != "dangling" {
		t.Fatalf("odd trailing key dropped: %v", got)
	}
}

func TestHashValueStable(t *testing.T) {
	if hashValue("student@example.com") != hashValue("student@example.com") {
		t.Fatalf("hash must be deterministic")
	}
	if hashValue("") != "" {
		t.Fatalf("empty input hashes to empty")
	}
}
