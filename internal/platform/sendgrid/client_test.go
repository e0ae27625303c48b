package sendgrid

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, url string) Client {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	c, err := New(log, Config{APIKey: "sg-key", BaseURL: url, FromEmail: "noreply@example.com", MaxRetries: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSendEncodesAttachment(t *testing.T) {
	var got mailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" || r.Header.Get("Authorization") != "Bearer sg-key" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL).Send(context.Background(), Message{
		To:          []Address{{Email: "prof@example.com"}},
		Subject:     "Essay submission",
		Attachments: []Attachment{{Filename: "essay.txt", MIMEType: "text/plain", Content: []byte("hello")}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "msg-1" || res.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Content != base64.StdEncoding.EncodeToString([]byte("hello")) {
		t.Fatalf("attachment not encoded: %+v", got.Attachments)
	}
	if got.From.Email != "noreply@example.com" || got.Content[0].Value != "Essay submission" {
		t.Fatalf("unexpected wire message: %+v", got)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"errors":[{"message":"bad from"}]}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Send(context.Background(), Message{To: []Address{{Email: "a@b.c"}}, Subject: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	log, _ := logger.New("test")
	if _, err := New(log, Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := New(log, Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected missing sender error")
	}
}
