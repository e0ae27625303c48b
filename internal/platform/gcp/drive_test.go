package gcp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

func newTestDrive(t *testing.T, h http.HandlerFunc) *Drive {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	log, _ := logger.New("test")
	d, err := NewDrive(context.Background(), log, DriveConfig{AccessToken: "tok"},
		option.WithEndpoint(srv.URL+"/drive/v3/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewDrive: %v", err)
	}
	return d
}

func TestDriveDownloadBinary(t *testing.T) {
	d := newTestDrive(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") == "media" {
			_, _ = w.Write([]byte("%PDF-1.4"))
			return
		}
		_, _ = w.Write([]byte(`{"id":"f1","name":"notes.pdf","mimeType":"application/pdf","size":"8"}`))
	})
	f, err := d.Download(context.Background(), "f1")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if f.Name != "notes.pdf" || string(f.Data) != "%PDF-1.4" {
		t.Fatalf("file = %+v", f)
	}
}

func TestDriveExportsNativeDocs(t *testing.T) {
	d := newTestDrive(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/export") {
			_, _ = w.Write([]byte("PK"))
			return
		}
		_, _ = w.Write([]byte(`{"id":"f2","name":"Lecture","mimeType":"application/vnd.google-apps.presentation"}`))
	})
	f, err := d.Download(context.Background(), "f2")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if f.Name != "Lecture.pptx" || !strings.Contains(f.MimeType, "presentationml") {
		t.Fatalf("file = %+v", f)
	}
}

func TestDriveNotFound(t *testing.T) {
	d := newTestDrive(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
	})
	if _, err := d.Download(context.Background(), "missing"); !errors.Is(err, ErrDriveFileNotFound) {
		t.Fatalf("want ErrDriveFileNotFound, got %v", err)
	}
}

func TestParseGSURI(t *testing.T) {
	b, k, ok := ParseGSURI("gs://course-bucket/week1/notes.pdf")
	if !ok || b != "course-bucket" || k != "week1/notes.pdf" {
		t.Fatalf("ParseGSURI = %q %q %v", b, k, ok)
	}
	if _, _, ok := ParseGSURI("https://example.com/x"); ok {
		t.Fatalf("non-gs uri accepted")
	}
}

func TestBucketConfigValidate(t *testing.T) {
	if err := (BucketConfig{}).Validate(); err == nil {
		t.Fatalf("missing name accepted")
	}
	if err := (BucketConfig{Name: "b", EmulatorHost: "fake-gcs"}).Validate(); err == nil {
		t.Fatalf("relative emulator host accepted")
	}
	if err := (BucketConfig{Name: "b", EmulatorHost: "http://fake-gcs:4443"}).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
