package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

func TestScheme(t *testing.T) {
	cases := map[string]string{
		"drive:abc":            "drive",
		"gs://b/k":             "gs",
		"https://x.test/a.pdf": "https",
		"HTTP://x.test":        "http",
		"no-scheme":            "",
	}
	for ref, want := range cases {
		if got := Scheme(ref); got != want {
			t.Fatalf("Scheme(%q) = %q, want %q", ref, got, want)
		}
	}
}

func TestRouterDispatch(t *testing.T) {
	log, _ := logger.New("test")
	var got string
	r := NewRouter(log).Register("drive", FileSourceFunc(func(ctx context.Context, ref string) (*Blob, error) {
		got = ref
		return &Blob{Data: []byte("x"), Name: "x.txt"}, nil
	}))

	if _, err := r.Fetch(context.Background(), "drive:123"); err != nil || got != "drive:123" {
		t.Fatalf("Fetch = %v, ref=%q", err, got)
	}
	if _, err := r.Fetch(context.Background(), "ftp://old"); !errors.Is(err, ErrUnsupportedRef) {
		t.Fatalf("want ErrUnsupportedRef, got %v", err)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/notes":
			w.Header().Set("Content-Type", "text/plain")
			w.Header().Set("Content-Disposition", `attachment; filename="week1.txt"`)
			_, _ = w.Write([]byte("hello"))
		case "/big.txt":
			_, _ = w.Write(make([]byte, 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := NewHTTP(HTTPConfig{MaxBytes: 32})
	blob, err := s.Fetch(context.Background(), srv.URL+"/files/notes")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if blob.Name != "week1.txt" || string(blob.Data) != "hello" || blob.MimeType != "text/plain" {
		t.Fatalf("blob = %+v", blob)
	}

	if _, err := s.Fetch(context.Background(), srv.URL+"/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.Fetch(context.Background(), srv.URL+"/big.txt"); err == nil {
		t.Fatalf("oversized download accepted")
	}
}
