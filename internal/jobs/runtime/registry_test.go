package runtime

import (
	"errors"
	"strings"
	"testing"
)

type stubHandler string

func (h stubHandler) Type() string       { return string(h) }
func (h stubHandler) Run(*Context) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubHandler("b")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(stubHandler("a")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(stubHandler("a")); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
	if err := r.Register(stubHandler("")); err == nil {
		t.Fatalf("empty type should fail")
	}
	if _, ok := r.Get("a"); !ok {
		t.Fatalf("expected handler a")
	}
	if got := r.Types(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Types() = %v", got)
	}
	if err := r.Require("a", "b"); err != nil {
		t.Fatalf("Require: %v", err)
	}
	if err := r.Require("a", "c", "d"); err == nil || !strings.Contains(err.Error(), "c,d") {
		t.Fatalf("Require should name missing types, got %v", err)
	}
}

func TestPermanent(t *testing.T) {
	base := errors.New("boom")
	err := Permanent(base)
	if !IsPermanent(err) || !errors.Is(err, base) {
		t.Fatalf("expected permanent wrapper around base")
	}
	if IsPermanent(base) || Permanent(nil) != nil {
		t.Fatalf("plain errors are not permanent")
	}
}
