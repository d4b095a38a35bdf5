package liff

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	inits    int
	logins   int
	loggedIn bool
	inClient bool
	loginSet bool // Login marks the user as logged in
	codes    []string
}

func (f *fakeProvider) Init(context.Context) error { f.inits++; return nil }
func (f *fakeProvider) IsLoggedIn() bool           { return f.loggedIn }
func (f *fakeProvider) IsInClient() bool           { return f.inClient }

func (f *fakeProvider) Login(context.Context) error {
	f.logins++
	if f.loginSet {
		f.loggedIn = true
	}
	return nil
}

func (f *fakeProvider) ScanCode(context.Context) (ScanResult, error) {
	code := f.codes[0]
	f.codes = f.codes[1:]
	return ScanResult{Value: code}, nil
}

func TestBootstrap_InitOnceAndForceLogin(t *testing.T) {
	p := &fakeProvider{loginSet: true}
	g := NewGate(p)

	for i := 0; i < 3; i++ {
		if err := g.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap: %v", err)
		}
	}
	if p.inits != 1 {
		t.Errorf("inits = %d, want 1", p.inits)
	}
	if p.logins != 1 {
		t.Errorf("logins = %d, want 1", p.logins)
	}
}

func TestScanCode_OutsideClientIsUnsupported(t *testing.T) {
	g := NewGate(&fakeProvider{loggedIn: true, codes: []string{"A"}})

	_, err := g.ScanCode(context.Background())
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestScanCode_RequiresLogin(t *testing.T) {
	p := &fakeProvider{inClient: true}
	g := NewGate(p)

	_, err := g.ScanCode(context.Background())
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
	if p.logins != 1 {
		t.Errorf("logins = %d, want 1", p.logins)
	}
}

func TestScanCode_ReturnsValue(t *testing.T) {
	g := NewGate(&fakeProvider{loggedIn: true, inClient: true, codes: []string{"12345"}})

	code, err := g.ScanCode(context.Background())
	if err != nil {
		t.Fatalf("ScanCode: %v", err)
	}
	if code != "12345" {
		t.Errorf("code = %q", code)
	}
}
