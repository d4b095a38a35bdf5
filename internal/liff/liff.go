// Package liff wraps the LINE front-end login and scanning capabilities the
// page runs inside.
package liff

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	ErrUnsupported = errors.New("native scanning is only available inside the LINE app")
	ErrNotLoggedIn = errors.New("not logged in")
)

// ScanResult is what the native scanner returns.
type ScanResult struct {
	Value string `json:"value"`
}

// Provider is the login/session capability of the hosting client.
type Provider interface {
	Init(ctx context.Context) error
	IsLoggedIn() bool
	Login(ctx context.Context) error
	IsInClient() bool
	ScanCode(ctx context.Context) (ScanResult, error)
}

// Gate initialises a Provider once, forces login and guards native scanning
// behind the in-client check.
type Gate struct {
	provider Provider

	once    sync.Once
	initErr error
}

func NewGate(p Provider) *Gate {
	return &Gate{provider: p}
}

// Bootstrap initialises the provider on first use and logs the user in if
// needed. Later calls only repeat the login check.
func (g *Gate) Bootstrap(ctx context.Context) error {
	g.once.Do(func() {
		g.initErr = g.provider.Init(ctx)
	})
	if g.initErr != nil {
		return g.initErr
	}
	if g.provider.IsLoggedIn() {
		return nil
	}
	log.Info("liff: not logged in, requesting login")
	return g.provider.Login(ctx)
}

// ScanCode reads one code with the native scanner.
func (g *Gate) ScanCode(ctx context.Context) (string, error) {
	if err := g.Bootstrap(ctx); err != nil {
		return "", err
	}
	if !g.provider.IsLoggedIn() {
		return "", ErrNotLoggedIn
	}
	if !g.provider.IsInClient() {
		return "", ErrUnsupported
	}
	res, err := g.provider.ScanCode(ctx)
	if err != nil {
		return "", err
	}
	return res.Value, nil
}
