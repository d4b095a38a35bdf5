package ws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avvvet/ticket-services/internal/comm"
	"github.com/avvvet/ticket-services/internal/models"
	"github.com/avvvet/ticket-services/internal/ticketsvc/service"
)

func TestDeliverUnknownSocket(t *testing.T) {
	s := NewWs(Deps{})
	if s.Deliver(&comm.WSMessage{Type: comm.TypeState, SocketId: "missing"}) {
		t.Fatal("Deliver reported success for an unknown socket")
	}
	if err := s.Outbox.Send(&comm.WSMessage{Type: comm.TypeState, SocketId: "missing"}); err != nil {
		t.Fatalf("local outbox: %v", err)
	}
}

func TestResolveUnknownRef(t *testing.T) {
	s := NewWs(Deps{})
	p := newPage("p1", nil, s)
	defer p.close()

	// no pending call, must not block or panic
	p.resolve(&comm.WSMessage{Type: comm.TypeScanResult, Ref: "nope"})
}

func TestCallCancelledWithPage(t *testing.T) {
	s := NewWs(Deps{})
	p := newPage("p1", nil, s)
	s.pages.Store("p1", p)
	s.Outbox = discardOutbox{}

	done := make(chan error, 1)
	go func() {
		_, err := p.Confirm(p.ctx, "ok?")
		done <- err
	}()

	s.HandleDisconnect("p1")
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("call did not return after disconnect")
	}
	if _, ok := s.GetPage("p1"); ok {
		t.Fatal("page still registered")
	}
}

func TestMergeCancel(t *testing.T) {
	page, cancelPage := context.WithCancel(context.Background())
	ctx, cancel := mergeCancel(context.Background(), page)
	defer cancel()

	cancelPage()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("merged context not cancelled with the page")
	}
}

type discardOutbox struct{}

func (discardOutbox) Send(*comm.WSMessage) error { return nil }

// blockingSource holds MonthlyBalance until release is closed.
type blockingSource struct {
	called  chan struct{}
	release chan struct{}
}

func (b *blockingSource) MonthlyBalance(ctx context.Context, year, month int) (*models.DashboardSummary, error) {
	b.called <- struct{}{}
	<-b.release
	return &models.DashboardSummary{Details: []models.BalanceDetail{}}, nil
}

func TestDashboardRejectsOverlappingLoads(t *testing.T) {
	src := &blockingSource{called: make(chan struct{}, 1), release: make(chan struct{})}
	s := NewWs(Deps{Dashboard: service.NewDashboardService(src)})
	s.Outbox = discardOutbox{}
	p := newPage("p1", nil, s)
	defer p.close()

	first := make(chan error, 1)
	go func() { first <- p.loadDashboard(context.Background(), 2024, 2) }()
	<-src.called

	if err := p.loadDashboard(context.Background(), 2024, 3); !errors.Is(err, ErrDashboardBusy) {
		t.Fatalf("overlapping load err = %v, want ErrDashboardBusy", err)
	}

	close(src.release)
	if err := <-first; err != nil {
		t.Fatalf("first load: %v", err)
	}

	if err := p.loadDashboard(context.Background(), 2024, 3); err != nil {
		t.Fatalf("load after the first finished: %v", err)
	}
}
