package ws

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/ticket-services/internal/acquire"
	"github.com/avvvet/ticket-services/internal/comm"
	"github.com/avvvet/ticket-services/internal/ticketsvc/service"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Outbox carries messages to pages. The broker relays them over NATS; the
// hub itself delivers directly when running without one.
type Outbox interface {
	Send(m *comm.WSMessage) error
}

// Deps are shared by the controllers of all pages.
type Deps struct {
	Backend    acquire.Backend
	Dashboard  *service.DashboardService
	Archive    acquire.Archive
	Ledger     acquire.Ledger
	ArchiveTTL time.Duration
}

type Ws struct {
	pages  sync.Map // socketId -> *Page
	deps   Deps
	Outbox Outbox
}

func NewWs(deps Deps) *Ws {
	s := &Ws{deps: deps}
	s.Outbox = localOutbox{s}
	return s
}

// Register creates the page session of a new socket.
func (s *Ws) Register(socketId string, conn *websocket.Conn) *Page {
	p := newPage(socketId, conn, s)
	s.pages.Store(socketId, p)
	return p
}

func (s *Ws) GetPage(socketId string) (*Page, bool) {
	p, ok := s.pages.Load(socketId)
	if !ok {
		return nil, false
	}
	return p.(*Page), true
}

// HandleDisconnect cancels whatever the page had in flight and forgets it.
func (s *Ws) HandleDisconnect(socketId string) {
	if p, ok := s.pages.LoadAndDelete(socketId); ok {
		p.(*Page).close()
	}
}

// SocketMessage handles a message read from a page.
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	p, ok := s.GetPage(socketId)
	if !ok {
		log.Warnf("message for unknown socket %s", socketId)
		return
	}
	p.handle(message)
}

// Deliver writes m to its socket if the page is connected here.
func (s *Ws) Deliver(m *comm.WSMessage) bool {
	p, ok := s.GetPage(m.SocketId)
	if !ok {
		return false
	}
	if err := p.write(m); err != nil {
		log.Errorf("write to socket %s: %v", m.SocketId, err)
	}
	return true
}

// Shutdown closes every page session.
func (s *Ws) Shutdown(ctx context.Context) {
	s.pages.Range(func(key, value any) bool {
		value.(*Page).close()
		s.pages.Delete(key)
		return ctx.Err() == nil
	})
}

type localOutbox struct{ s *Ws }

func (o localOutbox) Send(m *comm.WSMessage) error {
	o.s.Deliver(m)
	return nil
}
