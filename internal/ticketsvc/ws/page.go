package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/avvvet/ticket-services/internal/acquire"
	"github.com/avvvet/ticket-services/internal/backend"
	"github.com/avvvet/ticket-services/internal/comm"
	"github.com/avvvet/ticket-services/internal/liff"
	"github.com/avvvet/ticket-services/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var ErrDashboardBusy = errors.New("dashboard is already loading")

// Page is one connected page: its acquisition controller, its LIFF
// capabilities and the replies it owes the service.
type Page struct {
	id     string
	hub    *Ws
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	ctrl     *acquire.Controller
	gate     *liff.Gate
	dashBusy atomic.Bool

	writeMu sync.Mutex

	mu       sync.Mutex
	inited   chan struct{}
	initOnce sync.Once
	inClient bool
	loggedIn bool
	userId   string
	pending  map[string]chan *comm.WSMessage
}

func newPage(id string, conn *websocket.Conn, hub *Ws) *Page {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Page{
		id:      id,
		hub:     hub,
		conn:    conn,
		ctx:     ctx,
		cancel:  cancel,
		inited:  make(chan struct{}),
		pending: make(map[string]chan *comm.WSMessage),
	}
	p.gate = liff.NewGate(p)
	p.ctrl = acquire.NewController(acquire.Deps{
		SessionID:  id,
		Backend:    hub.deps.Backend,
		Scanner:    p.gate,
		Prompter:   p,
		Notifier:   p,
		Archive:    hub.deps.Archive,
		Ledger:     hub.deps.Ledger,
		ArchiveTTL: hub.deps.ArchiveTTL,
	})
	return p
}

func (p *Page) ID() string { return p.id }

func (p *Page) Controller() *acquire.Controller { return p.ctrl }

func (p *Page) handle(m *comm.WSMessage) {
	switch m.Type {
	case comm.TypeInit:
		var data comm.InitData
		if !p.decode(m, &data) {
			return
		}
		p.mu.Lock()
		p.inClient, p.loggedIn, p.userId = data.InClient, data.LoggedIn, data.UserId
		p.mu.Unlock()
		p.initOnce.Do(func() { close(p.inited) })
		go p.run("bootstrap", func(ctx context.Context) error {
			if err := p.gate.Bootstrap(ctx); err != nil {
				return err
			}
			p.sendState()
			return nil
		})

	case comm.TypeScanResult, comm.TypeConfirmResult:
		p.resolve(m)

	case comm.TypeNativeScan:
		go p.run("native scan", func(ctx context.Context) error {
			_, err := p.ctrl.ScanNative(ctx)
			return err
		})

	case comm.TypeCameraStart:
		p.report("camera start", p.ctrl.StartCamera(p.ctx))

	case comm.TypeCameraCode:
		var data comm.CameraCodeData
		if !p.decode(m, &data) {
			return
		}
		ready, err := p.ctrl.CameraCode(p.ctx, data.Value)
		if err != nil {
			p.report("camera code", err)
			return
		}
		if ready {
			go p.run("camera parse", func(ctx context.Context) error {
				_, err := p.ctrl.ParseCollected(ctx)
				return err
			})
		}

	case comm.TypeCameraStop:
		p.report("camera stop", p.ctrl.StopCamera(p.ctx))

	case comm.TypeRetry:
		p.report("retry", p.ctrl.Retry(p.ctx))

	case comm.TypeReset:
		p.report("reset", p.ctrl.Reset(p.ctx))

	case comm.TypeSubmit:
		go p.run("submit", p.ctrl.Submit)

	case comm.TypeManualSubmit:
		var data comm.ManualSubmitData
		if !p.decode(m, &data) {
			return
		}
		go p.run("manual submit", func(ctx context.Context) error {
			return p.ctrl.SubmitManual(ctx, data.Ticket)
		})

	case comm.TypeDashboard:
		var data comm.DashboardRequest
		if !p.decode(m, &data) {
			return
		}
		go p.run("dashboard", func(ctx context.Context) error {
			return p.loadDashboard(ctx, data.Year, data.Month)
		})

	default:
		log.Warnf("unknown event received: %s", m.Type)
	}
}

// Upload runs the photo flow for this page.
func (p *Page) Upload(ctx context.Context, filename string, r io.Reader) (*models.ParsedTicket, error) {
	ctx, cancel := mergeCancel(ctx, p.ctx)
	defer cancel()
	return p.ctrl.Upload(ctx, filename, r)
}

func (p *Page) loadDashboard(ctx context.Context, year, month int) error {
	if !p.dashBusy.CompareAndSwap(false, true) {
		return ErrDashboardBusy
	}
	defer p.dashBusy.Store(false)

	view, err := p.hub.deps.Dashboard.Load(ctx, year, month)
	if err != nil {
		p.sendError("データの取得に失敗しました: " + backend.Reason(err))
		log.Warnf("dashboard %d-%02d for %s: %v", year, month, p.id, err)
		return nil
	}
	p.send(comm.TypeDashboard, view)
	return nil
}

// Init waits for the page to report its LIFF context.
func (p *Page) Init(ctx context.Context) error {
	select {
	case <-p.inited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Page) IsLoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loggedIn
}

func (p *Page) IsInClient() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inClient
}

// Login tells the page to start the LIFF login redirect. The page comes
// back on a new socket once logged in.
func (p *Page) Login(ctx context.Context) error {
	p.send(comm.TypeLogin, nil)
	return nil
}

func (p *Page) ScanCode(ctx context.Context) (liff.ScanResult, error) {
	reply, err := p.call(ctx, comm.TypeScanRequest, nil)
	if err != nil {
		return liff.ScanResult{}, err
	}
	var data comm.ScanResultData
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return liff.ScanResult{}, fmt.Errorf("decode scan result: %w", err)
	}
	if data.Error != "" {
		return liff.ScanResult{}, errors.New(data.Error)
	}
	return liff.ScanResult{Value: data.Value}, nil
}

func (p *Page) Confirm(ctx context.Context, message string) (bool, error) {
	reply, err := p.call(ctx, comm.TypeConfirm, comm.ConfirmData{Message: message})
	if err != nil {
		return false, err
	}
	var data comm.ConfirmResultData
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return false, fmt.Errorf("decode confirm result: %w", err)
	}
	return data.Ok, nil
}

func (p *Page) Notify(ctx context.Context, n acquire.Notice) {
	switch n.Kind {
	case acquire.KindState:
	case acquire.KindCameraStop:
		p.send(comm.TypeCameraStop, nil)
	default:
		p.send(comm.TypeNotice, n)
	}
	p.sendState()
}

// call sends a request to the page and waits for the reply carrying the
// same ref.
func (p *Page) call(ctx context.Context, msgType string, data any) (*comm.WSMessage, error) {
	m, err := comm.NewMessage(p.id, msgType, data)
	if err != nil {
		return nil, err
	}
	m.Ref = uuid.NewString()

	ch := make(chan *comm.WSMessage, 1)
	p.mu.Lock()
	p.pending[m.Ref] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, m.Ref)
		p.mu.Unlock()
	}()

	if err := p.hub.Outbox.Send(m); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Page) resolve(m *comm.WSMessage) {
	p.mu.Lock()
	ch, ok := p.pending[m.Ref]
	p.mu.Unlock()
	if !ok {
		log.Warnf("socket %s: %s for unknown ref %q", p.id, m.Type, m.Ref)
		return
	}
	select {
	case ch <- m:
	default:
	}
}

func (p *Page) run(op string, fn func(ctx context.Context) error) {
	p.report(op, fn(p.ctx))
}

// report surfaces flow errors the controller did not already notify.
func (p *Page) report(op string, err error) {
	switch {
	case err == nil, errors.Is(err, acquire.ErrDeclined), errors.Is(err, context.Canceled):
	case errors.Is(err, acquire.ErrBusy),
		errors.Is(err, acquire.ErrNoCandidate),
		errors.Is(err, acquire.ErrCameraInactive),
		errors.Is(err, acquire.ErrNothingToParse),
		errors.Is(err, acquire.ErrEmptyCode),
		errors.Is(err, liff.ErrNotLoggedIn),
		errors.Is(err, ErrDashboardBusy):
		p.sendError(err.Error())
	default:
		log.Warnf("socket %s: %s: %v", p.id, op, err)
	}
}

func (p *Page) decode(m *comm.WSMessage, v any) bool {
	if err := json.Unmarshal(m.Data, v); err != nil {
		log.Errorf("socket %s: malformed %s payload: %v", p.id, m.Type, err)
		p.sendError("invalid " + m.Type + " payload")
		return false
	}
	return true
}

func (p *Page) sendState() {
	p.send(comm.TypeState, p.ctrl.Snapshot())
}

func (p *Page) sendError(message string) {
	p.send(comm.TypeError, comm.ErrorData{Error: message})
}

func (p *Page) send(msgType string, data any) {
	m, err := comm.NewMessage(p.id, msgType, data)
	if err != nil {
		log.Errorf("socket %s: encode %s: %v", p.id, msgType, err)
		return
	}
	if err := p.hub.Outbox.Send(m); err != nil {
		log.Errorf("socket %s: send %s: %v", p.id, msgType, err)
	}
}

func (p *Page) write(m *comm.WSMessage) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(m)
}

func (p *Page) close() {
	p.cancel()
}

// mergeCancel returns a context of parent that is also cancelled with other.
func mergeCancel(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
