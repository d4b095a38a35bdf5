package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/avvvet/ticket-services/internal/backend"
	"github.com/avvvet/ticket-services/internal/liff"
	"github.com/avvvet/ticket-services/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// State of the acquisition flow.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateParsing
	StateParsed
	StateFailed
)

var stateNames = [...]string{"idle", "collecting", "parsing", "parsed", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	ErrBusy           = errors.New("another operation is in progress")
	ErrNoCandidate    = errors.New("no parsed ticket to submit")
	ErrCameraInactive = errors.New("camera is not scanning")
	ErrNothingToParse = errors.New("no collected codes waiting to be parsed")
	ErrDeclined       = errors.New("declined by user")
	ErrEmptyCode      = errors.New("scanned code is empty")
)

// ValidationError is a manual entry missing a required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

const (
	msgSecondCode    = "2枚目のQRコードを読み取りますか？"
	msgDuplicate     = "このQRコードは読み取り済みです"
	msgEmptyCode     = "QRコードを読み取れませんでした"
	msgConfirmSubmit = "登録しますか？"
	msgSubmitted     = "登録しました！"
	msgRequired      = "必須項目を入力してください"
	msgUnsupported   = "この機能はLINEアプリ内でのみ利用できます"
	msgUploadHint    = "もう一度、近づきすぎずズームして撮影してみてください。"
)

// Deps are the collaborators of a Controller. Archive and Ledger are
// optional.
type Deps struct {
	SessionID  string
	Backend    Backend
	Scanner    CodeScanner
	Prompter   Prompter
	Notifier   Notifier
	Archive    Archive
	Ledger     Ledger
	ArchiveTTL time.Duration
}

// Snapshot is a copy of the controller's state.
type Snapshot struct {
	State        State                `json:"state"`
	Mode         models.ScanMode      `json:"mode,omitempty"`
	Codes        []string             `json:"codes"`
	Ticket       *models.ParsedTicket `json:"ticket,omitempty"`
	CameraActive bool                 `json:"camera_active"`
	LastError    string               `json:"last_error,omitempty"`
}

// Controller runs the ticket acquisition flow of one page session. Only one
// acquisition or submission runs at a time; a second trigger gets ErrBusy.
type Controller struct {
	backend    Backend
	scanner    CodeScanner
	prompter   Prompter
	notifier   Notifier
	archive    Archive
	ledger     Ledger
	archiveTTL time.Duration
	newKey     func() string
	now        func() time.Time

	mu      sync.Mutex
	session *Session
	state   State
	busy    bool
	op      uint64 // increments whenever busy is claimed
	camera  bool
	pending bool // camera collected MaxCodes, parse not started yet
	ticket  *models.ParsedTicket
	key     string
	lastErr error
}

func NewController(d Deps) *Controller {
	c := &Controller{
		backend:    d.Backend,
		scanner:    d.Scanner,
		prompter:   d.Prompter,
		notifier:   d.Notifier,
		archive:    d.Archive,
		ledger:     d.Ledger,
		archiveTTL: d.ArchiveTTL,
		newKey:     uuid.NewString,
		now:        time.Now,
		session:    NewSession(d.SessionID),
	}
	if c.archive == nil {
		c.archive = nopArchive{}
	}
	if c.ledger == nil {
		c.ledger = nopLedger{}
	}
	return c
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:        c.state,
		Mode:         c.session.Mode,
		Codes:        c.session.Codes(),
		CameraActive: c.camera,
	}
	if c.ticket != nil {
		t := *c.ticket
		s.Ticket = &t
	}
	if c.lastErr != nil {
		s.LastError = backend.Reason(c.lastErr)
	}
	return s
}

// ScanNative collects codes with the native scanner. After each code short
// of MaxCodes the user is asked whether to scan another one; parsing starts
// when MaxCodes distinct codes are held or the user declines.
func (c *Controller) ScanNative(ctx context.Context) (*models.ParsedTicket, error) {
	op, err := c.begin(models.ModeNative)
	if err != nil {
		return nil, err
	}
	defer c.end(op)

	for c.codeCount() < MaxCodes {
		n := c.codeCount()
		if n > 0 {
			ok, err := c.prompter.Confirm(ctx, msgSecondCode)
			if err != nil {
				c.abort(ctx)
				return nil, err
			}
			if !ok {
				break
			}
		}

		code, err := c.scanner.ScanCode(ctx)
		if err == nil && code == "" {
			err = ErrEmptyCode
			c.notify(ctx, LevelError, KindInvalid, msgEmptyCode, nil)
		}
		if err != nil {
			if n > 0 && ctx.Err() == nil && !errors.Is(err, liff.ErrUnsupported) {
				log.Warnf("second scan of session %s failed, parsing %d code(s): %v", c.session.ID, n, err)
				break
			}
			c.abort(ctx)
			if errors.Is(err, liff.ErrUnsupported) {
				c.notify(ctx, LevelError, KindUnsupported, msgUnsupported, nil)
			}
			return nil, err
		}

		if !c.add(code) {
			c.notify(ctx, LevelInfo, KindDuplicate, msgDuplicate, nil)
			continue
		}
		c.notify(ctx, LevelInfo, KindState, "", nil)
	}

	return c.parse(ctx)
}

// StartCamera begins a continuous camera session. Codes are fed with
// CameraCode.
func (c *Controller) StartCamera(ctx context.Context) error {
	c.mu.Lock()
	if c.busy || c.camera {
		c.mu.Unlock()
		return ErrBusy
	}
	c.resetLocked()
	c.session.Mode = models.ModeCamera
	c.camera = true
	c.mu.Unlock()

	c.notify(ctx, LevelInfo, KindState, "", nil)
	return nil
}

// CameraCode adds a code read by the camera. When MaxCodes distinct codes
// are held the camera stops and ready is true; the caller then runs
// ParseCollected. Duplicates leave the session unchanged.
func (c *Controller) CameraCode(ctx context.Context, code string) (ready bool, err error) {
	c.mu.Lock()
	if !c.camera {
		c.mu.Unlock()
		return false, ErrCameraInactive
	}
	if code == "" {
		c.mu.Unlock()
		return false, ErrEmptyCode
	}
	if !c.session.Add(code) {
		c.mu.Unlock()
		return false, nil
	}
	c.state = StateCollecting
	if c.session.Len() >= MaxCodes {
		c.camera = false
		c.pending = true
		c.claimLocked()
		ready = true
	}
	c.mu.Unlock()

	if ready {
		c.notify(ctx, LevelInfo, KindCameraStop, "", nil)
	} else {
		c.notify(ctx, LevelInfo, KindState, "", nil)
	}
	return ready, nil
}

// ParseCollected parses the codes gathered by a finished camera session.
func (c *Controller) ParseCollected(ctx context.Context) (*models.ParsedTicket, error) {
	c.mu.Lock()
	if !c.pending {
		c.mu.Unlock()
		return nil, ErrNothingToParse
	}
	c.pending = false
	op := c.op
	c.mu.Unlock()
	defer c.end(op)

	return c.parse(ctx)
}

// StopCamera ends a camera session early and discards its codes.
func (c *Controller) StopCamera(ctx context.Context) error {
	c.mu.Lock()
	if !c.camera {
		c.mu.Unlock()
		return ErrCameraInactive
	}
	c.camera = false
	c.resetLocked()
	c.mu.Unlock()

	c.notify(ctx, LevelInfo, KindState, "", nil)
	return nil
}

// Upload sends a ticket photo straight to the image parser.
func (c *Controller) Upload(ctx context.Context, filename string, r io.Reader) (*models.ParsedTicket, error) {
	op, err := c.begin(models.ModeUpload)
	if err != nil {
		return nil, err
	}
	defer c.end(op)

	c.setState(StateParsing)
	ticket, err := c.backend.ScanImage(ctx, filename, r)
	if err != nil {
		return nil, c.failParse(ctx, err, "読み取りに失敗しました: "+backend.Reason(err)+"\n"+msgUploadHint)
	}
	return c.succeedParse(ctx, ticket), nil
}

// Retry discards the collected codes and any failed result.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.camera = false
	c.resetLocked()
	c.mu.Unlock()

	c.notify(ctx, LevelInfo, KindState, "", nil)
	return nil
}

// Reset clears the session and candidate and stops the camera. It fails
// with ErrBusy while a parse or submission is running.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.camera = false
	c.resetLocked()
	c.mu.Unlock()

	c.notify(ctx, LevelInfo, KindState, "", nil)
	return nil
}

// Submit persists the parsed candidate after the user confirms.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.busy || c.camera {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state != StateParsed || c.ticket == nil {
		c.mu.Unlock()
		return ErrNoCandidate
	}
	t, key, mode := *c.ticket, c.key, c.session.Mode
	op := c.claimLocked()
	c.mu.Unlock()
	defer c.end(op)

	return c.submitTicket(ctx, t, key, mode)
}

// SubmitManual validates a hand-entered ticket and submits it with place
// and bet type names. Submitting the same ticket again after a failure
// reuses its idempotency key.
func (c *Controller) SubmitManual(ctx context.Context, t models.ParsedTicket) error {
	t = t.Named()
	if err := ValidateManual(t); err != nil {
		c.notify(ctx, LevelError, KindInvalid, msgRequired, nil)
		return err
	}

	c.mu.Lock()
	if c.busy || c.camera {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.session.Mode != models.ModeManual || c.ticket == nil || *c.ticket != t {
		c.resetLocked()
		c.session.Mode = models.ModeManual
		c.ticket = &t
		c.key = c.newKey()
		c.state = StateParsed
	}
	key := c.key
	op := c.claimLocked()
	c.mu.Unlock()
	defer c.end(op)

	return c.submitTicket(ctx, t, key, models.ModeManual)
}

// ValidateManual checks the fields a hand-entered ticket must carry.
func ValidateManual(t models.ParsedTicket) error {
	switch {
	case t.Amount <= 0:
		return &ValidationError{Field: "amount", Message: "must be greater than zero"}
	case t.BuyDetails == "":
		return &ValidationError{Field: "buy_details", Message: "required"}
	case t.RaceNum < models.MinRace || t.RaceNum > models.MaxRace:
		return &ValidationError{Field: "race_num", Message: fmt.Sprintf("must be %d-%d", models.MinRace, models.MaxRace)}
	}
	return nil
}

func (c *Controller) submitTicket(ctx context.Context, t models.ParsedTicket, key string, mode models.ScanMode) error {
	ok, err := c.prompter.Confirm(ctx, msgConfirmSubmit)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}

	if n, err := c.ledger.CountAttempts(ctx, key); err != nil {
		log.Warnf("count attempts for %s: %v", key, err)
	} else if n > 0 {
		log.Warnf("resubmitting ticket %s after %d attempt(s)", key, n)
	}

	err = c.backend.SubmitBets(ctx, key, []models.ParsedTicket{t})
	c.recordAttempt(ctx, key, mode, t, err)
	if err != nil {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		c.notify(ctx, LevelError, KindSubmitFailed, "登録に失敗しました: "+backend.Reason(err), &t)
		return err
	}

	c.mu.Lock()
	c.resetLocked()
	c.busy = false
	c.mu.Unlock()
	c.notify(ctx, LevelInfo, KindSubmitted, msgSubmitted, &t)
	return nil
}

func (c *Controller) parse(ctx context.Context) (*models.ParsedTicket, error) {
	c.mu.Lock()
	c.state = StateParsing
	codes := c.session.Codes()
	combined := c.session.Combined()
	mode := c.session.Mode
	c.mu.Unlock()

	ticket, err := c.backend.ParseQR(ctx, combined)
	c.recordScan(ctx, mode, codes, combined, err)
	if err != nil {
		return nil, c.failParse(ctx, err, "読み取りに失敗しました: "+backend.Reason(err))
	}
	return c.succeedParse(ctx, ticket), nil
}

func (c *Controller) succeedParse(ctx context.Context, t *models.ParsedTicket) *models.ParsedTicket {
	c.mu.Lock()
	c.state = StateParsed
	c.ticket = t
	c.key = c.newKey()
	c.lastErr = nil
	c.busy = false
	c.mu.Unlock()

	c.notify(ctx, LevelInfo, KindParsed, "", t)
	return t
}

func (c *Controller) failParse(ctx context.Context, err error, message string) error {
	c.mu.Lock()
	c.state = StateFailed
	c.ticket = nil
	c.lastErr = err
	c.busy = false
	c.mu.Unlock()

	log.Warnf("parse failed for session %s: %v", c.session.ID, err)
	c.notify(ctx, LevelError, KindFailed, message, nil)
	return err
}

func (c *Controller) recordScan(ctx context.Context, mode models.ScanMode, codes []string, combined string, parseErr error) {
	now := c.now().UTC()
	rec := models.ScanRecord{
		SessionID: c.session.ID,
		Mode:      mode,
		Codes:     codes,
		Combined:  combined,
		Parsed:    parseErr == nil,
		CreatedAt: now,
		ExpiresAt: now.Add(c.archiveTTL),
	}
	if parseErr != nil {
		rec.Error = parseErr.Error()
	}
	if err := c.archive.RecordScan(ctx, rec); err != nil {
		log.Errorf("archive scan of session %s: %v", c.session.ID, err)
	}
}

func (c *Controller) recordAttempt(ctx context.Context, key string, mode models.ScanMode, t models.ParsedTicket, submitErr error) {
	a := models.SubmissionAttempt{
		IdempotencyKey: key,
		Mode:           mode,
		Ticket:         t,
		Status:         models.AttemptSucceeded,
		CreatedAt:      c.now().UTC(),
	}
	if submitErr != nil {
		a.Status = models.AttemptFailed
		a.Error = submitErr.Error()
	}
	if err := c.ledger.RecordAttempt(ctx, a); err != nil {
		log.Errorf("record attempt %s: %v", key, err)
	}
}

// begin claims the flow for an acquisition in mode. A previous result or
// failure is discarded.
func (c *Controller) begin(mode models.ScanMode) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy || c.camera {
		return 0, ErrBusy
	}
	c.resetLocked()
	c.session.Mode = mode
	return c.claimLocked(), nil
}

func (c *Controller) claimLocked() uint64 {
	c.busy = true
	c.op++
	return c.op
}

// end releases the flow claimed as op. Outcomes release it earlier, together
// with the state change they notify, so a newer claim is left alone.
func (c *Controller) end(op uint64) {
	c.mu.Lock()
	if c.op == op {
		c.busy = false
	}
	c.mu.Unlock()
}

// abort drops what a native scan collected and returns to idle.
func (c *Controller) abort(ctx context.Context) {
	c.mu.Lock()
	c.resetLocked()
	c.busy = false
	c.mu.Unlock()
	c.notify(ctx, LevelInfo, KindState, "", nil)
}

func (c *Controller) add(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Add(code) {
		return false
	}
	c.state = StateCollecting
	return true
}

func (c *Controller) codeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Len()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) resetLocked() {
	c.session.Reset()
	c.state = StateIdle
	c.pending = false
	c.ticket = nil
	c.key = ""
	c.lastErr = nil
}

func (c *Controller) notify(ctx context.Context, level Level, kind Kind, message string, t *models.ParsedTicket) {
	if c.notifier == nil {
		return
	}
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	c.notifier.Notify(ctx, Notice{Level: level, Kind: kind, Message: message, Ticket: t, State: state})
}
