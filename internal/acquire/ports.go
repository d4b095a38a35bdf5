package acquire

import (
	"context"
	"io"

	"github.com/avvvet/ticket-services/internal/models"
)

// Backend is the part of the ticket backend the acquisition flow calls.
type Backend interface {
	ParseQR(ctx context.Context, raw string) (*models.ParsedTicket, error)
	ScanImage(ctx context.Context, filename string, r io.Reader) (*models.ParsedTicket, error)
	SubmitBets(ctx context.Context, key string, tickets []models.ParsedTicket) error
}

// CodeScanner reads one QR code with the device's native scanner.
type CodeScanner interface {
	ScanCode(ctx context.Context) (string, error)
}

// Prompter asks the user a yes/no question and blocks for the answer.
type Prompter interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Archive keeps raw scan payloads for later inspection.
type Archive interface {
	RecordScan(ctx context.Context, rec models.ScanRecord) error
}

// Ledger records submission attempts by idempotency key.
type Ledger interface {
	RecordAttempt(ctx context.Context, a models.SubmissionAttempt) error
	CountAttempts(ctx context.Context, key string) (int, error)
}

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

type Kind string

const (
	KindState        Kind = "state"
	KindDuplicate    Kind = "duplicate"
	KindCameraStop   Kind = "camera-stop"
	KindParsed       Kind = "parsed"
	KindFailed       Kind = "failed"
	KindInvalid      Kind = "invalid"
	KindSubmitted    Kind = "submitted"
	KindSubmitFailed Kind = "submit-failed"
	KindUnsupported  Kind = "unsupported"
)

// Notice is a user-facing event of the acquisition flow. State is the
// controller state after the event.
type Notice struct {
	Level   Level                `json:"level"`
	Kind    Kind                 `json:"kind"`
	Message string               `json:"message,omitempty"`
	Ticket  *models.ParsedTicket `json:"ticket,omitempty"`
	State   State                `json:"state"`
}

type nopArchive struct{}

func (nopArchive) RecordScan(context.Context, models.ScanRecord) error { return nil }

type nopLedger struct{}

func (nopLedger) RecordAttempt(context.Context, models.SubmissionAttempt) error { return nil }
func (nopLedger) CountAttempts(context.Context, string) (int, error)          { return 0, nil }
