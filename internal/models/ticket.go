package models

import "time"

// ParsedTicket is a ticket as returned by the parser or entered by hand.
type ParsedTicket struct {
	PlaceCode  string `json:"place_code"`
	RaceNum    int    `json:"race_num"`
	BetType    string `json:"bet_type"`
	BuyDetails string `json:"buy_details"`
	Amount     int    `json:"amount"`
}

// Named returns t with racecourse and bet type codes replaced by their
// names. Names are left as they are.
func (t ParsedTicket) Named() ParsedTicket {
	t.PlaceCode = PlaceName(t.PlaceCode)
	t.BetType = BetTypeName(t.BetType)
	return t
}

// ScanMode is how the codes of a scan session were acquired.
type ScanMode string

const (
	ModeNative ScanMode = "native"
	ModeCamera ScanMode = "camera"
	ModeUpload ScanMode = "upload"
	ModeManual ScanMode = "manual"
)

// SubmissionAttempt is one call to the bets endpoint for a candidate ticket.
type SubmissionAttempt struct {
	ID             int64        `json:"id"`
	IdempotencyKey string       `json:"idempotency_key"`
	Mode           ScanMode     `json:"mode"`
	Ticket         ParsedTicket `json:"ticket"`
	Status         string       `json:"status"` // succeeded or failed
	Error          string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

const (
	AttemptSucceeded = "succeeded"
	AttemptFailed    = "failed"
)

// ScanRecord keeps the raw payloads of one parse attempt.
type ScanRecord struct {
	SessionID string    `json:"session_id" bson:"session_id"`
	Mode      ScanMode  `json:"mode" bson:"mode"`
	Codes     []string  `json:"codes" bson:"codes"`
	Combined  string    `json:"combined" bson:"combined"`
	Parsed    bool      `json:"parsed" bson:"parsed"`
	Error     string    `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}
