package comm

import (
	"encoding/json"

	"github.com/avvvet/ticket-services/internal/models"
)

// WSMessage is the envelope of every page socket message. Ref pairs a
// request from the service with the page's reply.
type WSMessage struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	SocketId string          `json:"socketid,omitempty"`
	Ref      string          `json:"ref,omitempty"`
}

// page -> service
const (
	TypeInit          = "init"
	TypeNativeScan    = "native-scan"
	TypeScanResult    = "scan-result"
	TypeConfirmResult = "confirm-result"
	TypeCameraStart   = "camera-start"
	TypeCameraCode    = "camera-code"
	TypeCameraStop    = "camera-stop"
	TypeRetry         = "retry"
	TypeReset         = "reset"
	TypeSubmit        = "submit"
	TypeManualSubmit  = "manual-submit"
	TypeDashboard     = "dashboard"
)

// service -> page
const (
	TypeLogin       = "login"
	TypeScanRequest = "scan-request"
	TypeConfirm     = "confirm"
	TypeNotice      = "notice"
	TypeState       = "state"
	TypeError       = "error"
)

type InitData struct {
	InClient bool   `json:"in_client"`
	LoggedIn bool   `json:"logged_in"`
	UserId   string `json:"user_id,omitempty"`
}

type ScanResultData struct {
	Value string `json:"value"`
	Error string `json:"error,omitempty"`
}

type ConfirmData struct {
	Message string `json:"message"`
}

type ConfirmResultData struct {
	Ok bool `json:"ok"`
}

type CameraCodeData struct {
	Value string `json:"value"`
}

type ManualSubmitData struct {
	Ticket models.ParsedTicket `json:"ticket"`
}

type DashboardRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type ErrorData struct {
	Error string `json:"error"`
}

// NewMessage marshals data into a message for socketId.
func NewMessage(socketId, msgType string, data any) (*WSMessage, error) {
	m := &WSMessage{Type: msgType, SocketId: socketId}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		m.Data = raw
	}
	return m, nil
}
