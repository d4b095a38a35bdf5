package acquire

import (
	"strings"

	"github.com/avvvet/ticket-services/internal/models"
)

// MaxCodes is the number of QR codes a ticket payload can be split across.
const MaxCodes = 2

// Session holds the raw QR payloads collected for one ticket, in scan order.
// A payload is kept at most once.
type Session struct {
	ID    string
	Mode  models.ScanMode
	codes []string
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

// Add appends code unless it is empty or already collected. It reports
// whether the session changed.
func (s *Session) Add(code string) bool {
	if code == "" {
		return false
	}
	for _, c := range s.codes {
		if c == code {
			return false
		}
	}
	s.codes = append(s.codes, code)
	return true
}

func (s *Session) Len() int { return len(s.codes) }

// Codes returns a copy of the collected payloads.
func (s *Session) Codes() []string {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// Combined concatenates the payloads in scan order.
func (s *Session) Combined() string {
	return strings.Join(s.codes, "")
}

func (s *Session) Reset() {
	s.codes = nil
	s.Mode = ""
}
