package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/avvvet/ticket-services/internal/acquire"
	"github.com/avvvet/ticket-services/internal/backend"
	"github.com/avvvet/ticket-services/internal/comm"
	"github.com/avvvet/ticket-services/internal/dashboard"
	"github.com/avvvet/ticket-services/internal/models"
	"github.com/avvvet/ticket-services/internal/ticketsvc/service"
	"github.com/avvvet/ticket-services/internal/ticketsvc/ws"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	maxUploadSize  = 10 << 20
	sessionTTL     = 7 * 24 * time.Hour
	recentScanSize = 20
)

// SubmissionLedger lists recorded submission attempts.
type SubmissionLedger interface {
	Attempts(ctx context.Context, key string) ([]models.SubmissionAttempt, error)
}

// ScanArchive lists archived scans of a page session.
type ScanArchive interface {
	Recent(ctx context.Context, sessionID string, limit int64) ([]models.ScanRecord, error)
}

// Deps are the collaborators of a Handler. Submissions and Scans are
// optional.
type Deps struct {
	Ws          *ws.Ws
	Dashboard   *service.DashboardService
	Submissions SubmissionLedger
	Scans       ScanArchive
	LiffID      string
	JWTSecret   string
	Port        string
}

type Handler struct {
	upgrader    websocket.Upgrader
	tokenAuth   *jwtauth.JWTAuth
	ws          *ws.Ws
	dashboard   *service.DashboardService
	submissions SubmissionLedger
	scans       ScanArchive
	liffID      string
	port        string
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

type sessionRequest struct {
	UserId string `json:"user_id"`
	Name   string `json:"name"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tokenAuth:   jwtauth.New("HS256", []byte(d.JWTSecret), nil),
		ws:          d.Ws,
		dashboard:   d.Dashboard,
		submissions: d.Submissions,
		scans:       d.Scans,
		liffID:      d.LiffID,
		port:        d.Port,
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, code int, message string) {
	h.CreateResponse(w, Response{Message: message, Code: code, Error: message})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "ticket service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

// ConfigHandler gives the page what it needs to start LIFF.
func (h *Handler) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "config",
		Code:    http.StatusOK,
		Data:    map[string]string{"liff_id": h.liffID},
	})
}

// SessionHandler issues the page a token once LIFF has logged the user in.
func (h *Handler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserId == "" {
		h.fail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	expiresAt := time.Now().Add(sessionTTL)
	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"user_id": req.UserId,
		"name":    req.Name,
		"exp":     expiresAt.Unix(),
	})
	if err != nil {
		log.Errorf("unable to sign session token: %v", err)
		h.fail(w, http.StatusInternalServerError, "unable to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    tokenString,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.CreateResponse(w, Response{
		Message: "session created",
		Code:    http.StatusOK,
		Data:    sessionResponse{Token: tokenString, ExpiresAt: expiresAt},
	})
}

// HandleWebSocket opens a page channel. The first message tells the page
// its socket id.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	page := h.ws.Register(socketId, conn)
	log.Infof("New WebSocket connection established: %s", socketId)

	if err := h.ws.Outbox.Send(&comm.WSMessage{Type: comm.TypeState, SocketId: socketId, Data: mustJSON(page.Controller().Snapshot())}); err != nil {
		log.Errorf("unable to greet socket %s: %v", socketId, err)
	}

	go h.handleConnection(conn, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		conn.Close()
		h.ws.HandleDisconnect(socketId)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket connection closed normally for socket: %s", socketId)
			}
			return
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.ws.Deliver(&comm.WSMessage{
				Type:     comm.TypeError,
				SocketId: socketId,
				Data:     mustJSON(comm.ErrorData{Error: "Invalid message format"}),
			})
			continue
		}

		log.Debugf("Received message from socket %s: type=%s", socketId, message.Type)
		h.ws.SocketMessage(socketId, message)
	}
}

// UploadHandler runs the photo flow on the page's controller.
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	page, ok := h.ws.GetPage(chi.URLParam(r, "socketId"))
	if !ok {
		h.fail(w, http.StatusNotFound, "page not connected")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	ticket, err := page.Upload(r.Context(), header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, acquire.ErrBusy):
			h.fail(w, http.StatusConflict, err.Error())
		default:
			h.fail(w, http.StatusBadGateway, backend.Reason(err))
		}
		return
	}
	h.CreateResponse(w, Response{Message: "parsed", Code: http.StatusOK, Data: ticket})
}

func (h *Handler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	year, yerr := strconv.Atoi(chi.URLParam(r, "year"))
	month, merr := strconv.Atoi(chi.URLParam(r, "month"))
	if yerr != nil || merr != nil {
		h.fail(w, http.StatusBadRequest, "year and month must be numbers")
		return
	}
	if err := dashboard.ValidMonth(year, month); err != nil {
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.dashboard.Load(r.Context(), year, month)
	if err != nil {
		log.Warnf("balance %d-%02d: %v", year, month, err)
		h.fail(w, http.StatusBadGateway, backend.Reason(err))
		return
	}
	h.CreateResponse(w, Response{Message: "balance", Code: http.StatusOK, Data: view})
}

func (h *Handler) OptionsHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{Message: "options", Code: http.StatusOK, Data: models.NewEntryOptions()})
}

func (h *Handler) SubmissionsHandler(w http.ResponseWriter, r *http.Request) {
	if h.submissions == nil {
		h.fail(w, http.StatusNotFound, "submission ledger is not enabled")
		return
	}
	attempts, err := h.submissions.Attempts(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		log.Errorf("list attempts: %v", err)
		h.fail(w, http.StatusInternalServerError, "unable to list attempts")
		return
	}
	if attempts == nil {
		attempts = []models.SubmissionAttempt{}
	}
	h.CreateResponse(w, Response{Message: "attempts", Code: http.StatusOK, Data: attempts})
}

func (h *Handler) ScansHandler(w http.ResponseWriter, r *http.Request) {
	if h.scans == nil {
		h.fail(w, http.StatusNotFound, "scan archive is not enabled")
		return
	}
	records, err := h.scans.Recent(r.Context(), chi.URLParam(r, "socketId"), recentScanSize)
	if err != nil {
		log.Errorf("list scans: %v", err)
		h.fail(w, http.StatusInternalServerError, "unable to list scans")
		return
	}
	if records == nil {
		records = []models.ScanRecord{}
	}
	h.CreateResponse(w, Response{Message: "scans", Code: http.StatusOK, Data: records})
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Errorf("encode %T: %v", v, err)
		return nil
	}
	return raw
}
