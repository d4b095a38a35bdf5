package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/avvvet/ticket-services/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	parseQRPath   = "/api/parse_qr"
	scanImagePath = "/api/scan_image"
	betsPath      = "/api/bets"

	statusFailed = "failed"
)

// Client calls the ticket backend: QR parsing, image scanning, bet
// persistence and monthly balance aggregation.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. A zero timeout leaves requests
// bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type parseRequest struct {
	RawQR string `json:"raw_qr"`
}

type ticketResponse struct {
	Status  string               `json:"status"`
	Message string               `json:"message"`
	Data    *models.ParsedTicket `json:"data"`
}

type betsRequest struct {
	Tickets []models.ParsedTicket `json:"tickets"`
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// ParseQR sends the combined QR payload to the parser.
func (c *Client) ParseQR(ctx context.Context, raw string) (*models.ParsedTicket, error) {
	const op = "parse_qr"
	body, err := json.Marshal(parseRequest{RawQR: raw})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+parseQRPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var rsp ticketResponse
	if err := c.do(op, req, &rsp); err != nil {
		return nil, err
	}
	return rsp.ticket(op)
}

// ScanImage uploads a ticket photo as the multipart field "file".
func (c *Client) ScanImage(ctx context.Context, filename string, r io.Reader) (*models.ParsedTicket, error) {
	const op = "scan_image"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+scanImagePath, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var rsp ticketResponse
	if err := c.do(op, req, &rsp); err != nil {
		return nil, err
	}
	return rsp.ticket(op)
}

// SubmitBets persists tickets. A non-empty key is sent as Idempotency-Key.
func (c *Client) SubmitBets(ctx context.Context, key string, tickets []models.ParsedTicket) error {
	const op = "bets"
	body, err := json.Marshal(betsRequest{Tickets: tickets})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+betsPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return c.do(op, req, nil)
}

// MonthlyBalance fetches the summary for year/month. The month is sent
// without a leading zero.
func (c *Client) MonthlyBalance(ctx context.Context, year, month int) (*models.DashboardSummary, error) {
	const op = "balance"
	url := fmt.Sprintf("%s/api/balance/%d/%d", c.baseURL, year, month)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	summary := &models.DashboardSummary{}
	if err := c.do(op, req, summary); err != nil {
		return nil, err
	}
	if summary.Details == nil {
		summary.Details = []models.BalanceDetail{}
	}
	return summary, nil
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warnf("backend %s returned %d", op, resp.StatusCode)
		return &RejectionError{Op: op, Status: resp.StatusCode, Detail: detail(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (r *ticketResponse) ticket(op string) (*models.ParsedTicket, error) {
	if r.Status == statusFailed {
		return nil, &LogicalError{Op: op, Message: r.Message}
	}
	if r.Data == nil {
		return nil, &LogicalError{Op: op, Message: "response carried no ticket"}
	}
	return r.Data, nil
}

// detail extracts the message of an error body. A string detail is used
// as is, any other JSON value is returned as text.
func detail(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	return string(body.Detail)
}
