package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avvvet/ticket-services/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", 0)
}

func TestParseQR_SendsRawPayload(t *testing.T) {
	var got parseRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/parse_qr" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"status":"success","data":{"place_code":"東京","race_num":11,"bet_type":"馬連","buy_details":"1-2","amount":500}}`))
	})

	ticket, err := client.ParseQR(context.Background(), "AAAABBBB")
	if err != nil {
		t.Fatalf("ParseQR: %v", err)
	}
	if got.RawQR != "AAAABBBB" {
		t.Errorf("raw_qr = %q, want AAAABBBB", got.RawQR)
	}
	want := models.ParsedTicket{PlaceCode: "東京", RaceNum: 11, BetType: "馬連", BuyDetails: "1-2", Amount: 500}
	if *ticket != want {
		t.Errorf("ticket = %+v, want %+v", *ticket, want)
	}
}

func TestParseQR_FailedStatusIsLogicalError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"failed","message":"QRコードの形式が不正です"}`))
	})

	ticket, err := client.ParseQR(context.Background(), "x")
	var logical *LogicalError
	if !errors.As(err, &logical) {
		t.Fatalf("expected LogicalError, got %v (ticket %v)", err, ticket)
	}
	if Reason(err) != "QRコードの形式が不正です" {
		t.Errorf("reason = %q", Reason(err))
	}
}

func TestParseQR_MissingDataIsLogicalError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	})

	_, err := client.ParseQR(context.Background(), "x")
	var logical *LogicalError
	if !errors.As(err, &logical) {
		t.Fatalf("expected LogicalError, got %v", err)
	}
}

func TestParseQR_RejectionCarriesDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"解析に失敗しました"}`))
	})

	_, err := client.ParseQR(context.Background(), "x")
	var rejection *RejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if rejection.Status != http.StatusBadRequest {
		t.Errorf("status = %d", rejection.Status)
	}
	if Reason(err) != "解析に失敗しました" {
		t.Errorf("reason = %q", Reason(err))
	}
}

func TestRejection_NonStringDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["body","raw_qr"]}]}`))
	})

	_, err := client.ParseQR(context.Background(), "x")
	if !strings.Contains(Reason(err), "raw_qr") {
		t.Errorf("reason = %q, want the raw detail", Reason(err))
	}
}

func TestRejection_NoBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.SubmitBets(context.Background(), "", nil)
	if Reason(err) != "server error (502)" {
		t.Errorf("reason = %q", Reason(err))
	}
}

func TestScanImage_FailedStatusIsLogicalError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scan_image" {
			t.Errorf("path = %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			defer file.Close()
			data, _ := io.ReadAll(file)
			if string(data) != "jpegbytes" || header.Filename != "ticket.jpg" {
				t.Errorf("upload = %q %q", header.Filename, data)
			}
		}
		w.Write([]byte(`{"status":"failed","message":"QRコードが見つかりません"}`))
	})

	_, err := client.ScanImage(context.Background(), "ticket.jpg", strings.NewReader("jpegbytes"))
	var logical *LogicalError
	if !errors.As(err, &logical) {
		t.Fatalf("expected LogicalError, got %v", err)
	}
	if Reason(err) != "QRコードが見つかりません" {
		t.Errorf("reason = %q", Reason(err))
	}
}

func TestSubmitBets_SingleTicketWithKey(t *testing.T) {
	var got betsRequest
	var key string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"status":"success","count":1}`))
	})

	ticket := models.ParsedTicket{PlaceCode: "中山", RaceNum: 1, BetType: "単勝", BuyDetails: "7", Amount: 100}
	if err := client.SubmitBets(context.Background(), "key-1", []models.ParsedTicket{ticket}); err != nil {
		t.Fatalf("SubmitBets: %v", err)
	}
	if key != "key-1" {
		t.Errorf("Idempotency-Key = %q", key)
	}
	if len(got.Tickets) != 1 || got.Tickets[0] != ticket {
		t.Errorf("tickets = %+v", got.Tickets)
	}
}

func TestMonthlyBalance_PathAndMissingDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/balance/2024/5" {
			t.Errorf("path = %s, want /api/balance/2024/5", r.URL.Path)
		}
		w.Write([]byte(`{"total_bet":1000,"total_return":800,"balance":-200}`))
	})

	summary, err := client.MonthlyBalance(context.Background(), 2024, 5)
	if err != nil {
		t.Fatalf("MonthlyBalance: %v", err)
	}
	if summary.Balance != -200 || summary.Details == nil || len(summary.Details) != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, 0).MonthlyBalance(context.Background(), 2024, 1)
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if Reason(err) != "network unreachable" {
		t.Errorf("reason = %q", Reason(err))
	}
}
