package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/avvvet/ticket-services/internal/acquire"
	"github.com/avvvet/ticket-services/internal/liff"
	"github.com/avvvet/ticket-services/internal/models"
	"github.com/charmbracelet/x/ansi"
)

func TestConsoleScanSkipsBlankLines(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("\n  \nQR-1\n"), &out, true)

	res, err := c.ScanCode(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != "QR-1" {
		t.Fatalf("value = %q", res.Value)
	}
	if _, err := c.ScanCode(context.Background()); err != io.EOF {
		t.Fatalf("err at end of input = %v, want io.EOF", err)
	}
}

func TestConsoleConfirm(t *testing.T) {
	c := NewConsole(strings.NewReader("y\nn\nはい\n"), io.Discard, true)
	ctx := context.Background()
	for i, want := range []bool{true, false, true, false} {
		got, err := c.Confirm(ctx, "ok?")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("answer %d = %v, want %v", i, got, want)
		}
	}
}

func TestGateRejectsNonInteractiveScan(t *testing.T) {
	c := NewConsole(strings.NewReader("QR-1\n"), io.Discard, false)
	if _, err := liff.NewGate(c).ScanCode(context.Background()); err != liff.ErrUnsupported {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestConsoleNotify(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out, true)
	ctx := context.Background()

	c.Notify(ctx, acquire.Notice{Level: acquire.LevelInfo, Kind: acquire.KindState})
	if out.Len() != 0 {
		t.Fatalf("state notice printed %q", out.String())
	}

	ticket := &models.ParsedTicket{PlaceCode: "05", RaceNum: 11, BetType: "9", BuyDetails: "1-2-3", Amount: 1200}
	c.Notify(ctx, acquire.Notice{Level: acquire.LevelInfo, Kind: acquire.KindParsed, Message: "読み取りました", Ticket: ticket})

	got := ansi.Strip(out.String())
	for _, want := range []string{"読み取りました", "東京 11R 3連単 1-2-3 1,200円"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}
