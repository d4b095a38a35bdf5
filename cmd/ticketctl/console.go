package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/avvvet/ticket-services/internal/acquire"
	"github.com/avvvet/ticket-services/internal/dashboard"
	"github.com/avvvet/ticket-services/internal/liff"
	"github.com/avvvet/ticket-services/internal/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Console is the terminal stand-in for the LINE client. Codes arrive as
// lines on the input, typically from a keyboard-wedge scanner.
type Console struct {
	out         io.Writer
	interactive bool
	theme       dashboard.Theme
	lines       chan string
}

func NewConsole(in io.Reader, out io.Writer, interactive bool) *Console {
	c := &Console{
		out:         out,
		interactive: interactive,
		theme:       dashboard.DefaultTheme,
		lines:       make(chan string),
	}
	go c.read(in)
	return c
}

func (c *Console) read(in io.Reader) {
	defer close(c.lines)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		c.lines <- strings.TrimSpace(scanner.Text())
	}
}

// Line returns the next input line. It fails with io.EOF once the input is
// exhausted.
func (c *Console) Line(ctx context.Context) (string, error) {
	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Console) Init(ctx context.Context) error { return nil }

func (c *Console) IsLoggedIn() bool { return true }

func (c *Console) Login(ctx context.Context) error { return nil }

// IsInClient reports whether a person is at the terminal to operate the
// scanner.
func (c *Console) IsInClient() bool { return c.interactive }

func (c *Console) ScanCode(ctx context.Context) (liff.ScanResult, error) {
	fmt.Fprint(c.out, "QRコードを読み取ってください > ")
	for {
		line, err := c.Line(ctx)
		if err != nil {
			return liff.ScanResult{}, err
		}
		if line != "" {
			return liff.ScanResult{Value: line}, nil
		}
	}
}

func (c *Console) Confirm(ctx context.Context, message string) (bool, error) {
	fmt.Fprintf(c.out, "%s [y/N] ", message)
	line, err := c.Line(ctx)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes", "はい":
		return true, nil
	}
	return false, nil
}

func (c *Console) Notify(ctx context.Context, n acquire.Notice) {
	switch n.Kind {
	case acquire.KindState:
		return
	case acquire.KindCameraStop:
		fmt.Fprintln(c.out, c.faint("読み取り完了、カメラを停止しました"))
		return
	}

	if n.Message != "" {
		style := lipgloss.NewStyle().Bold(true)
		if n.Level == acquire.LevelError {
			style = style.Foreground(c.theme.Loss)
		} else {
			style = style.Foreground(c.theme.Win)
		}
		fmt.Fprintln(c.out, style.Render(n.Message))
	}
	if n.Ticket != nil {
		fmt.Fprintln(c.out, FormatTicket(*n.Ticket))
	}
}

func (c *Console) faint(s string) string {
	return lipgloss.NewStyle().Foreground(c.theme.Faint).Render(s)
}

// FormatTicket describes a ticket the way the confirmation card shows it.
func FormatTicket(t models.ParsedTicket) string {
	return fmt.Sprintf("%s %dR %s %s %s円",
		models.PlaceName(t.PlaceCode), t.RaceNum, models.BetTypeName(t.BetType), t.BuyDetails, humanize.Comma(int64(t.Amount)))
}
