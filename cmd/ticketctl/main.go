// ticketctl drives the ticket flows from a terminal: the monthly balance
// dashboard, QR scanning with a keyboard-wedge scanner, photo upload and
// manual entry. It talks to the ticket backend directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/avvvet/ticket-services/internal/acquire"
	"github.com/avvvet/ticket-services/internal/backend"
	"github.com/avvvet/ticket-services/internal/dashboard"
	"github.com/avvvet/ticket-services/internal/liff"
	"github.com/avvvet/ticket-services/internal/models"
	"github.com/avvvet/ticket-services/internal/ticketsvc/service"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const defaultBackendURL = "http://localhost:8000"

func main() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, acquire.ErrDeclined) {
			fmt.Fprintln(os.Stderr, "cancelled")
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	client  *backend.Client
	console *Console
	out     io.Writer
}

func run(ctx context.Context, args []string, in *os.File, out io.Writer) error {
	var backendURL string
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("ticketctl", pflag.ContinueOnError)
	flagSet.StringVar(&backendURL, "backend", envOr("TICKET_BACKEND_URL", defaultBackendURL), "ticket backend base URL")
	flagSet.DurationVar(&timeout, "timeout", 0, "backend request timeout (0 = none)")
	flagSet.SetInterspersed(false)
	flagSet.Usage = func() { printUsage(flagSet) }
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(flagSet)
		return errors.New("missing command")
	}

	a := &app{
		client:  backend.NewClient(backendURL, timeout),
		console: NewConsole(in, out, term.IsTerminal(int(in.Fd()))),
		out:     out,
	}

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "dashboard":
		return a.dashboard(ctx, cmdArgs)
	case "scan":
		return a.scan(ctx)
	case "camera":
		return a.camera(ctx)
	case "upload":
		return a.upload(ctx, cmdArgs)
	case "add":
		return a.add(ctx, cmdArgs)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (a *app) controller() *acquire.Controller {
	return acquire.NewController(acquire.Deps{
		SessionID: uuid.NewString(),
		Backend:   a.client,
		Scanner:   liff.NewGate(a.console),
		Prompter:  a.console,
		Notifier:  a.console,
	})
}

func (a *app) dashboard(ctx context.Context, args []string) error {
	var month string
	var text bool
	flagSet := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
	flagSet.StringVar(&month, "month", "", "month to show as YYYY-MM (default: current month)")
	flagSet.BoolVar(&text, "text", false, "print the one-line summary only")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	year, m := dashboard.CurrentMonth(time.Now())
	if month != "" {
		var err error
		if year, m, err = dashboard.ParseMonth(month); err != nil {
			return err
		}
	}

	if text {
		summary, err := a.client.MonthlyBalance(ctx, year, m)
		if err != nil {
			return fmt.Errorf("データの取得に失敗しました: %s", backend.Reason(err))
		}
		fmt.Fprintln(a.out, dashboard.Headline(summary, year, m))
		return nil
	}

	view, err := service.NewDashboardService(a.client).Load(ctx, year, m)
	if err != nil {
		return fmt.Errorf("データの取得に失敗しました: %s", backend.Reason(err))
	}
	fmt.Fprintln(a.out, dashboard.RenderTerminal(view, dashboard.DefaultTheme))
	return nil
}

func (a *app) scan(ctx context.Context) error {
	ctrl := a.controller()
	if _, err := ctrl.ScanNative(ctx); err != nil {
		return err
	}
	return ctrl.Submit(ctx)
}

// camera reads codes until two distinct ones are held. Input ending early
// stops the camera and discards the codes.
func (a *app) camera(ctx context.Context) error {
	ctrl := a.controller()
	if err := ctrl.StartCamera(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "QRコードを入力してください (2枚)")

	for {
		code, err := a.console.Line(ctx)
		if err != nil {
			ctrl.StopCamera(ctx)
			if err == io.EOF {
				return errors.New("input ended before two codes were read")
			}
			return err
		}
		if code == "" {
			continue
		}
		ready, err := ctrl.CameraCode(ctx, code)
		if err != nil {
			return err
		}
		if ready {
			break
		}
	}

	if _, err := ctrl.ParseCollected(ctx); err != nil {
		return err
	}
	return ctrl.Submit(ctx)
}

func (a *app) upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: ticketctl upload FILE")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	ctrl := a.controller()
	if _, err := ctrl.Upload(ctx, f.Name(), f); err != nil {
		return err
	}
	return ctrl.Submit(ctx)
}

func (a *app) add(ctx context.Context, args []string) error {
	var t models.ParsedTicket
	flagSet := pflag.NewFlagSet("add", pflag.ContinueOnError)
	flagSet.StringVar(&t.PlaceCode, "place", "", "racecourse code (01 札幌 ... 10 小倉)")
	flagSet.IntVar(&t.RaceNum, "race", 0, "race number (1-12)")
	flagSet.StringVar(&t.BetType, "type", "", "bet type code (1 単勝 ... 9 3連単)")
	flagSet.StringVar(&t.BuyDetails, "details", "", "horse or bracket numbers")
	flagSet.IntVar(&t.Amount, "amount", 0, "amount in yen")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	fmt.Fprintln(a.out, FormatTicket(t))
	return a.controller().SubmitManual(ctx, t)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ticketctl - betting ticket scanner and balance dashboard

Usage:
  ticketctl [flags] dashboard [--month YYYY-MM] [--text]
  ticketctl [flags] scan
  ticketctl [flags] camera
  ticketctl [flags] upload FILE
  ticketctl [flags] add --place 05 --race 11 --type 1 --details 7 --amount 100

Flags:
%s`, flagSet.FlagUsages())
}
