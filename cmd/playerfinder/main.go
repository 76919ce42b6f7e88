package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/courtlink/playerfinder/internal/app"
	"github.com/courtlink/playerfinder/internal/finder"
	"github.com/courtlink/playerfinder/internal/gateway"
	"github.com/courtlink/playerfinder/internal/services"
	"github.com/courtlink/playerfinder/pkg/logger"
)

const usage = `playerfinder - player-finder invitation client

Usage:
  playerfinder [flags] <command> [command flags]

Commands:
  dashboard  -user <id>                     upcoming requests, soonest first
  incoming   -user <id>                     all invitations addressed to you
  history    -user <id>                     expired requests grouped by day
  sent       -email <addr>                  requests you organised
  show       -request <id>                  one request in detail
  accept     -request <id> -user <id> [-comment <text>]
  decline    -request <id> -user <id> [-comment <text>]
  cancel     -request <id> -user <id> [-comment <text>]
  withdraw   -request <id> -organizer <id> [-comment <text>]

Flags:
  -config <path>   configuration directory
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("playerfinder", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() { fmt.Print(usage) }

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("a command is required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureConsoleLogging(cfg.Client.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	client, err := gateway.New(gateway.Config{
		BaseURL: cfg.Client.BaseURL,
		Token:   cfg.Client.Token,
		Timeout: cfg.Client.Timeout,
	}, gateway.WithRetry(cfg.Client.RetryMax, cfg.Client.RetryInterval))
	if err != nil {
		return err
	}

	svc, err := services.NewFinderService(client)
	if err != nil {
		return err
	}

	command := fs.Arg(0)
	rest := fs.Args()[1:]

	switch command {
	case "dashboard":
		return runDashboard(ctx, svc, rest)
	case "incoming":
		return runIncoming(ctx, svc, rest)
	case "history":
		return runHistory(ctx, svc, rest)
	case "sent":
		return runSent(ctx, svc, rest)
	case "show":
		return runShow(ctx, svc, rest)
	case "accept", "decline", "cancel":
		return runRespond(ctx, svc, command, rest)
	case "withdraw":
		return runWithdraw(ctx, svc, rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func loadConfig(path string) (*app.Config, error) {
	if strings.TrimSpace(path) == "" {
		return app.LoadConfig()
	}
	return app.LoadConfig(path)
}

func runDashboard(ctx context.Context, svc *services.FinderService, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	user := fs.String("user", "", "your user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("dashboard: -user is required")
	}

	views, err := svc.Dashboard(ctx, *user)
	if err != nil {
		return err
	}

	if len(views) == 0 {
		fmt.Println("No upcoming games.")
		return nil
	}
	for _, view := range views {
		printRequestLine(view)
	}
	return nil
}

func runIncoming(ctx context.Context, svc *services.FinderService, args []string) error {
	fs := flag.NewFlagSet("incoming", flag.ContinueOnError)
	user := fs.String("user", "", "your user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("incoming: -user is required")
	}

	views, err := svc.Incoming(ctx, *user)
	if err != nil {
		return err
	}

	for _, view := range views {
		flags := make([]string, 0, 2)
		if view.ReminderDue {
			flags = append(flags, "reminder due")
		}
		if view.PastCancelThreshold {
			flags = append(flags, "past cancel threshold")
		}
		note := ""
		if len(flags) > 0 {
			note = "  [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Printf("%s  %s  %s  %s%s\n",
			view.Row.RequestID,
			view.Row.PlayTime.String(),
			view.Row.Status,
			quorumLabel(view.Quorum),
			note)
	}
	return nil
}

func runHistory(ctx context.Context, svc *services.FinderService, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	user := fs.String("user", "", "your user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("history: -user is required")
	}

	groups, err := svc.History(ctx, *user)
	if err != nil {
		return err
	}

	if len(groups) == 0 {
		fmt.Println("No past games.")
		return nil
	}
	for _, group := range groups {
		fmt.Println(group.Date.Format("Mon 2 Jan 2006"))
		for _, view := range group.Requests {
			fmt.Print("  ")
			printRequestLine(view)
		}
	}
	return nil
}

func runSent(ctx context.Context, svc *services.FinderService, args []string) error {
	fs := flag.NewFlagSet("sent", flag.ContinueOnError)
	email := fs.String("email", "", "your organizer email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("sent: -email is required")
	}

	views, err := svc.SentOverview(ctx, *email)
	if err != nil {
		return err
	}

	if len(views) == 0 {
		fmt.Println("No sent requests.")
		return nil
	}
	for _, view := range views {
		printRequestLine(view)
	}
	return nil
}

func runShow(ctx context.Context, svc *services.FinderService, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	request := fs.String("request", "", "request id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *request == "" {
		return errors.New("show: -request is required")
	}

	view, err := svc.RequestDetail(ctx, *request)
	if err != nil {
		return err
	}

	printRequestDetail(*view)
	return nil
}

func runRespond(ctx context.Context, svc *services.FinderService, action string, args []string) error {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	request := fs.String("request", "", "request id")
	user := fs.String("user", "", "your user id")
	comment := fs.String("comment", "", "optional comment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *request == "" || *user == "" {
		return fmt.Errorf("%s: -request and -user are required", action)
	}

	var view *services.RequestView
	var err error
	switch action {
	case "accept":
		view, err = svc.Accept(ctx, *request, *user, *comment)
	case "decline":
		view, err = svc.Decline(ctx, *request, *user, *comment)
	case "cancel":
		view, err = svc.CancelAcceptance(ctx, *request, *user, *comment)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%sed.\n", strings.TrimSuffix(action, "e"))
	printRequestDetail(*view)
	return nil
}

func runWithdraw(ctx context.Context, svc *services.FinderService, args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	request := fs.String("request", "", "request id")
	organizer := fs.String("organizer", "", "your organizer id")
	comment := fs.String("comment", "", "optional comment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *request == "" || *organizer == "" {
		return errors.New("withdraw: -request and -organizer are required")
	}

	view, err := svc.Withdraw(ctx, *request, *organizer, *comment)
	if err != nil {
		return err
	}

	fmt.Println("Withdrawn.")
	printRequestDetail(*view)
	return nil
}

func printRequestLine(view services.RequestView) {
	req := view.Request
	fmt.Printf("%s  %s  court %d  %s\n",
		req.RequestID,
		req.PlayTime.String(),
		req.PlaceToPlay,
		quorumLabel(view.Quorum))
}

func printRequestDetail(view services.RequestView) {
	req := view.Request
	fmt.Printf("Request %s\n", req.RequestID)
	fmt.Printf("  Organizer: %s\n", req.OrganizerName)
	fmt.Printf("  Court %d, %s to %s\n", req.PlaceToPlay, req.PlayTime.String(), req.PlayEndTime.String())
	fmt.Printf("  Players: %s", quorumLabel(view.Quorum))
	if view.Phase == finder.PhaseExpired {
		fmt.Print("  (expired)")
	}
	fmt.Println()
	if len(view.Inconsistent) > 0 {
		fmt.Printf("  Warning: invitee rows disagree on %s\n", strings.Join(view.Inconsistent, ", "))
	}
	for _, invitee := range req.Invitees {
		line := fmt.Sprintf("  - %s: %s", invitee.InviteeName, invitee.Status)
		if invitee.Comment != "" {
			line += fmt.Sprintf(" (%q)", invitee.Comment)
		}
		fmt.Println(line)
	}
}

func quorumLabel(q finder.Quorum) string {
	if q.Status == finder.RequestFull {
		return fmt.Sprintf("FULL (%d/%d)", q.AcceptedCount, q.TotalSlots)
	}
	return fmt.Sprintf("%d/%d, %d more needed", q.AcceptedCount, q.TotalSlots, q.Remaining)
}
