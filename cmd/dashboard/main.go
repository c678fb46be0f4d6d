package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/amslabs/assethub.go/common"
	"github.com/amslabs/assethub.go/lib"
	"github.com/amslabs/assethub.go/lib/service"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func main() {
	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := lib.Logger(c.LogFilePath)

	// Setup exception tracking with Sentry if configured
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn: c.SentryDSN,
		}); err != nil {
			logger.Error().Err(err).Msg("sentry init error")
		}
		defer sentry.Flush(2 * time.Second)
	}

	svc, err := service.NewAssethubService(c, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error initializing dashboard service")
	}
	logger.Info().Str("user", svc.Identity.UserID).Str("ledger", c.LedgerUrl).Msg("session ready")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	args := os.Args[1:]
	command := "watch"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "watch":
		watch(ctx, svc)
	case "list":
		if err := svc.Projector.Refresh(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Error fetching pending transfers")
		}
		render(svc)
	case "initiate":
		if len(args) < 3 {
			log.Fatal("usage: dashboard initiate <asset-id> <new-owner>")
		}
		resp, err := svc.InitiateTransfer(ctx, args[1], args[2])
		exitOn(err)
		fmt.Println(resp.Message)
	case "approve":
		if len(args) < 2 {
			log.Fatal("usage: dashboard approve <asset-id>")
		}
		if err := svc.Projector.Refresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("could not prime projection before approval")
		}
		resp, err := svc.ApproveTransfer(ctx, args[1])
		exitOn(err)
		fmt.Println(resp.Message)
	case "reject":
		if len(args) < 2 {
			log.Fatal("usage: dashboard reject <asset-id> [reason]")
		}
		reason := strings.Join(args[2:], " ")
		if err := svc.Projector.Refresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("could not prime projection before rejection")
		}
		resp, err := svc.RejectTransfer(ctx, args[1], reason)
		exitOn(err)
		fmt.Println(resp.Message)
	default:
		log.Fatalf("unknown command %q (want watch, list, initiate, approve or reject)", command)
	}
}

// watch keeps the live projection on screen until interrupted.
func watch(ctx context.Context, svc *service.AssethubService) {
	svc.Start(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	var last []service.TransferView
	for {
		select {
		case <-sigs:
			return
		case <-ticker.C:
			views := svc.Projector.Transfers()
			if reflect.DeepEqual(views, last) {
				continue
			}
			last = views
			render(svc)
		}
	}
}

func render(svc *service.AssethubService) {
	views := svc.Projector.Transfers()
	fmt.Printf("\n%d transfer(s) awaiting your action\n", svc.Projector.Count())
	if len(views) == 0 {
		fmt.Println("no transfers involving you")
		return
	}
	for _, v := range views {
		role := "initiator"
		if v.IsRecipient {
			role = "recipient"
		}
		fmt.Printf("  %-12s %-24s %s -> %s  [%s] %d/2 signed, %s, you: %s\n",
			v.AssetID, v.AssetName, v.CurrentOwner, v.NewOwner,
			v.EffectiveStatus, v.ApprovalCount, formatRemaining(v), role)
	}
}

func formatRemaining(v service.TransferView) string {
	if v.EffectiveStatus != common.TransferStatusPending {
		return "-"
	}
	if v.Remaining <= 0 {
		return "expired"
	}
	hours := int(v.Remaining.Hours())
	minutes := int(v.Remaining.Minutes()) % 60
	if hours < 1 {
		return fmt.Sprintf("%dm remaining", minutes)
	}
	return fmt.Sprintf("%dh %dm remaining", hours, minutes)
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
