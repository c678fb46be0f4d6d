package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/amslabs/assethub.go/common"
	"github.com/amslabs/assethub.go/lib/ledger"
	"github.com/amslabs/assethub.go/lib/tokens"
	"github.com/rs/zerolog"
)

// TransferLedger is the backend surface the service depends on. The
// concrete implementation is ledger.Client; tests substitute fakes.
type TransferLedger interface {
	InitiateTransfer(ctx context.Context, assetID, newOwner string) (*ledger.InitiateTransferResponse, error)
	ListPendingTransfers(ctx context.Context) ([]ledger.Transfer, error)
	GetTransfer(ctx context.Context, assetID string) (*ledger.Transfer, error)
	ApproveTransfer(ctx context.Context, assetID string) (*ledger.TransferActionResponse, error)
	RejectTransfer(ctx context.Context, assetID, reason string) (*ledger.TransferActionResponse, error)
}

// AssethubService ties one user session together: the ledger client, the
// push-event bridge and the pending-transfer projector.
type AssethubService struct {
	Config    *Config
	Logger    zerolog.Logger
	Identity  *tokens.Claims
	Ledger    TransferLedger
	Pubsub    *Pubsub
	Bridge    *EventBridge
	Projector *TransferProjector

	inflightMu sync.Mutex
	inflight   map[string]bool
}

func NewAssethubService(c *Config, logger zerolog.Logger) (*AssethubService, error) {
	identity, err := tokens.ParseIdentity(c.AccessToken)
	if err != nil {
		return nil, err
	}

	client := ledger.NewClient(c.LedgerUrl, c.AccessToken, time.Duration(c.HTTPTimeoutSeconds)*time.Second, logger)
	pubsub := NewPubsub()

	wsUrl := c.LedgerWsUrl
	if wsUrl == "" {
		wsUrl = strings.Replace(c.LedgerUrl, "http", "ws", 1) + "/ws"
	}
	bridge := NewEventBridge(wsUrl, c.AccessToken, time.Duration(c.ReconnectBackoffSeconds)*time.Second, pubsub, logger)
	projector := NewTransferProjector(client, identity.UserID, time.Duration(c.RefreshIntervalSeconds)*time.Second, logger)

	return &AssethubService{
		Config:    c,
		Logger:    logger,
		Identity:  identity,
		Ledger:    client,
		Pubsub:    pubsub,
		Bridge:    bridge,
		Projector: projector,
		inflight:  make(map[string]bool),
	}, nil
}

// Start runs the bridge, the invalidation subscription and the projector
// until ctx is cancelled.
func (svc *AssethubService) Start(ctx context.Context) {
	go svc.Bridge.Start(ctx)
	go svc.StartTransferInvalidation(ctx)
	go svc.Projector.Run(ctx)
}

// StartTransferInvalidation forwards transfer push events to the projector
// as re-fetch hints. Payloads are deliberately ignored: the fetch that
// follows is the source of truth.
func (svc *AssethubService) StartTransferInvalidation(ctx context.Context) {
	initiated := make(chan ledger.PushEvent, 1)
	approved := make(chan ledger.PushEvent, 1)
	rejected := make(chan ledger.PushEvent, 1)
	initiatedSub := svc.Pubsub.Subscribe(common.EventTypeTransferInitiated, initiated)
	approvedSub := svc.Pubsub.Subscribe(common.EventTypeTransferApproved, approved)
	rejectedSub := svc.Pubsub.Subscribe(common.EventTypeTransferRejected, rejected)
	defer svc.Pubsub.Unsubscribe(initiatedSub, common.EventTypeTransferInitiated)
	defer svc.Pubsub.Unsubscribe(approvedSub, common.EventTypeTransferApproved)
	defer svc.Pubsub.Unsubscribe(rejectedSub, common.EventTypeTransferRejected)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-initiated:
			svc.Logger.Debug().Str("type", event.Type).Msg("transfer event, invalidating projection")
			svc.Projector.Invalidate()
		case event := <-approved:
			svc.Logger.Debug().Str("type", event.Type).Msg("transfer event, invalidating projection")
			svc.Projector.Invalidate()
		case event := <-rejected:
			svc.Logger.Debug().Str("type", event.Type).Msg("transfer event, invalidating projection")
			svc.Projector.Invalidate()
		}
	}
}
