package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/amslabs/assethub.go/common"
	"github.com/amslabs/assethub.go/lib/ledger"
)

// ErrActionInFlight is returned when a second mutation is attempted on an
// asset whose previous mutation has not resolved yet. Other assets stay
// unaffected; the guard is scoped per asset.
var ErrActionInFlight = errors.New("an action for this asset is still in flight")

func (svc *AssethubService) beginAction(assetID string) error {
	svc.inflightMu.Lock()
	defer svc.inflightMu.Unlock()
	if svc.inflight[assetID] {
		return ErrActionInFlight
	}
	svc.inflight[assetID] = true
	return nil
}

func (svc *AssethubService) endAction(assetID string) {
	svc.inflightMu.Lock()
	delete(svc.inflight, assetID)
	svc.inflightMu.Unlock()
}

// InitiateTransfer proposes moving one of the caller's assets to newOwner
// and re-fetches the pending projection afterwards.
func (svc *AssethubService) InitiateTransfer(ctx context.Context, assetID, newOwner string) (*ledger.InitiateTransferResponse, error) {
	if newOwner == svc.Identity.UserID {
		return nil, &ledger.ForbiddenError{Reason: "cannot transfer an asset to yourself"}
	}
	if err := svc.beginAction(assetID); err != nil {
		return nil, err
	}
	defer svc.endAction(assetID)

	resp, err := svc.Ledger.InitiateTransfer(ctx, assetID, newOwner)
	svc.reconcile(ctx, err)
	if err != nil {
		return nil, err
	}
	svc.Logger.Info().Str("asset_id", assetID).Str("new_owner", newOwner).Msg("transfer initiated")
	return resp, nil
}

// ApproveTransfer signs a pending transfer as its recipient. Obvious dead
// ends are refused locally before any network traffic; the server remains
// the authority for everything else.
func (svc *AssethubService) ApproveTransfer(ctx context.Context, assetID string) (*ledger.TransferActionResponse, error) {
	if err := svc.checkActionable(assetID); err != nil {
		return nil, err
	}
	if err := svc.beginAction(assetID); err != nil {
		return nil, err
	}
	defer svc.endAction(assetID)

	resp, err := svc.Ledger.ApproveTransfer(ctx, assetID)
	svc.reconcile(ctx, err)
	if err != nil {
		return nil, err
	}
	svc.Logger.Info().Str("asset_id", assetID).Msg("transfer approved")
	return resp, nil
}

// RejectTransfer declines a pending transfer as its recipient. An empty
// reason is stored as a fixed placeholder so history never shows a blank.
func (svc *AssethubService) RejectTransfer(ctx context.Context, assetID, reason string) (*ledger.TransferActionResponse, error) {
	if reason == "" {
		reason = common.DefaultRejectionReason
	}
	if err := svc.checkActionable(assetID); err != nil {
		return nil, err
	}
	if err := svc.beginAction(assetID); err != nil {
		return nil, err
	}
	defer svc.endAction(assetID)

	resp, err := svc.Ledger.RejectTransfer(ctx, assetID, reason)
	svc.reconcile(ctx, err)
	if err != nil {
		return nil, err
	}
	svc.Logger.Info().Str("asset_id", assetID).Str("reason", reason).Msg("transfer rejected")
	return resp, nil
}

// checkActionable applies the display policy to a projected transfer before
// spending a round trip on a transition the server will refuse anyway. An
// asset missing from the projection is still sent through: the projection
// may simply be behind.
func (svc *AssethubService) checkActionable(assetID string) error {
	for _, view := range svc.Projector.Transfers() {
		if view.AssetID != assetID {
			continue
		}
		if view.EffectiveStatus == common.TransferStatusExpired {
			return &ledger.ExpiredError{Reason: "transfer request has expired"}
		}
		if !view.IsRecipient {
			return &ledger.ForbiddenError{Reason: fmt.Sprintf("only the recipient (%s) can act on this transfer", view.NewOwner)}
		}
		if view.HasSigned {
			return &ledger.AlreadyActedError{Reason: "you have already approved this transfer"}
		}
		return nil
	}
	return nil
}

// reconcile re-fetches the authoritative list after a mutation attempt. A
// successful mutation obviously changed it; a transport failure may have
// changed it too, since the request can land server-side after the client
// gives up. Only a definite server verdict leaves the projection as is.
func (svc *AssethubService) reconcile(ctx context.Context, actionErr error) {
	var transportErr *ledger.TransportError
	if actionErr == nil || errors.As(actionErr, &transportErr) {
		if err := svc.Projector.Refresh(ctx); err != nil {
			svc.Logger.Warn().Err(err).Msg("post-action reconcile failed, projection may be stale")
		}
	}
}
