package service

import (
	"time"

	"github.com/amslabs/assethub.go/common"
	"github.com/amslabs/assethub.go/lib/ledger"
)

// TransferView is the display-ready projection of a transfer for one user.
// All views derive from the same pure function so no two consumers can
// disagree about what is actionable.
type TransferView struct {
	ledger.Transfer

	// EffectiveStatus folds client-observed expiry into the server status:
	// a PENDING transfer past its deadline reads as EXPIRED even while the
	// server of record has not swept it yet.
	EffectiveStatus string
	IsRecipient     bool
	HasSigned       bool
	ApprovalCount   int
	// Remaining is the time left to act, clamped to zero and floored to
	// whole minutes.
	Remaining time.Duration
	// Actionable is true when this user can still approve or reject.
	Actionable bool
}

// EffectiveStatus computes the status a client must act on at the given
// time. It never mutates anything; expiry on the server side is the
// server's own business.
func EffectiveStatus(t ledger.Transfer, now time.Time) string {
	if t.Expired(now.Unix()) {
		return common.TransferStatusExpired
	}
	return t.Status
}

// RemainingTime clamps the time left before expiry to zero and floors it to
// whole minutes.
func RemainingTime(t ledger.Transfer, now time.Time) time.Duration {
	remaining := time.Duration(t.ExpiresAt-now.Unix()) * time.Second
	if remaining < 0 {
		remaining = 0
	}
	return remaining.Truncate(time.Minute)
}

// NewTransferView derives the per-user display fields from a raw transfer.
func NewTransferView(t ledger.Transfer, user string, now time.Time) TransferView {
	status := EffectiveStatus(t, now)
	isRecipient := t.NewOwner == user
	hasSigned := t.HasApprovalFrom(user)
	return TransferView{
		Transfer:        t,
		EffectiveStatus: status,
		IsRecipient:     isRecipient,
		HasSigned:       hasSigned,
		ApprovalCount:   len(t.Approvals),
		Remaining:       RemainingTime(t, now),
		Actionable:      status == common.TransferStatusPending && isRecipient && !hasSigned,
	}
}
