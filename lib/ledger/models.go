package ledger

import (
	"encoding/json"

	"github.com/amslabs/assethub.go/common"
)

// Transfer is the wire representation of a multi-signature asset transfer
// as reported by the ledger backend. All timestamps are seconds since epoch.
type Transfer struct {
	AssetID         string     `json:"asset_id"`
	AssetName       string     `json:"asset_name"`
	CurrentOwner    string     `json:"current_owner"`
	NewOwner        string     `json:"new_owner"`
	Status          string     `json:"status"`
	Approvals       []Approval `json:"approvals"`
	CreatedAt       int64      `json:"created_at"`
	ExpiresAt       int64      `json:"expires_at"`
	ExecutedAt      int64      `json:"executed_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// Approval is a single signature on a pending transfer. A transfer carries
// at most two: the initiator's auto-approval and the recipient's.
type Approval struct {
	Signer    string `json:"signer"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
	Comment   string `json:"comment,omitempty"`
}

func (t *Transfer) HasApprovalFrom(user string) bool {
	for _, a := range t.Approvals {
		if a.Signer == user {
			return true
		}
	}
	return false
}

// Expired reports whether a transfer that the server still holds as PENDING
// is past its deadline at the given clock reading. The server of record may
// lag behind; callers must treat an expired PENDING transfer as non-actionable.
func (t *Transfer) Expired(now int64) bool {
	return t.Status == common.TransferStatusPending && now > t.ExpiresAt
}

// PushEvent is a ledger-change notification from the push channel. Events
// carry no guaranteed payload beyond the type; consumers re-fetch
// authoritative state instead of trusting Data.
type PushEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
