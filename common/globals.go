package common

const (
	TransferStatusPending  = "PENDING"
	TransferStatusExecuted = "EXECUTED"
	TransferStatusRejected = "REJECTED"
	TransferStatusExpired  = "EXPIRED"

	ApprovalRoleCurrentOwner = "CURRENT_OWNER"
	ApprovalRoleNewOwner     = "NEW_OWNER"

	EventTypeCreated           = "CREATED"
	EventTypeUpdated           = "UPDATED"
	EventTypeTransferred       = "TRANSFERRED"
	EventTypeGrantAccess       = "GRANT_ACCESS"
	EventTypeRevokeAccess      = "REVOKE_ACCESS"
	EventTypeListed            = "LISTED"
	EventTypeDelisted          = "DELISTED"
	EventTypeCreditsMinted     = "CREDITS_MINTED"
	EventTypeTransferInitiated = "TRANSFER_INITIATED"
	EventTypeTransferApproved  = "TRANSFER_APPROVED"
	EventTypeTransferRejected  = "TRANSFER_REJECTED"

	// TransferTTLSeconds is how long a pending transfer stays approvable.
	TransferTTLSeconds = 86400

	// RequiredApprovals is the signature threshold that executes a transfer.
	RequiredApprovals = 2

	DefaultRejectionReason = "No reason provided"
)
