package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Client is a thin typed wrapper over the ledger backend's transfer API.
// Every call carries the session's bearer credential; transport failures are
// reported as *TransportError so callers know the outcome is undecided.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger

	validate *validator.Validate
}

func NewClient(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		validate: validator.New(),
	}
}

type InitiateTransferRequest struct {
	AssetID  string `json:"asset_id" validate:"required"`
	NewOwner string `json:"new_owner" validate:"required"`
}

type InitiateTransferResponse struct {
	Message        string `json:"message"`
	AssetID        string `json:"asset_id"`
	Status         string `json:"status"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

type TransferActionResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type rejectTransferRequest struct {
	Reason string `json:"reason"`
}

// InitiateTransfer proposes moving an asset to newOwner. The backend rejects
// it with 403 when the caller is not the owner and 409 when a pending
// transfer already exists for the asset.
func (c *Client) InitiateTransfer(ctx context.Context, assetID, newOwner string) (*InitiateTransferResponse, error) {
	req := &InitiateTransferRequest{AssetID: assetID, NewOwner: newOwner}
	if err := c.validate.Struct(req); err != nil {
		return nil, err
	}
	resp := &InitiateTransferResponse{}
	if err := c.do(ctx, "initiate", http.MethodPost, "/transfers/initiate", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListPendingTransfers returns the transfers involving the caller, as
// initiator or recipient. The list is the authoritative state; push events
// only hint that it changed.
func (c *Client) ListPendingTransfers(ctx context.Context) ([]Transfer, error) {
	transfers := []Transfer{}
	if err := c.do(ctx, "list", http.MethodGet, "/transfers/pending", nil, &transfers); err != nil {
		return nil, err
	}
	return transfers, nil
}

// GetTransfer fetches the transfer record for a single asset, terminal
// states included.
func (c *Client) GetTransfer(ctx context.Context, assetID string) (*Transfer, error) {
	transfer := &Transfer{}
	if err := c.do(ctx, "get", http.MethodGet, "/transfers/"+assetID, nil, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}

// ApproveTransfer adds the caller's signature. On the second signature the
// backend executes the transfer and flips ownership atomically.
func (c *Client) ApproveTransfer(ctx context.Context, assetID string) (*TransferActionResponse, error) {
	resp := &TransferActionResponse{}
	if err := c.do(ctx, "approve", http.MethodPost, "/transfers/"+assetID+"/approve", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RejectTransfer declines a pending transfer, recording the reason.
func (c *Client) RejectTransfer(ctx context.Context, assetID, reason string) (*TransferActionResponse, error) {
	resp := &TransferActionResponse{}
	req := &rejectTransferRequest{Reason: reason}
	if err := c.do(ctx, "reject", http.MethodPost, "/transfers/"+assetID+"/reject", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var payload *bytes.Buffer
	if body != nil {
		payload = new(bytes.Buffer)
		if err := json.NewEncoder(payload).Encode(body); err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
	}
	var req *http.Request
	var err error
	if payload != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 300 {
		var body errorBody
		// an unparseable error body still maps on the status code alone
		_ = json.NewDecoder(httpResp.Body).Decode(&body)
		err := apiError(op, httpResp.StatusCode, body.Error)
		c.logger.Warn().Err(err).Str("op", op).Int("status", httpResp.StatusCode).Msg("ledger call failed")
		return err
	}
	if out != nil {
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}
	return nil
}
