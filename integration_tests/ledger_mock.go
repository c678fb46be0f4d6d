package integration_tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/amslabs/assethub.go/common"
	"github.com/amslabs/assethub.go/lib"
	"github.com/amslabs/assethub.go/lib/ledger"
	"github.com/amslabs/assethub.go/lib/responses"
	"github.com/amslabs/assethub.go/lib/tokens"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/random"
	"github.com/rs/zerolog"
	"github.com/ziflex/lecho/v3"
)

// mockLedger is an in-memory stand-in for the ledger backend: the four
// transfer endpoints, the single-transfer lookup and the websocket push
// channel, with the same status codes and error envelope the real backend
// uses. Its clock can be skewed to age transfers.
type mockLedger struct {
	mu        sync.Mutex
	secret    []byte
	skew      time.Duration
	assets    map[string]*mockAsset
	transfers map[string]*ledger.Transfer
	hub       *eventHub

	echo   *echo.Echo
	server *httptest.Server
}

type mockAsset struct {
	ID    string
	Name  string
	Owner string
}

func newMockLedger(secret []byte) *mockLedger {
	ml := &mockLedger{
		secret:    secret,
		assets:    make(map[string]*mockAsset),
		transfers: make(map[string]*ledger.Transfer),
		hub:       newEventHub(),
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger = lecho.From(zerolog.Nop())
	e.HTTPErrorHandler = responses.HTTPErrorHandler
	e.Validator = &lib.CustomValidator{Validator: validator.New()}

	e.GET("/ws", ml.handleWebsocket)

	protected := e.Group("", tokens.Middleware(secret))
	protected.POST("/transfers/initiate", ml.handleInitiate)
	protected.GET("/transfers/pending", ml.handleListPending)
	protected.GET("/transfers/:assetId", ml.handleGetTransfer)
	protected.POST("/transfers/:assetId/approve", ml.handleApprove)
	protected.POST("/transfers/:assetId/reject", ml.handleReject)

	ml.echo = e
	ml.server = httptest.NewServer(e)
	return ml
}

func (ml *mockLedger) URL() string { return ml.server.URL }

func (ml *mockLedger) WsURL() string {
	return "ws" + strings.TrimPrefix(ml.server.URL, "http") + "/ws"
}

func (ml *mockLedger) Close() {
	ml.hub.closeAll()
	ml.server.Close()
}

// setSkew shifts the backend's clock, e.g. -25h makes new transfers look a
// day old to everyone else.
func (ml *mockLedger) setSkew(d time.Duration) {
	ml.mu.Lock()
	ml.skew = d
	ml.mu.Unlock()
}

func (ml *mockLedger) now() int64 {
	return time.Now().Add(ml.skew).Unix()
}

func (ml *mockLedger) addAsset(id, name, owner string) {
	ml.mu.Lock()
	ml.assets[id] = &mockAsset{ID: id, Name: name, Owner: owner}
	ml.mu.Unlock()
}

func (ml *mockLedger) assetOwner(id string) string {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if a, ok := ml.assets[id]; ok {
		return a.Owner
	}
	return ""
}

func (ml *mockLedger) token(userID, role string) string {
	t, err := tokens.GenerateAccessToken(ml.secret, 3600, userID, role)
	if err != nil {
		panic(err)
	}
	return t
}

func errJSON(c echo.Context, resp responses.ErrorResponse) error {
	return c.JSON(resp.HttpStatusCode, resp)
}

func (ml *mockLedger) handleInitiate(c echo.Context) error {
	userID := c.Get("UserID").(string)
	req := &ledger.InitiateTransferRequest{}
	if err := c.Bind(req); err != nil {
		return errJSON(c, responses.BadArgumentsError)
	}
	if err := c.Validate(req); err != nil {
		return errJSON(c, responses.BadArgumentsError)
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	asset, ok := ml.assets[req.AssetID]
	if !ok {
		return errJSON(c, responses.AssetNotFoundError)
	}
	if asset.Owner != userID {
		return errJSON(c, responses.NotOwnerError)
	}
	if req.NewOwner == userID {
		return errJSON(c, responses.SelfTransferError)
	}
	if existing, ok := ml.transfers[req.AssetID]; ok && existing.Status == common.TransferStatusPending {
		return errJSON(c, responses.TransferPendingExistsError)
	}

	now := ml.now()
	transfer := &ledger.Transfer{
		AssetID:      req.AssetID,
		AssetName:    asset.Name,
		CurrentOwner: userID,
		NewOwner:     req.NewOwner,
		Status:       common.TransferStatusPending,
		Approvals: []ledger.Approval{
			{
				Signer:    userID,
				Role:      common.ApprovalRoleCurrentOwner,
				Timestamp: now,
				Comment:   "Initiated transfer",
			},
		},
		CreatedAt: now,
		ExpiresAt: now + common.TransferTTLSeconds,
	}
	ml.transfers[req.AssetID] = transfer

	ml.hub.broadcast(common.EventTypeTransferInitiated, transfer)

	return c.JSON(http.StatusOK, &ledger.InitiateTransferResponse{
		Message:        "Transfer initiated on blockchain. Awaiting recipient approval.",
		AssetID:        req.AssetID,
		Status:         common.TransferStatusPending,
		ExpiresInHours: 24,
	})
}

func (ml *mockLedger) handleListPending(c echo.Context) error {
	userID := c.Get("UserID").(string)

	ml.mu.Lock()
	defer ml.mu.Unlock()

	result := []ledger.Transfer{}
	for _, t := range ml.transfers {
		if t.CurrentOwner == userID || t.NewOwner == userID {
			result = append(result, *t)
		}
	}
	return c.JSON(http.StatusOK, result)
}

func (ml *mockLedger) handleGetTransfer(c echo.Context) error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	t, ok := ml.transfers[c.Param("assetId")]
	if !ok {
		return errJSON(c, responses.TransferNotFoundError)
	}
	return c.JSON(http.StatusOK, t)
}

func (ml *mockLedger) handleApprove(c echo.Context) error {
	userID := c.Get("UserID").(string)
	assetID := c.Param("assetId")

	ml.mu.Lock()
	defer ml.mu.Unlock()

	t, ok := ml.transfers[assetID]
	if !ok {
		return errJSON(c, responses.TransferNotFoundError)
	}

	now := ml.now()
	if t.Status == common.TransferStatusPending && now > t.ExpiresAt {
		// lazy sweep: the deadline is only enforced when someone trips
		// over it
		t.Status = common.TransferStatusExpired
		return errJSON(c, responses.TransferExpiredError)
	}
	if t.Status != common.TransferStatusPending {
		return errJSON(c, responses.TransferNotPendingError)
	}
	if userID != t.NewOwner {
		return errJSON(c, responses.NotRecipientError)
	}
	if t.HasApprovalFrom(userID) {
		return errJSON(c, responses.AlreadyApprovedError)
	}

	t.Approvals = append(t.Approvals, ledger.Approval{
		Signer:    userID,
		Role:      common.ApprovalRoleNewOwner,
		Timestamp: now,
		Comment:   "Approved transfer",
	})

	if len(t.Approvals) >= common.RequiredApprovals {
		asset, ok := ml.assets[assetID]
		if !ok {
			return errJSON(c, responses.AssetNotFoundError)
		}
		asset.Owner = t.NewOwner
		t.Status = common.TransferStatusExecuted
		t.ExecutedAt = now
		ml.hub.broadcast(common.EventTypeTransferred, asset)
	}
	ml.hub.broadcast(common.EventTypeTransferApproved, t)

	return c.JSON(http.StatusOK, &ledger.TransferActionResponse{
		Message: "Transfer approved successfully",
		Status:  "APPROVED",
	})
}

func (ml *mockLedger) handleReject(c echo.Context) error {
	userID := c.Get("UserID").(string)
	assetID := c.Param("assetId")

	req := struct {
		Reason string `json:"reason"`
	}{}
	if err := c.Bind(&req); err != nil {
		return errJSON(c, responses.BadArgumentsError)
	}
	if req.Reason == "" {
		req.Reason = common.DefaultRejectionReason
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	t, ok := ml.transfers[assetID]
	if !ok {
		return errJSON(c, responses.TransferNotFoundError)
	}
	if t.Status != common.TransferStatusPending {
		return errJSON(c, responses.TransferNotPendingError)
	}
	if userID != t.NewOwner {
		return errJSON(c, responses.NotRecipientError)
	}

	t.Status = common.TransferStatusRejected
	t.RejectionReason = req.Reason
	ml.hub.broadcast(common.EventTypeTransferRejected, t)

	return c.JSON(http.StatusOK, &ledger.TransferActionResponse{
		Message: "Transfer rejected successfully",
		Status:  common.TransferStatusRejected,
	})
}

func (ml *mockLedger) handleWebsocket(c echo.Context) error {
	upgrader := websocket.Upgrader{}
	upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	ml.hub.add(ws)
	// drain control frames until the peer goes away
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			ml.hub.remove(ws)
			return nil
		}
	}
}

// eventHub broadcasts {type,data} frames to every connected client.
type eventHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newEventHub() *eventHub {
	return &eventHub{conns: make(map[*websocket.Conn]bool)}
}

func (h *eventHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
}

func (h *eventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[conn] {
		delete(h.conns, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

func (h *eventHub) broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type":  eventType,
		"data":  data,
		"tx_id": random.String(12, random.Hex),
	})
	if err != nil {
		return
	}
	h.broadcastRaw(payload)
}

func (h *eventHub) broadcastRaw(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
