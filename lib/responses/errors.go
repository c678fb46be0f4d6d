package responses

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the ledger backend's error envelope: a single
// human-readable message under the "error" key.
type ErrorResponse struct {
	Error          string `json:"error"`
	HttpStatusCode int    `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          "bad auth",
	HttpStatusCode: 401,
}

var NotOwnerError = ErrorResponse{
	Error:          "only the asset owner can initiate a transfer",
	HttpStatusCode: 403,
}

var NotRecipientError = ErrorResponse{
	Error:          "only the recipient can act on this transfer",
	HttpStatusCode: 403,
}

var SelfTransferError = ErrorResponse{
	Error:          "cannot transfer an asset to yourself",
	HttpStatusCode: 400,
}

var TransferPendingExistsError = ErrorResponse{
	Error:          "a pending transfer already exists for this asset",
	HttpStatusCode: 409,
}

var AlreadyApprovedError = ErrorResponse{
	Error:          "you have already approved this transfer",
	HttpStatusCode: 409,
}

var TransferExpiredError = ErrorResponse{
	Error:          "transfer request has expired",
	HttpStatusCode: 410,
}

var TransferNotFoundError = ErrorResponse{
	Error:          "pending transfer not found for asset",
	HttpStatusCode: 404,
}

var AssetNotFoundError = ErrorResponse{
	Error:          "asset not found",
	HttpStatusCode: 404,
}

var TransferNotPendingError = ErrorResponse{
	Error:          "transfer is no longer pending",
	HttpStatusCode: 409,
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("UserID", c.Get("UserID"))
			hub.CaptureException(err)
		})
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, ErrorResponse{Error: fmt.Sprintf("%v", he.Message)})
	} else {
		c.JSON(http.StatusInternalServerError, GeneralServerError)
	}
}
