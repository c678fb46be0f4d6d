package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/amslabs/assethub.go/common"
	"github.com/amslabs/assethub.go/lib/ledger"
	"github.com/amslabs/assethub.go/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ExpiryTestSuite struct {
	suite.Suite
	ledger *mockLedger
	alice  *service.AssethubService
	bob    *service.AssethubService
}

func (suite *ExpiryTestSuite) SetupTest() {
	suite.ledger = newMockLedger(testSecret)
	suite.ledger.addAsset("deed-9", "Dockside deed", "alice")
	suite.alice = newTestService(suite.ledger, "alice")
	suite.bob = newTestService(suite.ledger, "bob")

	// initiate while the backend clock sits 25 hours in the past, then let
	// it catch up: the transfer is now a day stale
	suite.ledger.setSkew(-25 * time.Hour)
	_, err := suite.alice.InitiateTransfer(context.Background(), "deed-9", "bob")
	assert.NoError(suite.T(), err)
	suite.ledger.setSkew(0)
}

func (suite *ExpiryTestSuite) TearDownTest() {
	suite.ledger.Close()
}

func (suite *ExpiryTestSuite) TestClientTreatsStalePendingAsExpired() {
	ctx := context.Background()

	// the server of record has not swept it and still says PENDING
	raw, err := suite.bob.Ledger.GetTransfer(ctx, "deed-9")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.TransferStatusPending, raw.Status)

	// the client must not offer any action on it
	assert.NoError(suite.T(), suite.bob.Projector.Refresh(ctx))
	views := suite.bob.Projector.Transfers()
	assert.Len(suite.T(), views, 1)
	assert.Equal(suite.T(), common.TransferStatusExpired, views[0].EffectiveStatus)
	assert.Equal(suite.T(), common.TransferStatusPending, views[0].Status)
	assert.False(suite.T(), views[0].Actionable)
	assert.Equal(suite.T(), time.Duration(0), views[0].Remaining)
	assert.Equal(suite.T(), 0, suite.bob.Projector.Count())

	// an approval attempt dies locally, before any network traffic
	_, err = suite.bob.ApproveTransfer(ctx, "deed-9")
	expired := &ledger.ExpiredError{}
	assert.ErrorAs(suite.T(), err, &expired)
}

func (suite *ExpiryTestSuite) TestServerSweepsOnApprovalAttempt() {
	ctx := context.Background()

	// going straight at the ledger bypasses the display policy; the server
	// trips over the deadline, sweeps the transfer and answers 410
	_, err := suite.bob.Ledger.ApproveTransfer(ctx, "deed-9")
	expired := &ledger.ExpiredError{}
	assert.ErrorAs(suite.T(), err, &expired)

	swept, err := suite.bob.Ledger.GetTransfer(ctx, "deed-9")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.TransferStatusExpired, swept.Status)

	// ownership never moved
	assert.Equal(suite.T(), "alice", suite.ledger.assetOwner("deed-9"))
}

func TestExpirySuite(t *testing.T) {
	suite.Run(t, new(ExpiryTestSuite))
}
