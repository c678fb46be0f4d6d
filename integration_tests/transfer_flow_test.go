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

type TransferFlowTestSuite struct {
	suite.Suite
	ledger *mockLedger
	alice  *service.AssethubService
	bob    *service.AssethubService
	carol  *service.AssethubService
}

func (suite *TransferFlowTestSuite) SetupSuite() {
	suite.ledger = newMockLedger(testSecret)
	suite.ledger.addAsset("a1", "Warehouse deed", "alice")
	suite.ledger.addAsset("a2", "Parcel 7 title", "alice")
	suite.ledger.addAsset("a3", "Water rights", "alice")
	suite.alice = newTestService(suite.ledger, "alice")
	suite.bob = newTestService(suite.ledger, "bob")
	suite.carol = newTestService(suite.ledger, "carol")
}

func (suite *TransferFlowTestSuite) TearDownSuite() {
	suite.ledger.Close()
}

func (suite *TransferFlowTestSuite) view(svc *service.AssethubService, assetID string) (service.TransferView, bool) {
	for _, v := range svc.Projector.Transfers() {
		if v.AssetID == assetID {
			return v, true
		}
	}
	return service.TransferView{}, false
}

func (suite *TransferFlowTestSuite) TestApproveFlow() {
	ctx := context.Background()

	resp, err := suite.alice.InitiateTransfer(ctx, "a1", "bob")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.TransferStatusPending, resp.Status)
	assert.Equal(suite.T(), 24, resp.ExpiresInHours)

	// recipient sees one actionable entry with nearly the full window left
	assert.NoError(suite.T(), suite.bob.Projector.Refresh(ctx))
	assert.Equal(suite.T(), 1, suite.bob.Projector.Count())
	view, ok := suite.view(suite.bob, "a1")
	assert.True(suite.T(), ok)
	assert.True(suite.T(), view.IsRecipient)
	assert.False(suite.T(), view.HasSigned)
	assert.True(suite.T(), view.Actionable)
	assert.Equal(suite.T(), 1, view.ApprovalCount)
	assert.GreaterOrEqual(suite.T(), view.Remaining, 23*time.Hour+58*time.Minute)
	assert.LessOrEqual(suite.T(), view.Remaining, 24*time.Hour)

	// the initiator has signed already and has nothing to act on
	assert.NoError(suite.T(), suite.alice.Projector.Refresh(ctx))
	assert.Equal(suite.T(), 0, suite.alice.Projector.Count())
	view, ok = suite.view(suite.alice, "a1")
	assert.True(suite.T(), ok)
	assert.False(suite.T(), view.IsRecipient)
	assert.True(suite.T(), view.HasSigned)
	assert.False(suite.T(), view.Actionable)

	// outsiders cannot act
	_, err = suite.carol.ApproveTransfer(ctx, "a1")
	assert.Error(suite.T(), err)
	forbidden := &ledger.ForbiddenError{}
	assert.ErrorAs(suite.T(), err, &forbidden)

	// the recipient's approval executes the transfer and flips ownership
	_, err = suite.bob.ApproveTransfer(ctx, "a1")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "bob", suite.ledger.assetOwner("a1"))

	executed, err := suite.bob.Ledger.GetTransfer(ctx, "a1")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.TransferStatusExecuted, executed.Status)
	assert.Len(suite.T(), executed.Approvals, 2)
	assert.NotZero(suite.T(), executed.ExecutedAt)

	// the reconcile after approval already removed it from the badge
	assert.Equal(suite.T(), 0, suite.bob.Projector.Count())

	// a second approval attempt is a duplicate
	_, err = suite.bob.ApproveTransfer(ctx, "a1")
	alreadyActed := &ledger.AlreadyActedError{}
	assert.ErrorAs(suite.T(), err, &alreadyActed)
}

func (suite *TransferFlowTestSuite) TestInitiateGuards() {
	ctx := context.Background()

	_, err := suite.alice.InitiateTransfer(ctx, "a2", "carol")
	assert.NoError(suite.T(), err)

	// one PENDING transfer per asset
	_, err = suite.alice.InitiateTransfer(ctx, "a2", "bob")
	conflict := &ledger.ConflictError{}
	assert.ErrorAs(suite.T(), err, &conflict)

	// only the owner can initiate
	_, err = suite.bob.InitiateTransfer(ctx, "a3", "carol")
	forbidden := &ledger.ForbiddenError{}
	assert.ErrorAs(suite.T(), err, &forbidden)

	// transfers to yourself are refused before any network traffic
	_, err = suite.alice.InitiateTransfer(ctx, "a3", "alice")
	assert.ErrorAs(suite.T(), err, &forbidden)

	// unknown asset
	_, err = suite.alice.InitiateTransfer(ctx, "nope", "bob")
	notFound := &ledger.NotFoundError{}
	assert.ErrorAs(suite.T(), err, &notFound)
}

func (suite *TransferFlowTestSuite) TestRejectFlow() {
	ctx := context.Background()

	_, err := suite.alice.InitiateTransfer(ctx, "a3", "bob")
	assert.NoError(suite.T(), err)

	assert.NoError(suite.T(), suite.bob.Projector.Refresh(ctx))
	_, err = suite.bob.RejectTransfer(ctx, "a3", "wrong price")
	assert.NoError(suite.T(), err)

	rejected, err := suite.bob.Ledger.GetTransfer(ctx, "a3")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.TransferStatusRejected, rejected.Status)
	assert.Equal(suite.T(), "wrong price", rejected.RejectionReason)
	assert.Len(suite.T(), rejected.Approvals, 1)

	// ownership is untouched and nothing is actionable anymore
	assert.Equal(suite.T(), "alice", suite.ledger.assetOwner("a3"))
	assert.Equal(suite.T(), 0, suite.bob.Projector.Count())

	// the slot frees up for a fresh proposal
	_, err = suite.alice.InitiateTransfer(ctx, "a3", "carol")
	assert.NoError(suite.T(), err)

	// carol rejects without giving a reason, the placeholder is stored
	assert.NoError(suite.T(), suite.carol.Projector.Refresh(ctx))
	_, err = suite.carol.RejectTransfer(ctx, "a3", "")
	assert.NoError(suite.T(), err)
	rejected, err = suite.carol.Ledger.GetTransfer(ctx, "a3")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.DefaultRejectionReason, rejected.RejectionReason)
}

func TestTransferFlowSuite(t *testing.T) {
	suite.Run(t, new(TransferFlowTestSuite))
}
