package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/amslabs/assethub.go/common"
	"github.com/amslabs/assethub.go/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PushEventsTestSuite struct {
	suite.Suite
	ledger *mockLedger
	alice  *service.AssethubService
	bob    *service.AssethubService
	cancel context.CancelFunc
}

func (suite *PushEventsTestSuite) SetupTest() {
	suite.ledger = newMockLedger(testSecret)
	suite.ledger.addAsset("plot-1", "Plot 1", "alice")
	suite.ledger.addAsset("plot-2", "Plot 2", "alice")
	suite.alice = newTestService(suite.ledger, "alice")
	suite.bob = newTestService(suite.ledger, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel
	suite.bob.Start(ctx)

	assert.Eventually(suite.T(), suite.bob.Bridge.IsConnected, 5*time.Second, 50*time.Millisecond,
		"push channel never connected")
}

func (suite *PushEventsTestSuite) TearDownTest() {
	suite.cancel()
	suite.ledger.Close()
}

func (suite *PushEventsTestSuite) TestPushInvalidationRefreshesProjection() {
	_, err := suite.alice.InitiateTransfer(context.Background(), "plot-1", "bob")
	assert.NoError(suite.T(), err)

	// no refresh is called here: the TRANSFER_INITIATED push event alone
	// must get the entry onto bob's dashboard
	assert.Eventually(suite.T(), func() bool {
		return suite.bob.Projector.Count() == 1
	}, 5*time.Second, 50*time.Millisecond, "projection never picked up the push event")
}

func (suite *PushEventsTestSuite) TestMalformedFramesAreDropped() {
	suite.ledger.hub.broadcastRaw([]byte("not even json"))
	suite.ledger.hub.broadcastRaw([]byte(`{"data":"frame without a type"}`))

	// the bridge must survive the garbage and keep relaying real events
	_, err := suite.alice.InitiateTransfer(context.Background(), "plot-2", "bob")
	assert.NoError(suite.T(), err)
	assert.Eventually(suite.T(), func() bool {
		return suite.bob.Projector.Count() == 1
	}, 5*time.Second, 50*time.Millisecond)
	assert.True(suite.T(), suite.bob.Bridge.IsConnected())
}

func (suite *PushEventsTestSuite) TestBridgeReconnectsAfterDrop() {
	suite.ledger.hub.closeAll()

	assert.Eventually(suite.T(), func() bool {
		return !suite.bob.Bridge.IsConnected()
	}, 5*time.Second, 50*time.Millisecond, "bridge never noticed the drop")

	assert.Eventually(suite.T(), suite.bob.Bridge.IsConnected, 5*time.Second, 50*time.Millisecond,
		"push channel never came back")

	// events after the gap flow through the fresh connection
	_, err := suite.alice.InitiateTransfer(context.Background(), "plot-1", "bob")
	assert.NoError(suite.T(), err)
	assert.Eventually(suite.T(), func() bool {
		return suite.bob.Projector.Count() == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func (suite *PushEventsTestSuite) TestEventBurstCoalesces() {
	ctx := context.Background()
	_, err := suite.alice.InitiateTransfer(ctx, "plot-1", "bob")
	assert.NoError(suite.T(), err)

	// a burst of redundant hints within one tick must not be answered with
	// one fetch per hint; the projection just has to end up authoritative
	for i := 0; i < 5; i++ {
		suite.ledger.hub.broadcast(common.EventTypeTransferApproved, nil)
	}

	assert.Eventually(suite.T(), func() bool {
		direct, err := suite.bob.Ledger.ListPendingTransfers(ctx)
		if err != nil {
			return false
		}
		return len(suite.bob.Projector.Transfers()) == len(direct) && suite.bob.Projector.Count() == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestPushEventsSuite(t *testing.T) {
	suite.Run(t, new(PushEventsTestSuite))
}
